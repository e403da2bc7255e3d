package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/buyer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("buyer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, db *gorm.DB, form domain.Form) (domain.Buyer, error) {
	if db == nil {
		db = s.db
	}

	form = form.Normalize()
	if err := form.Validate(false); err != nil {
		return domain.Buyer{}, err
	}

	now := time.Now().UTC()
	buyer := domain.Buyer{
		ID:        s.genID.Generate(),
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Phone:     form.Phone,
		State:     form.State,
		Email:     form.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertByPhone(ctx, db, &buyer); err != nil {
		return domain.Buyer{}, err
	}
	return buyer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Buyer, error) {
	buyerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || buyerID == 0 {
		return domain.Buyer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, buyerID)
	if err != nil {
		return domain.Buyer{}, err
	}
	if item == nil {
		return domain.Buyer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (domain.Buyer, error) {
	digits := domain.DigitsOnly(phone)
	if digits == "" {
		return domain.Buyer{}, domain.ErrNotFound
	}

	item, err := s.repo.FindByPhone(ctx, s.db, digits)
	if err != nil {
		return domain.Buyer{}, err
	}
	if item == nil {
		return domain.Buyer{}, domain.ErrNotFound
	}
	return *item, nil
}
