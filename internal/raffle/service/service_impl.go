package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/raffle/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxTotalTickets = 100000
	maxSlugAttempts = 50
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	TicketRepo ticketdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	currency   string
	repo       domain.Repository
	ticketRepo ticketdomain.Repository
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Config.Raffle.Currency))
	if currency == "" {
		currency = "MXN"
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("raffle.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		currency:   currency,
		repo:       p.Repo,
		ticketRepo: p.TicketRepo,
	}
}

// Create stores the raffle and generates its numbered tickets in one transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateRaffleRequest) (domain.Raffle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Raffle{}, domain.ErrInvalidName
	}
	if req.Price <= 0 {
		return domain.Raffle{}, domain.ErrInvalidPrice
	}
	if req.TotalTickets <= 0 || req.TotalTickets > maxTotalTickets {
		return domain.Raffle{}, domain.ErrInvalidTotalTickets
	}
	if req.DrawDate.IsZero() {
		return domain.Raffle{}, domain.ErrInvalidDrawDate
	}

	status := domain.RaffleStatusDraft
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.RaffleStatus(strings.ToLower(raw))
		if status != domain.RaffleStatusDraft && status != domain.RaffleStatusActive {
			return domain.Raffle{}, domain.ErrInvalidStatus
		}
	}

	now := s.clock.Now().UTC()
	raffle := domain.Raffle{
		ID:           s.genID.Generate(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		VideoURL:     strings.TrimSpace(req.VideoURL),
		Price:        req.Price,
		Currency:     s.currency,
		DrawDate:     req.DrawDate.UTC(),
		Status:       status,
		TotalTickets: req.TotalTickets,
		PrizeItems:   cleanPrizeItems(req.PrizeItems),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uniqueSlug, err := s.uniqueSlug(ctx, tx, name)
		if err != nil {
			return err
		}
		raffle.Slug = uniqueSlug

		if err := s.repo.Insert(ctx, tx, &raffle); err != nil {
			return err
		}
		return s.ticketRepo.InsertBatch(ctx, tx, s.buildTickets(raffle, now))
	})
	if err != nil {
		return domain.Raffle{}, err
	}

	s.log.Info("raffle created",
		zap.String("raffle_id", raffle.ID.String()),
		zap.String("slug", raffle.Slug),
		zap.Int("total_tickets", raffle.TotalTickets),
	)
	return raffle, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRaffleRequest) (domain.Raffle, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Raffle{}, err
	}

	raffle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Raffle{}, err
	}
	if raffle == nil {
		return domain.Raffle{}, domain.ErrNotFound
	}
	if raffle.Status == domain.RaffleStatusCompleted {
		return domain.Raffle{}, domain.ErrRaffleCompleted
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Raffle{}, domain.ErrInvalidName
		}
		raffle.Name = name
	}
	if req.Description != nil {
		raffle.Description = strings.TrimSpace(*req.Description)
	}
	if req.ImageURL != nil {
		raffle.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.VideoURL != nil {
		raffle.VideoURL = strings.TrimSpace(*req.VideoURL)
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return domain.Raffle{}, domain.ErrInvalidPrice
		}
		raffle.Price = *req.Price
	}
	if req.DrawDate != nil {
		if req.DrawDate.IsZero() {
			return domain.Raffle{}, domain.ErrInvalidDrawDate
		}
		raffle.DrawDate = req.DrawDate.UTC()
	}
	if req.PrizeItems != nil {
		raffle.PrizeItems = cleanPrizeItems(req.PrizeItems)
	}
	raffle.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, raffle); err != nil {
		return domain.Raffle{}, err
	}
	return *raffle, nil
}

func (s *Service) SetStatus(ctx context.Context, req domain.SetStatusRequest) (domain.Raffle, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Raffle{}, err
	}

	target := domain.RaffleStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	switch target {
	case domain.RaffleStatusDraft, domain.RaffleStatusActive, domain.RaffleStatusCompleted:
	default:
		return domain.Raffle{}, domain.ErrInvalidStatus
	}

	raffle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Raffle{}, err
	}
	if raffle == nil {
		return domain.Raffle{}, domain.ErrNotFound
	}
	if raffle.Status == target {
		return *raffle, nil
	}
	if raffle.Status == domain.RaffleStatusCompleted {
		return domain.Raffle{}, domain.ErrRaffleCompleted
	}
	if !domain.CanTransition(raffle.Status, target) {
		return domain.Raffle{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, id, target, now); err != nil {
		return domain.Raffle{}, err
	}

	s.log.Info("raffle status changed",
		zap.String("raffle_id", id.String()),
		zap.String("from", string(raffle.Status)),
		zap.String("to", string(target)),
	)
	raffle.Status = target
	raffle.UpdatedAt = now
	return *raffle, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	raffle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if raffle == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}
	s.log.Info("raffle deleted", zap.String("raffle_id", id.String()))
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Raffle, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Raffle{}, err
	}

	raffle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Raffle{}, err
	}
	if raffle == nil {
		return domain.Raffle{}, domain.ErrNotFound
	}
	return *raffle, nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (domain.Raffle, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return domain.Raffle{}, domain.ErrNotFound
	}

	raffle, err := s.repo.FindBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Raffle{}, err
	}
	if raffle == nil {
		return domain.Raffle{}, domain.ErrNotFound
	}
	return *raffle, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRafflesRequest) ([]domain.Raffle, error) {
	filter := domain.ListFilter{}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		filter.Status = domain.RaffleStatus(strings.ToLower(raw))
		switch filter.Status {
		case domain.RaffleStatusDraft, domain.RaffleStatusActive, domain.RaffleStatusCompleted:
		default:
			return nil, domain.ErrInvalidStatus
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	raffles := make([]domain.Raffle, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		raffles = append(raffles, *item)
	}
	return raffles, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Raffle, error) {
	return s.List(ctx, domain.ListRafflesRequest{Status: string(domain.RaffleStatusActive)})
}

func (s *Service) Stats(ctx context.Context, rawID string) (domain.Stats, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Stats{}, err
	}

	stats, err := s.repo.Stats(ctx, s.db, id)
	if err != nil {
		return domain.Stats{}, err
	}
	if stats == nil {
		return domain.Stats{}, domain.ErrNotFound
	}
	return *stats, nil
}

func (s *Service) buildTickets(raffle domain.Raffle, now time.Time) []ticketdomain.Ticket {
	tickets := make([]ticketdomain.Ticket, 0, raffle.TotalTickets)
	for i := 0; i < raffle.TotalTickets; i++ {
		tickets = append(tickets, ticketdomain.Ticket{
			ID:        s.genID.Generate(),
			RaffleID:  raffle.ID,
			Number:    domain.FirstTicketNumber + i,
			Status:    ticketdomain.TicketStatusAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return tickets
}

func (s *Service) uniqueSlug(ctx context.Context, db *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "sorteo"
	}

	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts+1; attempt++ {
		exists, err := s.repo.SlugExists(ctx, db, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return fmt.Sprintf("%s-%s", base, s.genID.Generate().Base36()), nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func cleanPrizeItems(items []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
