package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/skip2/go-qrcode"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/promoter/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/smallbiznis/sorteos/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Promotions *config.PromotionsHolder
	Repo       domain.Repository
	TicketRepo ticketdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	baseURL    string
	promotions *config.PromotionsHolder
	repo       domain.Repository
	ticketRepo ticketdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("promoter.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		baseURL:    strings.TrimRight(p.Config.PublicBaseURL, "/"),
		promotions: p.Promotions,
		repo:       p.Repo,
		ticketRepo: p.TicketRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePromoterRequest) (domain.Promoter, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Promoter{}, domain.ErrInvalidName
	}
	code := domain.NormalizeCode(req.Code)
	if !domain.ValidCode(code) {
		return domain.Promoter{}, domain.ErrInvalidCode
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Promoter{}, err
	}
	if existing != nil {
		return domain.Promoter{}, domain.ErrDuplicateCode
	}

	now := s.clock.Now().UTC()
	promoter := domain.Promoter{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &promoter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Promoter{}, domain.ErrDuplicateCode
		}
		return domain.Promoter{}, err
	}
	return promoter, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePromoterRequest) (domain.Promoter, error) {
	promoter, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.Promoter{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Promoter{}, domain.ErrInvalidName
		}
		promoter.Name = name
	}
	if req.Code != nil {
		code := domain.NormalizeCode(*req.Code)
		if !domain.ValidCode(code) {
			return domain.Promoter{}, domain.ErrInvalidCode
		}
		if code != promoter.Code {
			existing, err := s.repo.FindByCode(ctx, s.db, code)
			if err != nil {
				return domain.Promoter{}, err
			}
			if existing != nil {
				return domain.Promoter{}, domain.ErrDuplicateCode
			}
		}
		promoter.Code = code
	}
	promoter.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, promoter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Promoter{}, domain.ErrDuplicateCode
		}
		return domain.Promoter{}, err
	}
	return *promoter, nil
}

func (s *Service) ToggleActive(ctx context.Context, id string) (domain.Promoter, error) {
	promoter, err := s.load(ctx, id)
	if err != nil {
		return domain.Promoter{}, err
	}
	promoter.Active = !promoter.Active
	promoter.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, promoter); err != nil {
		return domain.Promoter{}, err
	}
	return *promoter, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	promoter, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, promoter.ID)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Promoter, error) {
	promoter, err := s.load(ctx, id)
	if err != nil {
		return domain.Promoter{}, err
	}
	return *promoter, nil
}

func (s *Service) GetActiveByCode(ctx context.Context, code string) (domain.Promoter, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return domain.Promoter{}, domain.ErrInvalidCode
	}

	promoter, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Promoter{}, err
	}
	if promoter == nil {
		return domain.Promoter{}, domain.ErrNotFound
	}
	if !promoter.Active {
		return domain.Promoter{}, domain.ErrInactive
	}
	return *promoter, nil
}

func (s *Service) ListStats(ctx context.Context) ([]domain.Stats, error) {
	rows, err := s.repo.ListStats(ctx, s.db)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Stats, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, s.toStats(*row))
	}
	return out, nil
}

// RegisterSale attributes a ticket to a promoter. Failures are reported in
// the result rather than as errors so callers can treat them as warnings.
func (s *Service) RegisterSale(ctx context.Context, req domain.RegisterSaleRequest) domain.RegisterSaleResult {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(req.TicketID))
	if err != nil || ticketID == 0 {
		return failed(domain.ErrInvalidTicket)
	}
	code := domain.NormalizeCode(req.Code)
	if !domain.ValidCode(code) {
		return failed(domain.ErrInvalidCode)
	}

	promoter, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		s.log.Warn("promoter lookup failed", zap.String("code", code), zap.Error(err))
		return failed(err)
	}
	if promoter == nil {
		return failed(domain.ErrNotFound)
	}
	if !promoter.Active {
		return failed(domain.ErrInactive)
	}

	tickets, err := s.ticketRepo.FindByIDs(ctx, s.db, []snowflake.ID{ticketID})
	if err != nil {
		return failed(err)
	}
	if len(tickets) == 0 {
		return failed(domain.ErrInvalidTicket)
	}

	now := s.clock.Now().UTC()
	sale := domain.Sale{
		ID:         s.genID.Generate(),
		PromoterID: promoter.ID,
		TicketID:   ticketID,
		Confirmed:  req.Confirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Confirmed {
		sale.ConfirmedAt = &now
	}
	if err := s.repo.UpsertSale(ctx, s.db, &sale); err != nil {
		s.log.Warn("register promoter sale failed",
			zap.String("code", code),
			zap.String("ticket_id", ticketID.String()),
			zap.Error(err),
		)
		return failed(err)
	}
	return domain.RegisterSaleResult{Success: true}
}

func (s *Service) DiscardSales(ctx context.Context, db *gorm.DB, ticketIDs []snowflake.ID) error {
	if db == nil {
		db = s.db
	}
	rows, err := s.repo.DeleteSalesByTickets(ctx, db, ticketIDs)
	if err != nil {
		return err
	}
	if rows > 0 {
		s.log.Info("promoter sales discarded", zap.Int64("count", rows))
	}
	return nil
}

func (s *Service) Preview(code string, tickets int) domain.CommissionPreview {
	if tickets < 0 {
		tickets = 0
	}
	promos := s.promotions.Get()
	return domain.CommissionPreview{
		Code:       domain.NormalizeCode(code),
		Tickets:    tickets,
		Commission: int64(tickets) * promos.CommissionPerTicket,
	}
}

// Link returns the storefront URL that pre-fills the promoter code.
func (s *Service) Link(code string) string {
	return s.baseURL + "/boletos?promo=" + url.QueryEscape(domain.NormalizeCode(code))
}

func (s *Service) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	promoter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	return qrcode.Encode(s.Link(promoter.Code), qrcode.Medium, size)
}

func (s *Service) toStats(row domain.StatsRow) domain.Stats {
	promos := s.promotions.Get()
	return domain.Stats{
		ID:               row.PromoterID,
		Name:             row.Name,
		Code:             row.Code,
		Active:           row.Active,
		CreatedAt:        row.CreatedAt,
		TotalSales:       row.TotalSales,
		TicketsSold:      row.TicketsSold,
		ConfirmedSales:   row.ConfirmedSales,
		AccumulatedBonus: row.ConfirmedSales * promos.CommissionPerTicket,
		ExtraPrize:       row.ConfirmedSales >= int64(promos.ExtraPrizeThreshold),
		Link:             s.Link(row.Code),
	}
}

func (s *Service) load(ctx context.Context, rawID string) (*domain.Promoter, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}
	promoter, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if promoter == nil {
		return nil, domain.ErrNotFound
	}
	return promoter, nil
}

func failed(err error) domain.RegisterSaleResult {
	return domain.RegisterSaleResult{Success: false, Error: err.Error()}
}
