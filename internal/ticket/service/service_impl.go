package service

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	"github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	RaffleRepo raffledomain.Repository
	BuyerRepo  buyerdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	raffleRepo raffledomain.Repository
	buyerRepo  buyerdomain.Repository
	shuffle    func(n int, swap func(i, j int))
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ticket.service"),
		repo:       p.Repo,
		raffleRepo: p.RaffleRepo,
		buyerRepo:  p.BuyerRepo,
		shuffle:    rand.Shuffle,
	}
}

func (s *Service) ListByRaffle(ctx context.Context, req domain.ListTicketsRequest) ([]domain.Ticket, error) {
	raffleID, filter, err := s.parseListRequest(req)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByRaffle(ctx, s.db, raffleID, filter)
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tickets = append(tickets, *item)
	}
	return tickets, nil
}

func (s *Service) ListAdmin(ctx context.Context, req domain.ListTicketsRequest) ([]domain.AdminTicket, error) {
	raffleID, filter, err := s.parseListRequest(req)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListAdminByRaffle(ctx, s.db, raffleID, filter)
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.AdminTicket, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tickets = append(tickets, *item)
	}
	return tickets, nil
}

func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	parsed, err := domain.ParseIDs(ids)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.FindByIDs(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if len(items) != len(parsed) {
		return nil, domain.ErrNotFound
	}

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		tickets = append(tickets, *item)
	}
	return tickets, nil
}

// RandomPick samples available tickets without replacement.
func (s *Service) RandomPick(ctx context.Context, req domain.RandomPickRequest) (domain.RandomPickResult, error) {
	raffleID, err := parseID(req.RaffleID)
	if err != nil {
		return domain.RandomPickResult{}, domain.ErrInvalidRaffle
	}

	count := req.Count
	if count < domain.RandomPickMin {
		count = domain.RandomPickMin
	}
	if count > domain.RandomPickMax {
		count = domain.RandomPickMax
	}

	exclude := make(map[snowflake.ID]struct{}, len(req.Exclude))
	for _, raw := range req.Exclude {
		id, err := parseID(raw)
		if err != nil {
			return domain.RandomPickResult{}, domain.ErrInvalidID
		}
		exclude[id] = struct{}{}
	}

	available, err := s.repo.ListAvailableIDs(ctx, s.db, raffleID)
	if err != nil {
		return domain.RandomPickResult{}, err
	}

	pool := make([]snowflake.ID, 0, len(available))
	for _, id := range available {
		if _, skip := exclude[id]; skip {
			continue
		}
		pool = append(pool, id)
	}
	if len(pool) == 0 {
		return domain.RandomPickResult{Tickets: []domain.Ticket{}, NoTicketsAvailable: true}, nil
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}

	items, err := s.repo.FindByIDs(ctx, s.db, pool[:count])
	if err != nil {
		return domain.RandomPickResult{}, err
	}

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		tickets = append(tickets, *item)
	}
	return domain.RandomPickResult{Tickets: tickets}, nil
}

func (s *Service) Verify(ctx context.Context, req domain.VerifyRequest) (domain.Verification, error) {
	if req.Number < raffledomain.FirstTicketNumber {
		return domain.Verification{}, domain.ErrInvalidNumber
	}

	var raffleID *snowflake.ID
	if strings.TrimSpace(req.RaffleID) != "" {
		id, err := parseID(req.RaffleID)
		if err != nil {
			return domain.Verification{}, domain.ErrInvalidRaffle
		}
		raffleID = &id
	}

	ticket, err := s.repo.FindByNumber(ctx, s.db, raffleID, req.Number)
	if err != nil {
		return domain.Verification{}, err
	}
	if ticket == nil {
		return domain.Verification{}, domain.ErrNotFound
	}

	raffle, err := s.raffleRepo.FindByID(ctx, s.db, ticket.RaffleID)
	if err != nil {
		return domain.Verification{}, err
	}
	if raffle == nil {
		return domain.Verification{}, domain.ErrNotFound
	}

	out := domain.Verification{
		Number:      ticket.Number,
		RaffleID:    raffle.ID,
		RaffleName:  raffle.Name,
		Status:      ticket.Status,
		PurchasedAt: ticket.PurchasedAt,
	}
	if ticket.UserID != nil && ticket.Status != domain.TicketStatusAvailable {
		buyer, err := s.buyerRepo.FindByID(ctx, s.db, *ticket.UserID)
		if err != nil {
			return domain.Verification{}, err
		}
		if buyer != nil {
			out.BuyerName = buyer.FullName()
			out.BuyerPhone = buyerdomain.MaskPhone(buyer.Phone)
		}
	}
	return out, nil
}

func (s *Service) parseListRequest(req domain.ListTicketsRequest) (snowflake.ID, domain.ListFilter, error) {
	raffleID, err := parseID(req.RaffleID)
	if err != nil {
		return 0, domain.ListFilter{}, domain.ErrInvalidRaffle
	}

	status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status != "" && !status.Valid() {
		return 0, domain.ListFilter{}, domain.ErrInvalidStatus
	}
	return raffleID, domain.ListFilter{Status: status}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
