package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/liveevents"
	"github.com/smallbiznis/sorteos/internal/observability/metrics"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	"github.com/smallbiznis/sorteos/internal/reservation/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	expiredBatchSize = 500

	SourceReservation = "reservation"
	SourceRelease     = "release"
	SourceSweep       = "sweep"
	SourceAdmin       = "admin"
	SourceWebhook     = "webhook"

	warningPromoterSale = "promoter_sale_failed"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	BuyerSvc    buyerdomain.Service
	PromoterSvc promoterdomain.Service
	TicketRepo  ticketdomain.Repository
	RaffleRepo  raffledomain.Repository
	Publisher   liveevents.Publisher `optional:"true"`
	Metrics     *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	window       time.Duration
	selectionMax int
	buyerSvc     buyerdomain.Service
	promoterSvc  promoterdomain.Service
	ticketRepo   ticketdomain.Repository
	raffleRepo   raffledomain.Repository
	publisher    liveevents.Publisher
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	window := p.Config.Raffle.ReservationWindow
	if window <= 0 {
		window = domain.DefaultWindow
	}
	selectionMax := p.Config.Raffle.SelectionMax
	if selectionMax <= 0 {
		selectionMax = ticketdomain.DefaultSelectionMax
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("reservation.service"),
		clock:        p.Clock,
		window:       window,
		selectionMax: selectionMax,
		buyerSvc:     p.BuyerSvc,
		promoterSvc:  p.PromoterSvc,
		ticketRepo:   p.TicketRepo,
		raffleRepo:   p.RaffleRepo,
		publisher:    p.Publisher,
		metrics:      p.Metrics,
	}
}

func (s *Service) Window() time.Duration { return s.window }

func (s *Service) Reserve(ctx context.Context, req domain.ReserveRequest) (domain.Reservation, error) {
	raffleID, err := snowflake.ParseString(strings.TrimSpace(req.RaffleID))
	if err != nil || raffleID == 0 {
		return domain.Reservation{}, domain.ErrInvalidRaffle
	}
	ids, err := ticketdomain.ParseIDs(req.TicketIDs)
	if err != nil {
		return domain.Reservation{}, err
	}
	if len(ids) > s.selectionMax {
		return domain.Reservation{}, domain.ErrSelectionTooLarge
	}

	form := req.Buyer.Normalize()
	if err := form.Validate(true); err != nil {
		return domain.Reservation{}, err
	}

	raffle, err := s.raffleRepo.FindByID(ctx, s.db, raffleID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if raffle == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if raffle.Status != raffledomain.RaffleStatusActive {
		return domain.Reservation{}, domain.ErrRaffleNotActive
	}

	var promoterCode *string
	if code := promoterdomain.NormalizeCode(req.PromoterCode); code != "" {
		promoterCode = &code
	}

	now := s.clock.Now().UTC()
	var buyer buyerdomain.Buyer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.buyerSvc.Upsert(ctx, tx, form)
		if err != nil {
			return err
		}
		buyer = stored

		tickets, err := s.ticketRepo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(tickets) != len(ids) {
			return domain.ErrNotFound
		}
		for _, ticket := range tickets {
			if ticket.RaffleID != raffleID {
				return domain.ErrTicketRaffleMismatch
			}
		}

		rows, err := s.ticketRepo.Reserve(ctx, tx, ticketdomain.ReserveParams{
			IDs:          ids,
			UserID:       buyer.ID,
			PromoterCode: promoterCode,
			ReservedAt:   now,
		})
		if err != nil {
			return err
		}
		if rows != int64(len(ids)) {
			return domain.ErrTicketsUnavailable
		}
		return s.promoterSvc.DiscardSales(ctx, tx, ids)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	tickets := s.reload(ctx, ids)
	s.publish(SourceReservation, tickets)
	s.metrics.RecordTicketsReserved(ctx, len(ids))

	reservation := domain.Reservation{
		RaffleID:   raffleID,
		Buyer:      buyer,
		Tickets:    tickets,
		ReservedAt: now,
		ExpiresAt:  domain.NewCountdown(now, s.window).ExpiresAt(),
	}
	if promoterCode != nil {
		reservation.PromoterCode = *promoterCode
		reservation.Warnings = s.registerSales(ctx, ids, *promoterCode, false)
	}

	s.log.Info("tickets reserved",
		zap.String("raffle_id", raffleID.String()),
		zap.String("buyer_id", buyer.ID.String()),
		zap.Int("count", len(ids)),
		zap.Int("warnings", len(reservation.Warnings)),
	)
	return reservation, nil
}

func (s *Service) Purchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResult, error) {
	ids, err := ticketdomain.ParseIDs(req.TicketIDs)
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	at := req.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	at = at.UTC()
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = SourceAdmin
	}

	holder, matched, err := s.resolveHolder(ctx, req.Holder)
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	result := domain.PurchaseResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.ticketRepo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		held := make(map[snowflake.ID]bool, len(before))
		eligible := make([]snowflake.ID, 0, len(before))
		for _, ticket := range before {
			held[ticket.ID] = matched && heldBy(ticket, holder)
			if held[ticket.ID] && ticket.Status == ticketdomain.TicketStatusReserved {
				eligible = append(eligible, ticket.ID)
			}
		}
		prior := statusIndex(before)

		_, err = s.ticketRepo.Purchase(ctx, tx, ticketdomain.PurchaseParams{
			IDs:           eligible,
			HeldBy:        holder,
			ReservedAfter: at.Add(-s.window),
			At:            at,
		})
		if err != nil {
			return err
		}

		after, err := s.ticketRepo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		current := statusIndex(after)
		for _, id := range ids {
			switch {
			case prior[id] == ticketdomain.TicketStatusPurchased && held[id]:
				result.AlreadyPurchased = append(result.AlreadyPurchased, id)
			case prior[id] == ticketdomain.TicketStatusReserved && current[id] == ticketdomain.TicketStatusPurchased:
			default:
				result.Skipped = append(result.Skipped, id)
			}
		}
		for _, ticket := range after {
			if prior[ticket.ID] == ticketdomain.TicketStatusReserved && ticket.Status == ticketdomain.TicketStatusPurchased {
				result.Purchased = append(result.Purchased, *ticket)
			}
		}
		return nil
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	if result.Purchased == nil {
		result.Purchased = []ticketdomain.Ticket{}
	}

	s.publish(source, result.Purchased)
	s.metrics.RecordTicketsPurchased(ctx, source, len(result.Purchased))

	if req.ConfirmSales {
		confirmIDs := make([]snowflake.ID, 0, len(result.Purchased)+len(result.AlreadyPurchased))
		for _, ticket := range result.Purchased {
			confirmIDs = append(confirmIDs, ticket.ID)
		}
		confirmIDs = append(confirmIDs, result.AlreadyPurchased...)
		result.Warnings = s.confirmSales(ctx, confirmIDs, promoterdomain.NormalizeCode(req.PromoterCode))
	}

	if len(result.Skipped) > 0 {
		s.log.Warn("tickets skipped on purchase",
			zap.String("source", source),
			zap.Int("purchased", len(result.Purchased)),
			zap.Int("skipped", len(result.Skipped)),
		)
	}
	return result, nil
}

func (s *Service) Release(ctx context.Context, req domain.ReleaseRequest) (domain.ReleaseResult, error) {
	ids, err := ticketdomain.ParseIDs(req.TicketIDs)
	if err != nil {
		return domain.ReleaseResult{}, err
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = SourceRelease
	}
	holder, matched, err := s.resolveHolder(ctx, req.Holder)
	if err != nil {
		return domain.ReleaseResult{}, err
	}
	if !matched {
		return domain.ReleaseResult{Released: []ticketdomain.Ticket{}}, nil
	}
	return s.release(ctx, ticketdomain.ReleaseParams{
		IDs:           ids,
		From:          []ticketdomain.TicketStatus{ticketdomain.TicketStatusReserved},
		HeldBy:        holder,
		ClearPromoter: req.ClearPromoter,
	}, source)
}

func (s *Service) ForceRelease(ctx context.Context, ticketIDs []string) (domain.ReleaseResult, error) {
	ids, err := ticketdomain.ParseIDs(ticketIDs)
	if err != nil {
		return domain.ReleaseResult{}, err
	}
	return s.release(ctx, ticketdomain.ReleaseParams{
		IDs:           ids,
		From:          []ticketdomain.TicketStatus{ticketdomain.TicketStatusReserved, ticketdomain.TicketStatusPurchased},
		ClearPromoter: true,
	}, SourceAdmin)
}

func (s *Service) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	cutoff := now.Add(-s.window)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		expired, err := s.ticketRepo.ListExpired(ctx, s.db, cutoff, expiredBatchSize)
		if err != nil {
			return total, err
		}
		if len(expired) == 0 {
			return total, nil
		}

		ids := make([]snowflake.ID, 0, len(expired))
		for _, ticket := range expired {
			ids = append(ids, ticket.ID)
		}
		var rows int64
		released := make([]ticketdomain.Ticket, 0, len(ids))
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n, err := s.ticketRepo.ReleaseExpired(ctx, tx, ids, cutoff, now)
			if err != nil {
				return err
			}
			rows = n

			after, err := s.ticketRepo.FindByIDs(ctx, tx, ids)
			if err != nil {
				return err
			}
			releasedIDs := make([]snowflake.ID, 0, len(after))
			for _, ticket := range after {
				if ticket.Status == ticketdomain.TicketStatusAvailable {
					released = append(released, *ticket)
					releasedIDs = append(releasedIDs, ticket.ID)
				}
			}
			return s.promoterSvc.DiscardSales(ctx, tx, releasedIDs)
		})
		if err != nil {
			return total, err
		}
		total += int(rows)

		s.publish(SourceSweep, released)
		s.metrics.RecordTicketsReleased(ctx, SourceSweep, int(rows))

		if rows == 0 || len(expired) < expiredBatchSize {
			if total > 0 {
				s.log.Info("expired reservations released", zap.Int("count", total), zap.Time("cutoff", cutoff))
			}
			return total, nil
		}
	}
}

func (s *Service) Status(ctx context.Context, ticketIDs []string) ([]domain.Hold, error) {
	ids, err := ticketdomain.ParseIDs(ticketIDs)
	if err != nil {
		return nil, err
	}
	tickets, err := s.ticketRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	holds := make([]domain.Hold, 0, len(tickets))
	for _, ticket := range tickets {
		hold := domain.Hold{
			TicketID:   ticket.ID,
			Number:     ticket.Number,
			Status:     ticket.Status,
			ReservedAt: ticket.ReservedAt,
			Remaining:  "00:00",
		}
		if ticket.Status == ticketdomain.TicketStatusReserved && ticket.ReservedAt != nil {
			countdown := domain.NewCountdown(*ticket.ReservedAt, s.window)
			expiresAt := countdown.ExpiresAt()
			hold.ExpiresAt = &expiresAt
			hold.RemainingSeconds = int64(countdown.Remaining(now) / time.Second)
			hold.Remaining = countdown.Format(now)
			hold.Expired = countdown.Expired(now)
		}
		holds = append(holds, hold)
	}
	return holds, nil
}

func (s *Service) release(ctx context.Context, params ticketdomain.ReleaseParams, source string) (domain.ReleaseResult, error) {
	params.At = s.clock.Now().UTC()
	released := []ticketdomain.Ticket{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.ticketRepo.FindByIDs(ctx, tx, params.IDs)
		if err != nil {
			return err
		}
		prior := statusIndex(before)

		if _, err := s.ticketRepo.Release(ctx, tx, params); err != nil {
			return err
		}

		after, err := s.ticketRepo.FindByIDs(ctx, tx, params.IDs)
		if err != nil {
			return err
		}
		releasedIDs := make([]snowflake.ID, 0, len(after))
		for _, ticket := range after {
			if ticket.Status == ticketdomain.TicketStatusAvailable && prior[ticket.ID] != ticketdomain.TicketStatusAvailable {
				released = append(released, *ticket)
				releasedIDs = append(releasedIDs, ticket.ID)
			}
		}
		return s.promoterSvc.DiscardSales(ctx, tx, releasedIDs)
	})
	if err != nil {
		return domain.ReleaseResult{}, err
	}

	s.publish(source, released)
	s.metrics.RecordTicketsReleased(ctx, source, len(released))
	return domain.ReleaseResult{Released: released}, nil
}

// resolveHolder returns the buyer id a hold must carry, or nil for any buyer.
// matched is false when a holder was named but no buyer fits it.
func (s *Service) resolveHolder(ctx context.Context, holder domain.Holder) (id *snowflake.ID, matched bool, err error) {
	if holder.IsZero() {
		return nil, true, nil
	}
	if raw := strings.TrimSpace(holder.BuyerID); raw != "" {
		buyerID, err := snowflake.ParseString(raw)
		if err != nil || buyerID == 0 {
			return nil, false, nil
		}
		return &buyerID, true, nil
	}

	buyer, err := s.buyerSvc.GetByPhone(ctx, holder.Phone)
	if errors.Is(err, buyerdomain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &buyer.ID, true, nil
}

func (s *Service) registerSales(ctx context.Context, ids []snowflake.ID, code string, confirmed bool) []domain.Warning {
	var warnings []domain.Warning
	for _, id := range ids {
		res := s.promoterSvc.RegisterSale(ctx, promoterdomain.RegisterSaleRequest{
			TicketID:  id.String(),
			Code:      code,
			Confirmed: confirmed,
		})
		if res.Success {
			continue
		}
		s.log.Warn("promoter sale not registered",
			zap.String("ticket_id", id.String()),
			zap.String("code", code),
			zap.String("reason", res.Error),
		)
		warnings = append(warnings, domain.Warning{TicketID: id, Code: warningPromoterSale, Message: res.Error})
	}
	return warnings
}

// confirmSales registers a confirmed sale for every ticket with a promoter
// code, using fallbackCode for tickets reserved without one.
func (s *Service) confirmSales(ctx context.Context, ids []snowflake.ID, fallbackCode string) []domain.Warning {
	if len(ids) == 0 {
		return nil
	}
	var warnings []domain.Warning
	for _, ticket := range s.reload(ctx, ids) {
		code := fallbackCode
		if ticket.PromoterCode != nil && strings.TrimSpace(*ticket.PromoterCode) != "" {
			code = *ticket.PromoterCode
		}
		if code == "" {
			continue
		}
		warnings = append(warnings, s.registerSales(ctx, []snowflake.ID{ticket.ID}, code, true)...)
	}
	return warnings
}

// reload reads tickets after commit. Failures only cost the live update.
func (s *Service) reload(ctx context.Context, ids []snowflake.ID) []ticketdomain.Ticket {
	items, err := s.ticketRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		s.log.Warn("reload tickets", zap.Error(err))
		return nil
	}
	out := make([]ticketdomain.Ticket, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}

func (s *Service) publish(source string, tickets []ticketdomain.Ticket) {
	if s.publisher == nil || len(tickets) == 0 {
		return
	}
	s.publisher.PublishTickets(source, tickets...)
}

func heldBy(ticket *ticketdomain.Ticket, holder *snowflake.ID) bool {
	if holder == nil {
		return true
	}
	return ticket.UserID != nil && *ticket.UserID == *holder
}

func statusIndex(tickets []*ticketdomain.Ticket) map[snowflake.ID]ticketdomain.TicketStatus {
	out := make(map[snowflake.ID]ticketdomain.TicketStatus, len(tickets))
	for _, ticket := range tickets {
		out[ticket.ID] = ticket.Status
	}
	return out
}
