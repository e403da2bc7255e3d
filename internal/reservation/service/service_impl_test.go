package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	buyerrepository "github.com/smallbiznis/sorteos/internal/buyer/repository"
	buyerservice "github.com/smallbiznis/sorteos/internal/buyer/service"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/dbtest"
	promoterrepository "github.com/smallbiznis/sorteos/internal/promoter/repository"
	promoterservice "github.com/smallbiznis/sorteos/internal/promoter/service"
	rafflerepository "github.com/smallbiznis/sorteos/internal/raffle/repository"
	"github.com/smallbiznis/sorteos/internal/reservation/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	ticketrepository "github.com/smallbiznis/sorteos/internal/ticket/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]ticketdomain.Ticket
}

func (p *recordingPublisher) PublishTickets(source string, tickets ...ticketdomain.Ticket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]ticketdomain.Ticket)
	}
	p.events[source] = append(p.events[source], tickets...)
}

func (p *recordingPublisher) count(source string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[source])
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	pub   *recordingPublisher
}

var start = time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(start)
	cfg := config.Config{
		PublicBaseURL: "https://sorteos.example.com",
		Raffle:        config.RaffleConfig{ReservationWindow: 180 * time.Minute, SelectionMax: 3},
	}
	ticketRepo := ticketrepository.Provide()

	buyerSvc := buyerservice.New(buyerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  buyerrepository.Provide(),
	})
	promoterSvc := promoterservice.New(promoterservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Config:     cfg,
		Promotions: config.NewStaticPromotionsHolder(config.DefaultPromotionsConfig()),
		Repo:       promoterrepository.Provide(),
		TicketRepo: ticketRepo,
	})

	pub := &recordingPublisher{}
	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clk,
		Config:      cfg,
		BuyerSvc:    buyerSvc,
		PromoterSvc: promoterSvc,
		TicketRepo:  ticketRepo,
		RaffleRepo:  rafflerepository.Provide(),
		Publisher:   pub,
	})
	return fixture{svc: svc, db: db, node: node, clock: clk, pub: pub}
}

func buyerForm() buyerdomain.Form {
	return buyerdomain.Form{
		FirstName:     "Luis",
		LastName:      "Ramírez",
		Phone:         "(668) 123-4567",
		Email:         "Luis@Example.com",
		State:         "Sinaloa",
		AcceptedTerms: true,
	}
}

func otherBuyerForm() buyerdomain.Form {
	return buyerdomain.Form{
		FirstName:     "Marta",
		LastName:      "Osuna",
		Phone:         "668 765 4321",
		Email:         "marta@example.com",
		State:         "Sonora",
		AcceptedTerms: true,
	}
}

func (f fixture) seedPromoter(t *testing.T, code string, active bool) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		`INSERT INTO promoters (id, name, code, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.node.Generate(), "Promotor "+code, code, active, start, start,
	).Error)
}

func (f fixture) reserve(t *testing.T, raffleID snowflake.ID, ids ...snowflake.ID) domain.Reservation {
	t.Helper()
	res, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
		RaffleID:  raffleID.String(),
		TicketIDs: ticketdomain.IDStrings(ids),
		Buyer:     buyerForm(),
	})
	require.NoError(t, err)
	return res
}

func TestReserveHoldsTicketsForBuyer(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 5)

	res, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
		RaffleID:     raffleID.String(),
		TicketIDs:    ticketdomain.IDStrings(ids[:2]),
		Buyer:        buyerForm(),
		PromoterCode: " pesca10 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "6681234567", res.Buyer.Phone)
	assert.Equal(t, "luis@example.com", res.Buyer.Email)
	assert.Equal(t, "PESCA10", res.PromoterCode)
	assert.True(t, res.ExpiresAt.Equal(start.Add(180*time.Minute)))
	require.Len(t, res.Tickets, 2)
	for _, ticket := range res.Tickets {
		assert.Equal(t, ticketdomain.TicketStatusReserved, ticket.Status)
		require.NotNil(t, ticket.ReservedAt)
		assert.True(t, ticket.ReservedAt.Equal(start))
		require.NotNil(t, ticket.UserID)
		assert.Equal(t, res.Buyer.ID, *ticket.UserID)
		require.NotNil(t, ticket.PromoterCode)
		assert.Equal(t, "PESCA10", *ticket.PromoterCode)
	}
	// Unknown promoter code: the reservation stands, each ticket carries a warning.
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, f.pub.count(SourceReservation))
}

func TestReserveRegistersPromoterSales(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 3)
	f.seedPromoter(t, "PESCA10", true)

	res, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
		RaffleID:     raffleID.String(),
		TicketIDs:    ticketdomain.IDStrings(ids),
		Buyer:        buyerForm(),
		PromoterCode: "pesca10",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, int64(3), dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales WHERE confirmed = 0`))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 3)
	f.reserve(t, raffleID, ids[1])

	_, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
		RaffleID:  raffleID.String(),
		TicketIDs: ticketdomain.IDStrings(ids),
		Buyer:     buyerForm(),
	})
	require.ErrorIs(t, err, domain.ErrTicketsUnavailable)
	assert.Equal(t, "available", dbtest.Status(t, f.db, ids[0]))
	assert.Equal(t, "available", dbtest.Status(t, f.db, ids[2]))
	assert.Equal(t, "reserved", dbtest.Status(t, f.db, ids[1]))
}

func TestReserveValidatesInput(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 5)
	ctx := context.Background()

	form := buyerForm()
	form.AcceptedTerms = false
	form.Phone = "12345"
	_, err := f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: raffleID.String(), TicketIDs: ticketdomain.IDStrings(ids[:1]), Buyer: form})
	var invalid *buyerdomain.InvalidFormError
	require.True(t, errors.As(err, &invalid))
	assert.ErrorIs(t, err, buyerdomain.ErrInvalidForm)

	_, err = f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: raffleID.String(), Buyer: buyerForm()})
	assert.ErrorIs(t, err, ticketdomain.ErrNoTickets)

	_, err = f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: raffleID.String(), TicketIDs: ticketdomain.IDStrings(ids[:4]), Buyer: buyerForm()})
	assert.ErrorIs(t, err, domain.ErrSelectionTooLarge)

	_, err = f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: "nope", TicketIDs: ticketdomain.IDStrings(ids[:1]), Buyer: buyerForm()})
	assert.ErrorIs(t, err, domain.ErrInvalidRaffle)

	otherRaffle, _ := dbtest.SeedRaffle(t, f.db, f.node, 10000, 1)
	_, err = f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: otherRaffle.String(), TicketIDs: ticketdomain.IDStrings(ids[:1]), Buyer: buyerForm()})
	assert.ErrorIs(t, err, domain.ErrTicketRaffleMismatch)

	require.NoError(t, f.db.Exec(`UPDATE raffles SET status = 'completed' WHERE id = ?`, raffleID).Error)
	_, err = f.svc.Reserve(ctx, domain.ReserveRequest{RaffleID: raffleID.String(), TicketIDs: ticketdomain.IDStrings(ids[:1]), Buyer: buyerForm()})
	assert.ErrorIs(t, err, domain.ErrRaffleNotActive)
}

func TestPurchaseIsCompareAndSwap(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 4)
	f.reserve(t, raffleID, ids[0], ids[1])
	f.reserve(t, raffleID, ids[2])
	_, err := f.svc.Release(context.Background(), domain.ReleaseRequest{TicketIDs: ticketdomain.IDStrings(ids[2:3])})
	require.NoError(t, err)

	paidAt := start.Add(20 * time.Minute)
	res, err := f.svc.Purchase(context.Background(), domain.PurchaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids[:3]),
		At:        paidAt,
		Source:    SourceWebhook,
	})
	require.NoError(t, err)
	require.Len(t, res.Purchased, 2)
	assert.Equal(t, []snowflake.ID{ids[2]}, res.Skipped)
	for _, ticket := range res.Purchased {
		require.NotNil(t, ticket.PurchasedAt)
		assert.True(t, ticket.PurchasedAt.Equal(paidAt))
		assert.False(t, ticket.PurchasedAt.Before(*ticket.ReservedAt))
	}
	assert.Equal(t, "available", dbtest.Status(t, f.db, ids[2]))
	assert.Equal(t, 2, f.pub.count(SourceWebhook))

	replay, err := f.svc.Purchase(context.Background(), domain.PurchaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids[:2]),
		At:        paidAt.Add(time.Minute),
		Source:    SourceWebhook,
	})
	require.NoError(t, err)
	assert.Empty(t, replay.Purchased)
	assert.ElementsMatch(t, ids[:2], replay.AlreadyPurchased)
	assert.Empty(t, replay.Skipped)
}

func TestPurchaseConfirmsSalesOnce(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	f.seedPromoter(t, "RIO", true)

	_, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
		RaffleID:     raffleID.String(),
		TicketIDs:    ticketdomain.IDStrings(ids),
		Buyer:        buyerForm(),
		PromoterCode: "rio",
	})
	require.NoError(t, err)

	req := domain.PurchaseRequest{TicketIDs: ticketdomain.IDStrings(ids), Source: SourceWebhook, ConfirmSales: true}
	for i := 0; i < 2; i++ {
		res, err := f.svc.Purchase(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
	}
	assert.Equal(t, int64(2), dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales`))
	assert.Equal(t, int64(2), dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales WHERE confirmed = 1`))
}

func TestReleaseOnlyTouchesReserved(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 3)
	f.reserve(t, raffleID, ids[0], ids[1])
	_, err := f.svc.Purchase(context.Background(), domain.PurchaseRequest{TicketIDs: ticketdomain.IDStrings(ids[1:2])})
	require.NoError(t, err)

	res, err := f.svc.Release(context.Background(), domain.ReleaseRequest{TicketIDs: ticketdomain.IDStrings(ids)})
	require.NoError(t, err)
	require.Len(t, res.Released, 1)
	released := res.Released[0]
	assert.Equal(t, ids[0], released.ID)
	assert.Nil(t, released.UserID)
	assert.Nil(t, released.ReservedAt)
	assert.Equal(t, "purchased", dbtest.Status(t, f.db, ids[1]))

	again, err := f.svc.Release(context.Background(), domain.ReleaseRequest{TicketIDs: ticketdomain.IDStrings(ids[:1])})
	require.NoError(t, err)
	assert.Empty(t, again.Released)
}

func TestReleaseClearsPromoterOnlyWhenAsked(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	for _, id := range ids {
		_, err := f.svc.Reserve(context.Background(), domain.ReserveRequest{
			RaffleID:     raffleID.String(),
			TicketIDs:    []string{id.String()},
			Buyer:        buyerForm(),
			PromoterCode: "MAR",
		})
		require.NoError(t, err)
	}

	kept, err := f.svc.Release(context.Background(), domain.ReleaseRequest{TicketIDs: ticketdomain.IDStrings(ids[:1])})
	require.NoError(t, err)
	require.Len(t, kept.Released, 1)
	require.NotNil(t, kept.Released[0].PromoterCode)

	cleared, err := f.svc.Release(context.Background(), domain.ReleaseRequest{TicketIDs: ticketdomain.IDStrings(ids[1:]), ClearPromoter: true})
	require.NoError(t, err)
	require.Len(t, cleared.Released, 1)
	assert.Nil(t, cleared.Released[0].PromoterCode)
}

func TestForceReleaseResetsPurchased(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	f.reserve(t, raffleID, ids...)
	_, err := f.svc.Purchase(context.Background(), domain.PurchaseRequest{TicketIDs: ticketdomain.IDStrings(ids[:1])})
	require.NoError(t, err)

	res, err := f.svc.ForceRelease(context.Background(), ticketdomain.IDStrings(ids))
	require.NoError(t, err)
	assert.Len(t, res.Released, 2)
	for _, ticket := range res.Released {
		assert.Nil(t, ticket.PurchasedAt)
		assert.Nil(t, ticket.UserID)
	}
	assert.Equal(t, 2, f.pub.count(SourceAdmin))
}

func TestReleaseExpiredSweepsOldHolds(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 3)
	f.reserve(t, raffleID, ids[0])
	f.clock.Advance(90 * time.Minute)
	f.reserve(t, raffleID, ids[1])

	released, err := f.svc.ReleaseExpired(context.Background(), start.Add(179*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	released, err = f.svc.ReleaseExpired(context.Background(), start.Add(180*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, "available", dbtest.Status(t, f.db, ids[0]))
	assert.Equal(t, "reserved", dbtest.Status(t, f.db, ids[1]))
	assert.Equal(t, 1, f.pub.count(SourceSweep))
}

func TestPurchaseSkipsTicketReheldByAnotherBuyer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 1)
	first := f.reserve(t, raffleID, ids[0])

	_, err := f.svc.Release(ctx, domain.ReleaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Holder:    domain.Holder{Phone: buyerForm().Phone},
	})
	require.NoError(t, err)
	second, err := f.svc.Reserve(ctx, domain.ReserveRequest{
		RaffleID:  raffleID.String(),
		TicketIDs: ticketdomain.IDStrings(ids),
		Buyer:     otherBuyerForm(),
	})
	require.NoError(t, err)

	for _, holder := range []domain.Holder{
		{Phone: "6681234567"},
		{BuyerID: first.Buyer.ID.String()},
		{BuyerID: "not-an-id"},
	} {
		res, err := f.svc.Purchase(ctx, domain.PurchaseRequest{
			TicketIDs: ticketdomain.IDStrings(ids),
			Source:    SourceWebhook,
			Holder:    holder,
		})
		require.NoError(t, err)
		assert.Empty(t, res.Purchased)
		assert.Empty(t, res.AlreadyPurchased)
		assert.Equal(t, ids, res.Skipped)
	}

	var holderID snowflake.ID
	require.NoError(t, f.db.Raw(`SELECT user_id FROM tickets WHERE id = ?`, ids[0]).Scan(&holderID).Error)
	assert.Equal(t, second.Buyer.ID, holderID)
	assert.Equal(t, "reserved", dbtest.Status(t, f.db, ids[0]))

	// The real holder can still pay, and a replay by the first buyer is not a success.
	res, err := f.svc.Purchase(ctx, domain.PurchaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Source:    SourceWebhook,
		Holder:    domain.Holder{BuyerID: second.Buyer.ID.String()},
	})
	require.NoError(t, err)
	assert.Len(t, res.Purchased, 1)

	replay, err := f.svc.Purchase(ctx, domain.PurchaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Source:    SourceWebhook,
		Holder:    domain.Holder{BuyerID: first.Buyer.ID.String()},
	})
	require.NoError(t, err)
	assert.Empty(t, replay.AlreadyPurchased)
	assert.Equal(t, ids, replay.Skipped)
}

func TestPurchaseSkipsExpiredHold(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	f.reserve(t, raffleID, ids[0])
	f.clock.Advance(90 * time.Minute)
	f.reserve(t, raffleID, ids[1])
	f.clock.Advance(91 * time.Minute)

	res, err := f.svc.Purchase(context.Background(), domain.PurchaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Source:    SourceWebhook,
		Holder:    domain.Holder{Phone: buyerForm().Phone},
	})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{ids[0]}, res.Skipped)
	require.Len(t, res.Purchased, 1)
	assert.Equal(t, ids[1], res.Purchased[0].ID)
	assert.Equal(t, "reserved", dbtest.Status(t, f.db, ids[0]))
}

func TestReleaseOnlyTouchesHoldsOfTheCaller(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	f.reserve(t, raffleID, ids[0])
	_, err := f.svc.Reserve(ctx, domain.ReserveRequest{
		RaffleID:  raffleID.String(),
		TicketIDs: ticketdomain.IDStrings(ids[1:]),
		Buyer:     otherBuyerForm(),
	})
	require.NoError(t, err)

	unknown, err := f.svc.Release(ctx, domain.ReleaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Holder:    domain.Holder{Phone: "6680000000"},
	})
	require.NoError(t, err)
	assert.Empty(t, unknown.Released)

	own, err := f.svc.Release(ctx, domain.ReleaseRequest{
		TicketIDs: ticketdomain.IDStrings(ids),
		Holder:    domain.Holder{Phone: "668-765-4321"},
	})
	require.NoError(t, err)
	require.Len(t, own.Released, 1)
	assert.Equal(t, ids[1], own.Released[0].ID)
	assert.Equal(t, "reserved", dbtest.Status(t, f.db, ids[0]))
}

func TestReleaseDiscardsPromoterSales(t *testing.T) {
	releases := map[string]func(f fixture, ids []snowflake.ID) error{
		"client release": func(f fixture, ids []snowflake.ID) error {
			_, err := f.svc.Release(context.Background(), domain.ReleaseRequest{
				TicketIDs: ticketdomain.IDStrings(ids),
				Holder:    domain.Holder{Phone: buyerForm().Phone},
			})
			return err
		},
		"failed payment": func(f fixture, ids []snowflake.ID) error {
			_, err := f.svc.Release(context.Background(), domain.ReleaseRequest{
				TicketIDs:     ticketdomain.IDStrings(ids),
				ClearPromoter: true,
				Source:        SourceWebhook,
			})
			return err
		},
		"admin": func(f fixture, ids []snowflake.ID) error {
			_, err := f.svc.ForceRelease(context.Background(), ticketdomain.IDStrings(ids))
			return err
		},
		"sweep": func(f fixture, ids []snowflake.ID) error {
			_, err := f.svc.ReleaseExpired(context.Background(), start.Add(180*time.Minute))
			return err
		},
	}

	for name, release := range releases {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 1)
			f.seedPromoter(t, "PESCA10", true)

			_, err := f.svc.Reserve(ctx, domain.ReserveRequest{
				RaffleID:     raffleID.String(),
				TicketIDs:    ticketdomain.IDStrings(ids),
				Buyer:        buyerForm(),
				PromoterCode: "PESCA10",
			})
			require.NoError(t, err)
			require.Equal(t, int64(1), dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales`))

			require.NoError(t, release(f, ids))
			assert.Equal(t, "available", dbtest.Status(t, f.db, ids[0]))
			assert.Zero(t, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales`))

			f.clock.Set(start.Add(200 * time.Minute))
			_, err = f.svc.Reserve(ctx, domain.ReserveRequest{
				RaffleID:  raffleID.String(),
				TicketIDs: ticketdomain.IDStrings(ids),
				Buyer:     otherBuyerForm(),
			})
			require.NoError(t, err)
			res, err := f.svc.Purchase(ctx, domain.PurchaseRequest{
				TicketIDs:    ticketdomain.IDStrings(ids),
				Source:       SourceWebhook,
				Holder:       domain.Holder{Phone: otherBuyerForm().Phone},
				ConfirmSales: true,
			})
			require.NoError(t, err)
			require.Len(t, res.Purchased, 1)

			assert.Zero(t, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM promoter_sales`))
			assert.Zero(t, dbtest.Count(t, f.db,
				`SELECT COALESCE(SUM(tickets_sold), 0) FROM promoter_stats WHERE code = 'PESCA10'`))
		})
	}
}

func TestStatusRecomputesCountdown(t *testing.T) {
	f := setup(t)
	raffleID, ids := dbtest.SeedRaffle(t, f.db, f.node, 10000, 2)
	f.reserve(t, raffleID, ids[0])
	f.clock.Advance(30*time.Minute + 15*time.Second)

	holds, err := f.svc.Status(context.Background(), ticketdomain.IDStrings(ids))
	require.NoError(t, err)
	require.Len(t, holds, 2)

	byID := map[snowflake.ID]domain.Hold{}
	for _, hold := range holds {
		byID[hold.TicketID] = hold
	}
	held := byID[ids[0]]
	assert.Equal(t, int64(149*60+45), held.RemainingSeconds)
	assert.Equal(t, "149:45", held.Remaining)
	assert.False(t, held.Expired)

	free := byID[ids[1]]
	assert.Equal(t, ticketdomain.TicketStatusAvailable, free.Status)
	assert.Equal(t, "00:00", free.Remaining)
	assert.Nil(t, free.ExpiresAt)
}
