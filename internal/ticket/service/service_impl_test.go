package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerrepository "github.com/smallbiznis/sorteos/internal/buyer/repository"
	"github.com/smallbiznis/sorteos/internal/dbtest"
	rafflerepository "github.com/smallbiznis/sorteos/internal/raffle/repository"
	"github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/smallbiznis/sorteos/internal/ticket/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTicketService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := dbtest.Open(t)
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repository.Provide(),
		RaffleRepo: rafflerepository.Provide(),
		BuyerRepo:  buyerrepository.Provide(),
	}).(*Service)
	return svc, db, dbtest.Node(t)
}

func reserveForBuyer(t *testing.T, db *gorm.DB, node *snowflake.Node, ticketID snowflake.ID, status domain.TicketStatus) {
	t.Helper()
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	buyerID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, first_name, last_name, phone, email, created_at, updated_at)
		 VALUES (?, 'Ana', 'López', ?, 'ana@example.com', ?, ?)`,
		buyerID, "66812345"+buyerID.String()[len(buyerID.String())-2:], now, now,
	).Error)
	require.NoError(t, db.Exec(
		`UPDATE tickets SET status = ?, user_id = ?, reserved_at = ?, purchased_at = ? WHERE id = ?`,
		status, buyerID, now, now, ticketID,
	).Error)
}

func TestListByRaffleOrdersByNumber(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, ids := dbtest.SeedRaffle(t, db, node, 10000, 5)
	reserveForBuyer(t, db, node, ids[2], domain.TicketStatusReserved)

	tickets, err := svc.ListByRaffle(context.Background(), domain.ListTicketsRequest{RaffleID: raffleID.String()})
	require.NoError(t, err)
	require.Len(t, tickets, 5)
	for i, ticket := range tickets {
		assert.Equal(t, 1001+i, ticket.Number)
	}

	reserved, err := svc.ListByRaffle(context.Background(), domain.ListTicketsRequest{RaffleID: raffleID.String(), Status: "RESERVED"})
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, 1003, reserved[0].Number)

	_, err = svc.ListByRaffle(context.Background(), domain.ListTicketsRequest{RaffleID: raffleID.String(), Status: "sold"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.ListByRaffle(context.Background(), domain.ListTicketsRequest{RaffleID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidRaffle)
}

func TestListAdminJoinsBuyer(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, ids := dbtest.SeedRaffle(t, db, node, 10000, 2)
	reserveForBuyer(t, db, node, ids[0], domain.TicketStatusReserved)

	tickets, err := svc.ListAdmin(context.Background(), domain.ListTicketsRequest{RaffleID: raffleID.String()})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.NotNil(t, tickets[0].BuyerFirstName)
	assert.Equal(t, "Ana", *tickets[0].BuyerFirstName)
	assert.Nil(t, tickets[1].BuyerFirstName)
}

func TestRandomPickSamplesAvailableOnly(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, ids := dbtest.SeedRaffle(t, db, node, 10000, 6)
	reserveForBuyer(t, db, node, ids[0], domain.TicketStatusReserved)

	res, err := svc.RandomPick(context.Background(), domain.RandomPickRequest{
		RaffleID: raffleID.String(),
		Count:    10,
		Exclude:  []string{ids[1].String()},
	})
	require.NoError(t, err)
	assert.False(t, res.NoTicketsAvailable)
	require.Len(t, res.Tickets, 4)

	seen := map[snowflake.ID]bool{}
	for _, ticket := range res.Tickets {
		assert.Equal(t, domain.TicketStatusAvailable, ticket.Status)
		assert.NotEqual(t, ids[1], ticket.ID)
		assert.False(t, seen[ticket.ID], "picked twice")
		seen[ticket.ID] = true
	}
}

func TestRandomPickClampsCount(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, _ := dbtest.SeedRaffle(t, db, node, 10000, 3)
	svc.shuffle = func(int, func(i, j int)) {}

	res, err := svc.RandomPick(context.Background(), domain.RandomPickRequest{RaffleID: raffleID.String(), Count: 0})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, 1001, res.Tickets[0].Number)
}

func TestRandomPickReportsNoTickets(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, ids := dbtest.SeedRaffle(t, db, node, 10000, 1)
	reserveForBuyer(t, db, node, ids[0], domain.TicketStatusPurchased)

	res, err := svc.RandomPick(context.Background(), domain.RandomPickRequest{RaffleID: raffleID.String(), Count: 5})
	require.NoError(t, err)
	assert.True(t, res.NoTicketsAvailable)
	assert.Empty(t, res.Tickets)
}

func TestVerifyMasksBuyerPhone(t *testing.T) {
	svc, db, node := setupTicketService(t)
	raffleID, ids := dbtest.SeedRaffle(t, db, node, 10000, 3)
	reserveForBuyer(t, db, node, ids[1], domain.TicketStatusPurchased)

	out, err := svc.Verify(context.Background(), domain.VerifyRequest{Number: 1002, RaffleID: raffleID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPurchased, out.Status)
	assert.Equal(t, "Ana López", out.BuyerName)
	assert.NotContains(t, out.BuyerPhone, "668123")

	free, err := svc.Verify(context.Background(), domain.VerifyRequest{Number: 1001})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAvailable, free.Status)
	assert.Empty(t, free.BuyerName)

	_, err = svc.Verify(context.Background(), domain.VerifyRequest{Number: 999})
	assert.ErrorIs(t, err, domain.ErrInvalidNumber)

	_, err = svc.Verify(context.Background(), domain.VerifyRequest{Number: 1500, RaffleID: raffleID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByIDsRequiresAll(t *testing.T) {
	svc, db, node := setupTicketService(t)
	_, ids := dbtest.SeedRaffle(t, db, node, 10000, 2)

	tickets, err := svc.GetByIDs(context.Background(), []string{ids[1].String(), ids[0].String()})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	_, err = svc.GetByIDs(context.Background(), []string{ids[0].String(), node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
