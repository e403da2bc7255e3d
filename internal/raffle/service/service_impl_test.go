package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/dbtest"
	"github.com/smallbiznis/sorteos/internal/raffle/domain"
	"github.com/smallbiznis/sorteos/internal/raffle/repository"
	ticketrepository "github.com/smallbiznis/sorteos/internal/ticket/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRaffleService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      dbtest.Node(t),
		Clock:      clk,
		Config:     config.Config{Raffle: config.RaffleConfig{Currency: "mxn"}},
		Repo:       repository.Provide(),
		TicketRepo: ticketrepository.Provide(),
	})
	return svc, db, clk
}

func createRequest(name string, total int) domain.CreateRaffleRequest {
	return domain.CreateRaffleRequest{
		Name:         name,
		Description:  "Lancha con motor",
		Price:        15000,
		DrawDate:     time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
		TotalTickets: total,
		PrizeItems:   []string{"Lancha", " ", "Motor 40HP"},
	}
}

func TestCreateGeneratesTickets(t *testing.T) {
	svc, db, _ := setupRaffleService(t)
	ctx := context.Background()

	raffle, err := svc.Create(ctx, createRequest("Gran Sorteo Pesca", 25))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if raffle.Slug != "gran-sorteo-pesca" {
		t.Fatalf("expected slug gran-sorteo-pesca, got %q", raffle.Slug)
	}
	if raffle.Status != domain.RaffleStatusDraft || raffle.Currency != "MXN" {
		t.Fatalf("unexpected defaults: %+v", raffle)
	}
	if len(raffle.PrizeItems) != 2 {
		t.Fatalf("expected blank prize items dropped, got %v", raffle.PrizeItems)
	}

	if got := dbtest.Count(t, db, `SELECT COUNT(*) FROM tickets WHERE raffle_id = ?`, raffle.ID); got != 25 {
		t.Fatalf("expected 25 tickets, got %d", got)
	}
	if got := dbtest.Count(t, db, `SELECT MIN(number) FROM tickets WHERE raffle_id = ?`, raffle.ID); got != 1001 {
		t.Fatalf("expected first number 1001, got %d", got)
	}
	if got := dbtest.Count(t, db, `SELECT MAX(number) FROM tickets WHERE raffle_id = ?`, raffle.ID); got != 1025 {
		t.Fatalf("expected last number 1025, got %d", got)
	}
}

func TestCreateDeduplicatesSlug(t *testing.T) {
	svc, _, _ := setupRaffleService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, createRequest("Sorteo Lancha", 1)); err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, createRequest("Sorteo Lancha", 1))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Slug != "sorteo-lancha-2" {
		t.Fatalf("expected sorteo-lancha-2, got %q", second.Slug)
	}

	found, err := svc.GetBySlug(ctx, "SORTEO-LANCHA-2")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if found.ID != second.ID {
		t.Fatalf("expected raffle %s, got %s", second.ID, found.ID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := setupRaffleService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRaffleRequest
		want error
	}{
		{"name", domain.CreateRaffleRequest{Price: 1, TotalTickets: 1, DrawDate: time.Now()}, domain.ErrInvalidName},
		{"price", domain.CreateRaffleRequest{Name: "x", TotalTickets: 1, DrawDate: time.Now()}, domain.ErrInvalidPrice},
		{"total", domain.CreateRaffleRequest{Name: "x", Price: 1, DrawDate: time.Now()}, domain.ErrInvalidTotalTickets},
		{"draw_date", domain.CreateRaffleRequest{Name: "x", Price: 1, TotalTickets: 1}, domain.ErrInvalidDrawDate},
		{"status", domain.CreateRaffleRequest{Name: "x", Price: 1, TotalTickets: 1, DrawDate: time.Now(), Status: "completed"}, domain.ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, _, _ := setupRaffleService(t)
	ctx := context.Background()

	raffle, err := svc.Create(ctx, createRequest("Transiciones", 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := raffle.ID.String()

	if _, err := svc.SetStatus(ctx, domain.SetStatusRequest{ID: id, Status: "completed"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected draft -> completed rejected, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, domain.SetStatusRequest{ID: id, Status: "active"}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != raffle.ID {
		t.Fatalf("expected raffle listed as active, got %v", active)
	}

	if _, err := svc.SetStatus(ctx, domain.SetStatusRequest{ID: id, Status: "completed"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	name := "Nuevo nombre"
	if _, err := svc.Update(ctx, domain.UpdateRaffleRequest{ID: id, Name: &name}); !errors.Is(err, domain.ErrRaffleCompleted) {
		t.Fatalf("expected completed raffle immutable, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, domain.SetStatusRequest{ID: id, Status: "active"}); !errors.Is(err, domain.ErrRaffleCompleted) {
		t.Fatalf("expected completed raffle status locked, got %v", err)
	}
}

func TestUpdateAndStats(t *testing.T) {
	svc, db, clk := setupRaffleService(t)
	ctx := context.Background()

	raffle, err := svc.Create(ctx, createRequest("Estadisticas", 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(time.Hour)
	price := int64(20000)
	updated, err := svc.Update(ctx, domain.UpdateRaffleRequest{ID: raffle.ID.String(), Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != price || !updated.UpdatedAt.After(raffle.UpdatedAt) {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := db.Exec(`UPDATE tickets SET status = 'purchased' WHERE raffle_id = ? AND number IN (1001, 1002)`, raffle.ID).Error; err != nil {
		t.Fatalf("seed purchased: %v", err)
	}
	if err := db.Exec(`UPDATE tickets SET status = 'reserved' WHERE raffle_id = ? AND number = 1003`, raffle.ID).Error; err != nil {
		t.Fatalf("seed reserved: %v", err)
	}

	stats, err := svc.Stats(ctx, raffle.ID.String())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.Purchased != 2 || stats.Reserved != 1 || stats.Available != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.TotalSales != 40000 {
		t.Fatalf("expected total sales 40000, got %d", stats.TotalSales)
	}
}

func TestDeleteCascadesTickets(t *testing.T) {
	svc, db, _ := setupRaffleService(t)
	ctx := context.Background()

	raffle, err := svc.Create(ctx, createRequest("Borrar", 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, raffle.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := dbtest.Count(t, db, `SELECT COUNT(*) FROM tickets WHERE raffle_id = ?`, raffle.ID); got != 0 {
		t.Fatalf("expected tickets removed, got %d", got)
	}
	if _, err := svc.GetByID(ctx, raffle.ID.String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
