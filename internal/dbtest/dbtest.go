// Package dbtest opens in-memory SQLite databases carrying the storefront schema.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sorteos/internal/migration"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var counter atomic.Int64

// Open returns a fresh in-memory database with the SQLite schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", counter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := migration.ApplySQLite(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// Node returns a snowflake node for test id generation.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// Count returns the row count of query.
func Count(t testing.TB, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query: %v", err)
	}
	return count
}

// SeedRaffle inserts an active raffle priced at price centavos with n
// available tickets numbered from 1001 and returns their ids in order.
func SeedRaffle(t testing.TB, db *gorm.DB, node *snowflake.Node, price int64, n int) (snowflake.ID, []snowflake.ID) {
	t.Helper()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	raffleID := node.Generate()
	if err := db.Exec(
		`INSERT INTO raffles (id, slug, name, price, draw_date, status, total_tickets, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'active', ?, ?, ?)`,
		raffleID, "sorteo-"+raffleID.String(), "Sorteo "+raffleID.String(), price, now.AddDate(0, 3, 0), n, now, now,
	).Error; err != nil {
		t.Fatalf("seed raffle: %v", err)
	}

	ids := make([]snowflake.ID, 0, n)
	for i := 0; i < n; i++ {
		id := node.Generate()
		if err := db.Exec(
			`INSERT INTO tickets (id, raffle_id, number, status, created_at, updated_at) VALUES (?, ?, ?, 'available', ?, ?)`,
			id, raffleID, 1001+i, now, now,
		).Error; err != nil {
			t.Fatalf("seed ticket: %v", err)
		}
		ids = append(ids, id)
	}
	return raffleID, ids
}

// Status returns the stored status of a ticket.
func Status(t testing.TB, db *gorm.DB, ticketID snowflake.ID) string {
	t.Helper()
	var status string
	if err := db.Raw(`SELECT status FROM tickets WHERE id = ?`, ticketID).Scan(&status).Error; err != nil {
		t.Fatalf("ticket status: %v", err)
	}
	return status
}
