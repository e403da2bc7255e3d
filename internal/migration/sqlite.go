package migration

import (
	"fmt"

	"gorm.io/gorm"
)

// SQLiteSchema mirrors the PostgreSQL migrations for single-node and test
// databases.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS raffles (
		id INTEGER PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'MXN',
		draw_date DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		total_tickets INTEGER NOT NULL,
		prize_items TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		state TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY,
		raffle_id INTEGER NOT NULL REFERENCES raffles(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		user_id INTEGER REFERENCES users(id),
		promoter_code TEXT,
		reserved_at DATETIME,
		purchased_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (raffle_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS promoters (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS promoter_sales (
		id INTEGER PRIMARY KEY,
		promoter_id INTEGER NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
		ticket_id INTEGER NOT NULL UNIQUE,
		confirmed BOOLEAN NOT NULL DEFAULT 0,
		confirmed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE VIEW IF NOT EXISTS promoter_stats AS
		SELECT p.id AS promoter_id,
		       p.name AS name,
		       p.code AS code,
		       p.active AS active,
		       p.created_at AS created_at,
		       COUNT(s.id) AS total_sales,
		       COUNT(CASE WHEN t.status = 'purchased' THEN 1 END) AS tickets_sold,
		       COUNT(CASE WHEN s.confirmed THEN 1 END) AS confirmed_sales
		FROM promoters p
		LEFT JOIN promoter_sales s ON s.promoter_id = p.id
		LEFT JOIN tickets t ON t.id = s.ticket_id
		GROUP BY p.id, p.name, p.code, p.active, p.created_at`,
	`CREATE TABLE IF NOT EXISTS payment_logs (
		id INTEGER PRIMARY KEY,
		provider TEXT NOT NULL DEFAULT 'mercadopago',
		preference_id TEXT,
		payment_id TEXT UNIQUE,
		external_reference TEXT,
		status TEXT NOT NULL,
		status_detail TEXT,
		amount INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '{}',
		webhook_data TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		ip_address TEXT,
		user_agent TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// ApplySQLite creates any missing tables of SQLiteSchema.
func ApplySQLite(db *gorm.DB) error {
	for _, stmt := range SQLiteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
