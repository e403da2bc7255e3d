package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/raffle/domain"
	"gorm.io/gorm"
)

const raffleColumns = `id, slug, name, description, image_url, video_url, price, currency, draw_date, status, total_tickets, prize_items, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, raffle *domain.Raffle) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO raffles (`+raffleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		raffle.ID,
		raffle.Slug,
		raffle.Name,
		raffle.Description,
		raffle.ImageURL,
		raffle.VideoURL,
		raffle.Price,
		raffle.Currency,
		raffle.DrawDate,
		raffle.Status,
		raffle.TotalTickets,
		raffle.PrizeItems,
		raffle.CreatedAt,
		raffle.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, raffle *domain.Raffle) error {
	return db.WithContext(ctx).Exec(
		`UPDATE raffles
		 SET name = ?, description = ?, image_url = ?, video_url = ?, price = ?, draw_date = ?, prize_items = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		raffle.Name,
		raffle.Description,
		raffle.ImageURL,
		raffle.VideoURL,
		raffle.Price,
		raffle.DrawDate,
		raffle.PrizeItems,
		raffle.UpdatedAt,
		raffle.ID,
		domain.RaffleStatusCompleted,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.RaffleStatus, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE raffles SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`DELETE FROM promoter_sales WHERE ticket_id IN (SELECT id FROM tickets WHERE raffle_id = ?)`,
			id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM tickets WHERE raffle_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM raffles WHERE id = ?`, id).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Raffle, error) {
	var raffle domain.Raffle
	err := db.WithContext(ctx).Raw(
		`SELECT `+raffleColumns+` FROM raffles WHERE id = ?`,
		id,
	).Scan(&raffle).Error
	if err != nil {
		return nil, err
	}
	if raffle.ID == 0 {
		return nil, nil
	}
	return &raffle, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Raffle, error) {
	var raffle domain.Raffle
	err := db.WithContext(ctx).Raw(
		`SELECT `+raffleColumns+` FROM raffles WHERE slug = ?`,
		slug,
	).Scan(&raffle).Error
	if err != nil {
		return nil, err
	}
	if raffle.ID == 0 {
		return nil, nil
	}
	return &raffle, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM raffles WHERE slug = ?`, slug).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles`
	args := []any{}
	order := ` ORDER BY created_at DESC, id DESC`
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
		if filter.Status == domain.RaffleStatusActive {
			order = ` ORDER BY draw_date ASC, id ASC`
		}
	}

	var raffles []*domain.Raffle
	if err := db.WithContext(ctx).Raw(query+order, args...).Scan(&raffles).Error; err != nil {
		return nil, err
	}
	return raffles, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Stats, error) {
	var stats domain.Stats
	err := db.WithContext(ctx).Raw(
		`SELECT r.id AS raffle_id,
		        COUNT(t.id) AS total,
		        COUNT(CASE WHEN t.status = 'available' THEN 1 END) AS available,
		        COUNT(CASE WHEN t.status = 'reserved' THEN 1 END) AS reserved,
		        COUNT(CASE WHEN t.status = 'purchased' THEN 1 END) AS purchased,
		        COUNT(CASE WHEN t.status = 'purchased' THEN 1 END) * r.price AS total_sales
		 FROM raffles r
		 LEFT JOIN tickets t ON t.raffle_id = r.id
		 WHERE r.id = ?
		 GROUP BY r.id, r.price`,
		id,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if stats.RaffleID == 0 {
		return nil, nil
	}
	return &stats, nil
}
