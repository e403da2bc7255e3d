package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/promoter/domain"
	"gorm.io/gorm"
)

const statsColumns = `promoter_id, name, code, active, created_at, total_sales, tickets_sold, confirmed_sales`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, promoter *domain.Promoter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO promoters (id, name, code, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		promoter.ID,
		promoter.Name,
		promoter.Code,
		promoter.Active,
		promoter.CreatedAt,
		promoter.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, promoter *domain.Promoter) error {
	return db.WithContext(ctx).Exec(
		`UPDATE promoters SET name = ?, code = ?, active = ?, updated_at = ? WHERE id = ?`,
		promoter.Name,
		promoter.Code,
		promoter.Active,
		promoter.UpdatedAt,
		promoter.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM promoter_sales WHERE promoter_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM promoters WHERE id = ?`, id).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Promoter, error) {
	var promoter domain.Promoter
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, active, created_at, updated_at FROM promoters WHERE id = ?`,
		id,
	).Scan(&promoter).Error
	if err != nil {
		return nil, err
	}
	if promoter.ID == 0 {
		return nil, nil
	}
	return &promoter, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Promoter, error) {
	var promoter domain.Promoter
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, active, created_at, updated_at FROM promoters WHERE code = ?`,
		code,
	).Scan(&promoter).Error
	if err != nil {
		return nil, err
	}
	if promoter.ID == 0 {
		return nil, nil
	}
	return &promoter, nil
}

func (r *repo) ListStats(ctx context.Context, db *gorm.DB) ([]*domain.StatsRow, error) {
	var rows []*domain.StatsRow
	err := db.WithContext(ctx).Raw(
		`SELECT ` + statsColumns + ` FROM promoter_stats ORDER BY total_sales DESC, created_at ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindStats(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.StatsRow, error) {
	var row domain.StatsRow
	err := db.WithContext(ctx).Raw(
		`SELECT `+statsColumns+` FROM promoter_stats WHERE promoter_id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.PromoterID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertSale(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO promoter_sales (id, promoter_id, ticket_id, confirmed, confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (ticket_id) DO UPDATE SET
		   promoter_id = excluded.promoter_id,
		   confirmed = (promoter_sales.confirmed OR excluded.confirmed),
		   confirmed_at = COALESCE(promoter_sales.confirmed_at, excluded.confirmed_at),
		   updated_at = excluded.updated_at`,
		sale.ID,
		sale.PromoterID,
		sale.TicketID,
		sale.Confirmed,
		sale.ConfirmedAt,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
}

func (r *repo) FindSaleByTicket(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, promoter_id, ticket_id, confirmed, confirmed_at, created_at, updated_at
		 FROM promoter_sales WHERE ticket_id = ?`,
		ticketID,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) DeleteSalesByTickets(ctx context.Context, db *gorm.DB, ticketIDs []snowflake.ID) (int64, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM promoter_sales WHERE ticket_id IN ?`, ticketIDs)
	return result.RowsAffected, result.Error
}
