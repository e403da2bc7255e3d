package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/ticket/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 500

const ticketColumns = `id, raffle_id, number, status, user_id, promoter_code, reserved_at, purchased_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(tickets, insertBatchSize).Error
}

func (r *repo) DeleteByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM tickets WHERE raffle_id = ?`, raffleID).Error
}

func (r *repo) ListByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID, filter domain.ListFilter) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	stmt := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("raffle_id = ?", raffleID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if err := stmt.Order("number asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) ListAdminByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID, filter domain.ListFilter) ([]*domain.AdminTicket, error) {
	query := `SELECT t.id, t.raffle_id, t.number, t.status, t.user_id, t.promoter_code,
		       t.reserved_at, t.purchased_at, t.created_at, t.updated_at,
		       u.first_name, u.last_name, u.phone, u.email, u.state
		FROM tickets t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.raffle_id = ?`
	args := []any{raffleID}
	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY t.number ASC`

	var tickets []*domain.AdminTicket
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) ListAvailableIDs(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM tickets WHERE raffle_id = ? AND status = ? ORDER BY number ASC`,
		raffleID,
		domain.TicketStatusAvailable,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tickets []*domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets WHERE id IN ? ORDER BY number ASC`,
		ids,
	).Scan(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, raffleID *snowflake.ID, number int) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number = ?`
	args := []any{number}
	if raffleID != nil {
		query += ` AND raffle_id = ?`
		args = append(args, *raffleID)
	}
	// Without a raffle the most recently created one wins.
	query += ` ORDER BY created_at DESC LIMIT 1`

	var ticket domain.Ticket
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&ticket).Error; err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) (domain.StatusCounts, error) {
	var rows []struct {
		Status domain.TicketStatus
		Count  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS count FROM tickets WHERE raffle_id = ? GROUP BY status`,
		raffleID,
	).Scan(&rows).Error
	if err != nil {
		return domain.StatusCounts{}, err
	}

	var counts domain.StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case domain.TicketStatusAvailable:
			counts.Available = row.Count
		case domain.TicketStatusReserved:
			counts.Reserved = row.Count
		case domain.TicketStatusPurchased:
			counts.Purchased = row.Count
		}
	}
	return counts, nil
}

func (r *repo) Reserve(ctx context.Context, db *gorm.DB, params domain.ReserveParams) (int64, error) {
	if len(params.IDs) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET status = ?, user_id = ?, promoter_code = ?, reserved_at = ?, purchased_at = NULL, updated_at = ?
		 WHERE status = ? AND id IN ?`,
		domain.TicketStatusReserved,
		params.UserID,
		params.PromoterCode,
		params.ReservedAt,
		params.ReservedAt,
		domain.TicketStatusAvailable,
		params.IDs,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Purchase(ctx context.Context, db *gorm.DB, params domain.PurchaseParams) (int64, error) {
	if len(params.IDs) == 0 {
		return 0, nil
	}
	where := `status = ? AND reserved_at > ? AND id IN ?`
	args := []interface{}{
		domain.TicketStatusPurchased,
		params.At,
		params.At,
		domain.TicketStatusReserved,
		params.ReservedAfter,
		params.IDs,
	}
	if params.HeldBy != nil {
		where += ` AND user_id = ?`
		args = append(args, *params.HeldBy)
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE tickets SET status = ?, purchased_at = ?, updated_at = ? WHERE `+where,
		args...,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, params domain.ReleaseParams) (int64, error) {
	if len(params.IDs) == 0 || len(params.From) == 0 {
		return 0, nil
	}
	set := `status = ?, user_id = NULL, reserved_at = NULL, purchased_at = NULL, updated_at = ?`
	if params.ClearPromoter {
		set += `, promoter_code = NULL`
	}
	where := `status IN ? AND id IN ?`
	args := []interface{}{
		domain.TicketStatusAvailable,
		params.At,
		params.From,
		params.IDs,
	}
	if params.HeldBy != nil {
		where += ` AND user_id = ?`
		args = append(args, *params.HeldBy)
	}
	result := db.WithContext(ctx).Exec(`UPDATE tickets SET `+set+` WHERE `+where, args...)
	return result.RowsAffected, result.Error
}

func (r *repo) ListExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	var tickets []*domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE status = ? AND reserved_at <= ?
		 ORDER BY reserved_at ASC LIMIT ?`,
		domain.TicketStatusReserved,
		cutoff,
		limit,
	).Scan(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) ReleaseExpired(ctx context.Context, db *gorm.DB, ids []snowflake.ID, cutoff, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET status = ?, user_id = NULL, reserved_at = NULL, updated_at = ?
		 WHERE status = ? AND reserved_at <= ? AND id IN ?`,
		domain.TicketStatusAvailable,
		at,
		domain.TicketStatusReserved,
		cutoff,
		ids,
	)
	return result.RowsAffected, result.Error
}
