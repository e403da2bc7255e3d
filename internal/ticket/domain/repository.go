package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status TicketStatus
}

type StatusCounts struct {
	Total     int64
	Available int64
	Reserved  int64
	Purchased int64
}

// ReserveParams describes one conditional available -> reserved batch.
type ReserveParams struct {
	IDs          []snowflake.ID
	UserID       snowflake.ID
	PromoterCode *string
	ReservedAt   time.Time
}

// PurchaseParams describes one conditional reserved -> purchased batch.
// Holds placed at or before ReservedAfter are expired and never purchased.
type PurchaseParams struct {
	IDs           []snowflake.ID
	HeldBy        *snowflake.ID
	ReservedAfter time.Time
	At            time.Time
}

// ReleaseParams describes one conditional return to available. A nil
// HeldBy releases regardless of holder.
type ReleaseParams struct {
	IDs           []snowflake.ID
	From          []TicketStatus
	HeldBy        *snowflake.ID
	ClearPromoter bool
	At            time.Time
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, tickets []Ticket) error
	DeleteByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) error
	ListByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID, filter ListFilter) ([]*Ticket, error)
	ListAdminByRaffle(ctx context.Context, db *gorm.DB, raffleID snowflake.ID, filter ListFilter) ([]*AdminTicket, error)
	ListAvailableIDs(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) ([]snowflake.ID, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Ticket, error)
	FindByNumber(ctx context.Context, db *gorm.DB, raffleID *snowflake.ID, number int) (*Ticket, error)
	CountByStatus(ctx context.Context, db *gorm.DB, raffleID snowflake.ID) (StatusCounts, error)

	// Reserve moves available tickets to reserved and returns affected rows.
	Reserve(ctx context.Context, db *gorm.DB, params ReserveParams) (int64, error)
	// Purchase moves reserved tickets to purchased and returns affected rows.
	Purchase(ctx context.Context, db *gorm.DB, params PurchaseParams) (int64, error)
	// Release returns tickets in one of the given states to available.
	Release(ctx context.Context, db *gorm.DB, params ReleaseParams) (int64, error)
	// ListExpired returns reserved tickets held since cutoff or earlier.
	ListExpired(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*Ticket, error)
	// ReleaseExpired releases the given ids only if they are still reserved at or before cutoff.
	ReleaseExpired(ctx context.Context, db *gorm.DB, ids []snowflake.ID, cutoff, at time.Time) (int64, error)
}
