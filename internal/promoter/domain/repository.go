package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promoter *Promoter) error
	Update(ctx context.Context, db *gorm.DB, promoter *Promoter) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Promoter, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Promoter, error)
	ListStats(ctx context.Context, db *gorm.DB) ([]*StatsRow, error)
	FindStats(ctx context.Context, db *gorm.DB, id snowflake.ID) (*StatsRow, error)

	// UpsertSale records the sale keyed by ticket; confirmation is sticky.
	UpsertSale(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindSaleByTicket(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) (*Sale, error)
	DeleteSalesByTickets(ctx context.Context, db *gorm.DB, ticketIDs []snowflake.ID) (int64, error)
}
