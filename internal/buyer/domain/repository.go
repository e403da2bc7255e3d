package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// UpsertByPhone inserts the buyer or refreshes the row sharing its phone.
	UpsertByPhone(ctx context.Context, db *gorm.DB, buyer *Buyer) error
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*Buyer, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Buyer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Buyer, error)
}
