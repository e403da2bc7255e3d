package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status RaffleStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, raffle *Raffle) error
	Update(ctx context.Context, db *gorm.DB, raffle *Raffle) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status RaffleStatus, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Raffle, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Raffle, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Raffle, error)
	Stats(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Stats, error)
}
