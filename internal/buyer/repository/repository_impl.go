package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/buyer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertByPhone(ctx context.Context, db *gorm.DB, buyer *domain.Buyer) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO users (id, first_name, last_name, phone, state, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (phone) DO UPDATE SET
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   state = excluded.state,
		   email = excluded.email,
		   updated_at = excluded.updated_at`,
		buyer.ID,
		buyer.FirstName,
		buyer.LastName,
		buyer.Phone,
		buyer.State,
		buyer.Email,
		buyer.CreatedAt,
		buyer.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	stored, err := r.FindByPhone(ctx, db, buyer.Phone)
	if err != nil {
		return err
	}
	if stored != nil {
		*buyer = *stored
	}
	return nil
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Buyer, error) {
	var buyer domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, first_name, last_name, phone, state, email, created_at, updated_at
		 FROM users WHERE phone = ?`,
		phone,
	).Scan(&buyer).Error
	if err != nil {
		return nil, err
	}
	if buyer.ID == 0 {
		return nil, nil
	}
	return &buyer, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Buyer, error) {
	var buyer domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, first_name, last_name, phone, state, email, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&buyer).Error
	if err != nil {
		return nil, err
	}
	if buyer.ID == 0 {
		return nil, nil
	}
	return &buyer, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Buyer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var buyers []*domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, first_name, last_name, phone, state, email, created_at, updated_at
		 FROM users WHERE id IN ?`,
		ids,
	).Scan(&buyers).Error
	if err != nil {
		return nil, err
	}
	return buyers, nil
}
