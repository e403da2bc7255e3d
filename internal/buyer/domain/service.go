package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// Upsert validates the form and stores the buyer inside db, which may be a transaction.
	Upsert(ctx context.Context, db *gorm.DB, form Form) (Buyer, error)
	GetByID(ctx context.Context, id string) (Buyer, error)
	// GetByPhone matches on digits only, so formatting in phone is ignored.
	GetByPhone(ctx context.Context, phone string) (Buyer, error)
}

var (
	ErrInvalidForm = errors.New("invalid_buyer_form")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
