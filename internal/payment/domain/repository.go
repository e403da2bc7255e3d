package domain

import (
	"context"

	"github.com/smallbiznis/sorteos/pkg/db/option"
	"gorm.io/gorm"
)

type LogFilter struct {
	Status string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *PaymentLog) error
	// UpsertByPaymentID inserts or refreshes the log of a provider payment.
	UpsertByPaymentID(ctx context.Context, db *gorm.DB, log *PaymentLog) error
	FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*PaymentLog, error)
	FindByExternalReference(ctx context.Context, db *gorm.DB, ref string) (*PaymentLog, error)
	FindByPreferenceID(ctx context.Context, db *gorm.DB, preferenceID string) (*PaymentLog, error)
	List(ctx context.Context, db *gorm.DB, filter LogFilter, opts ...option.QueryOption) ([]*PaymentLog, error)
}
