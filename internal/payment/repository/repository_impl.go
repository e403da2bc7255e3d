package repository

import (
	"context"

	"github.com/smallbiznis/sorteos/internal/payment/domain"
	"github.com/smallbiznis/sorteos/pkg/db/option"
	"gorm.io/gorm"
)

const logColumns = `id, provider, preference_id, payment_id, external_reference, status, status_detail,
	amount, metadata, webhook_data, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.PaymentLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_logs (`+logColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.Provider,
		log.PreferenceID,
		log.PaymentID,
		log.ExternalReference,
		log.Status,
		log.StatusDetail,
		log.Amount,
		jsonOrEmpty(log.Metadata),
		jsonOrEmpty(log.WebhookData),
		log.CreatedAt,
		log.UpdatedAt,
	).Error
}

func (r *repo) UpsertByPaymentID(ctx context.Context, db *gorm.DB, log *domain.PaymentLog) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO payment_logs (`+logColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (payment_id) DO UPDATE SET
		   preference_id = excluded.preference_id,
		   external_reference = excluded.external_reference,
		   status = excluded.status,
		   status_detail = excluded.status_detail,
		   amount = excluded.amount,
		   metadata = excluded.metadata,
		   webhook_data = excluded.webhook_data,
		   updated_at = excluded.updated_at`,
		log.ID,
		log.Provider,
		log.PreferenceID,
		log.PaymentID,
		log.ExternalReference,
		log.Status,
		log.StatusDetail,
		log.Amount,
		jsonOrEmpty(log.Metadata),
		jsonOrEmpty(log.WebhookData),
		log.CreatedAt,
		log.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	if log.PaymentID == nil {
		return nil
	}

	stored, err := r.FindByPaymentID(ctx, db, *log.PaymentID)
	if err != nil {
		return err
	}
	if stored != nil {
		*log = *stored
	}
	return nil
}

func (r *repo) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*domain.PaymentLog, error) {
	return r.findOne(ctx, db, `payment_id = ?`, paymentID)
}

func (r *repo) FindByExternalReference(ctx context.Context, db *gorm.DB, ref string) (*domain.PaymentLog, error) {
	return r.findOne(ctx, db, `external_reference = ?`, ref)
}

func (r *repo) FindByPreferenceID(ctx context.Context, db *gorm.DB, preferenceID string) (*domain.PaymentLog, error) {
	return r.findOne(ctx, db, `preference_id = ?`, preferenceID)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.LogFilter, opts ...option.QueryOption) ([]*domain.PaymentLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.PaymentLog{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var logs []*domain.PaymentLog
	if err := stmt.Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// findOne prefers the most recently updated row, so a settled payment wins
// over the preference row it came from.
func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.PaymentLog, error) {
	var item domain.PaymentLog
	err := db.WithContext(ctx).Raw(
		`SELECT `+logColumns+` FROM payment_logs WHERE `+where+`
		 ORDER BY updated_at DESC, id DESC LIMIT 1`,
		arg,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func jsonOrEmpty(value []byte) string {
	if len(value) == 0 {
		return "{}"
	}
	return string(value)
}
