package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/sorteos/internal/audit/domain"
	"gorm.io/gorm"
)

const auditColumns = `id, actor_type, actor_id, action, target_type, target_id,
	metadata, ip_address, user_agent, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	where, args := listConditions(filter)
	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}

	var logs []*domain.AuditLog
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// listConditions builds the WHERE terms of List. An action ending in "."
// matches the whole family, so "ticket." covers ticket.release and
// ticket.purchase.
func listConditions(filter domain.ListFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(term string, values ...interface{}) {
		where = append(where, term)
		args = append(args, values...)
	}

	if action := strings.TrimSpace(filter.Action); action != "" {
		if strings.HasSuffix(action, ".") {
			add(`action LIKE ?`, action+"%")
		} else {
			add(`action = ?`, action)
		}
	}
	if v := strings.TrimSpace(filter.TargetType); v != "" {
		add(`target_type = ?`, v)
	}
	if v := strings.TrimSpace(filter.TargetID); v != "" {
		add(`target_id = ?`, v)
	}
	if v := strings.TrimSpace(filter.ActorType); v != "" {
		add(`actor_type = ?`, v)
	}
	if v := strings.TrimSpace(filter.ActorID); v != "" {
		add(`actor_id = ?`, v)
	}
	if filter.StartAt != nil {
		add(`created_at >= ?`, filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		add(`created_at <= ?`, filter.EndAt.UTC())
	}
	if c := filter.Cursor; c != nil {
		add(`(created_at < ? OR (created_at = ? AND id < ?))`, c.CreatedAt, c.CreatedAt, c.ID)
	}
	return where, args
}
