package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRaffle     = "raffle"
	ObjectTicket     = "ticket"
	ObjectPromoter   = "promoter"
	ObjectPaymentLog = "payment_log"
	ObjectAdminUser  = "admin_user"
	ObjectAuditLog   = "audit_log"
)

const (
	ActionRaffleView   = "raffle.view"
	ActionRaffleCreate = "raffle.create"
	ActionRaffleUpdate = "raffle.update"
	ActionRaffleDelete = "raffle.delete"

	ActionTicketView     = "ticket.view"
	ActionTicketPurchase = "ticket.purchase"
	ActionTicketRelease  = "ticket.release"
	ActionTicketExport   = "ticket.export"

	ActionPromoterView   = "promoter.view"
	ActionPromoterManage = "promoter.manage"

	ActionPaymentLogView = "payment_log.view"

	ActionAdminUserCreate = "admin_user.create"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role permissions.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if !strings.HasPrefix(actor, "user:") || len(actor) == len("user:") {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	if err := s.ensureGrouping(actor, "role:"+role); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per actor, matching the role
// carried by the current session.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Staff can work the sales desk but not change raffles or promoters.
		{"role:staff", ObjectRaffle, ActionRaffleView},
		{"role:staff", ObjectTicket, ActionTicketView},
		{"role:staff", ObjectTicket, ActionTicketPurchase},
		{"role:staff", ObjectTicket, ActionTicketRelease},
		{"role:staff", ObjectPromoter, ActionPromoterView},
		{"role:staff", ObjectPaymentLog, ActionPaymentLogView},

		{"role:admin", ObjectRaffle, "*"},
		{"role:admin", ObjectTicket, "*"},
		{"role:admin", ObjectPromoter, "*"},
		{"role:admin", ObjectPaymentLog, "*"},
		{"role:admin", ObjectAdminUser, "*"},
		{"role:admin", ObjectAuditLog, "*"},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
