package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/observability/metrics"
	"github.com/smallbiznis/sorteos/internal/payment/adapters"
	"github.com/smallbiznis/sorteos/internal/payment/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/smallbiznis/sorteos/pkg/db/option"
	"github.com/smallbiznis/sorteos/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	preferenceTTL        = 3 * time.Hour
	defaultInstallments  = 12
	defaultStatementDesc = "SORTEOS TERRAPESCA"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Gateways   *adapters.Registry
	Repo       domain.Repository
	TicketRepo ticketdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.PaymentConfig
	baseURL    string
	gateways   *adapters.Registry
	repo       domain.Repository
	ticketRepo ticketdomain.Repository
	metrics    *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Config.Payment,
		baseURL:    strings.TrimRight(p.Config.PublicBaseURL, "/"),
		gateways:   p.Gateways,
		repo:       p.Repo,
		ticketRepo: p.TicketRepo,
		metrics:    p.Metrics,
	}
}

// CreatePreference validates the reserved tickets, opens a hosted checkout and
// records it in the payment log with status created.
func (s *Service) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (domain.Preference, error) {
	if len(req.Items) == 0 {
		return domain.Preference{}, preferenceErr("No items to charge", 0, domain.ErrInvalidItems)
	}

	ids, err := ticketdomain.ParseIDs(req.Metadata.TicketIDs)
	if err != nil {
		return domain.Preference{}, preferenceErr("Invalid ticket selection", 0, err)
	}
	tickets, err := s.ticketRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return domain.Preference{}, err
	}
	if len(tickets) != len(ids) {
		return domain.Preference{}, preferenceErr("Some tickets not found", 0, domain.ErrTicketsNotFound)
	}
	holder := strings.TrimSpace(string(req.Metadata.UserID))
	var notReserved []int
	for _, ticket := range tickets {
		if ticket.Status != ticketdomain.TicketStatusReserved || ticket.UserID == nil {
			notReserved = append(notReserved, ticket.Number)
			continue
		}
		if holder == "" {
			holder = ticket.UserID.String()
		}
		if ticket.UserID.String() != holder {
			notReserved = append(notReserved, ticket.Number)
		}
	}
	if len(notReserved) > 0 {
		sort.Ints(notReserved)
		return domain.Preference{}, preferenceErr(
			"Tickets not properly reserved: "+joinInts(notReserved),
			0,
			domain.ErrTicketsNotReserved,
		)
	}

	phone := buyerdomain.DigitsOnly(req.Payer.Phone.Number)
	if len(phone) < buyerdomain.PhoneDigits {
		return domain.Preference{}, preferenceErr("Invalid phone number format", 0, domain.ErrInvalidPayer)
	}
	req.Payer.Phone = domain.Phone{AreaCode: "52", Number: phone}
	req.Metadata.UserID = domain.FlexString(holder)

	gateway, err := s.gateways.Gateway(domain.ProviderMercadoPago)
	if err != nil {
		return domain.Preference{}, err
	}

	now := s.clock.Now().UTC()
	checkout := domain.CheckoutRequest{
		PreferenceRequest: req,
		BackURLs: domain.BackURLs{
			Success: s.baseURL + "/payment/success",
			Failure: s.baseURL + "/payment/failure",
			Pending: s.baseURL + "/payment/pending",
		},
		NotificationURL:     s.cfg.NotificationURL,
		StatementDescriptor: nonEmpty(s.cfg.StatementDescriptor, defaultStatementDesc),
		Installments:        defaultInstallments,
		ExpiresFrom:         now,
		ExpiresTo:           now.Add(preferenceTTL),
		IdempotencyKey:      req.ExternalReference + "-" + ulid.Make().String(),
	}

	pref, err := gateway.CreatePreference(ctx, checkout)
	if err != nil {
		s.log.Warn("create preference failed",
			zap.String("external_reference", req.ExternalReference),
			zap.Error(err),
		)
		s.metrics.RecordPaymentEvent(ctx, domain.ProviderMercadoPago, "preference_failed")
		return domain.Preference{}, providerFailure(err)
	}

	s.metrics.RecordPaymentEvent(ctx, domain.ProviderMercadoPago, "preference_created")
	s.recordPreference(ctx, req, pref, now)
	pref.Success = true
	return pref, nil
}

func (s *Service) recordPreference(ctx context.Context, req domain.PreferenceRequest, pref domain.Preference, now time.Time) {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	prefID := pref.ID
	ref := nonEmpty(pref.ExternalReference, req.ExternalReference)
	log := domain.PaymentLog{
		ID:                s.genID.Generate(),
		Provider:          domain.ProviderMercadoPago,
		PreferenceID:      &prefID,
		ExternalReference: &ref,
		Status:            domain.StatusCreated,
		Amount:            req.Total(),
		Metadata:          datatypes.JSON(metadata),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &log); err != nil {
		// The checkout is already open; losing the tracking row is not fatal.
		s.log.Warn("record payment preference", zap.String("preference_id", prefID), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, req domain.ListLogsRequest) ([]domain.PaymentLog, *pagination.PageInfo, error) {
	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}
	req.PageSize = size

	items, err := s.repo.List(ctx, s.db,
		domain.LogFilter{Status: strings.ToLower(strings.TrimSpace(req.Status))},
		option.ApplyPagination(req.Pagination),
	)
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(size), func(item *domain.PaymentLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > size {
		items = items[:size]
	}

	out := make([]domain.PaymentLog, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, pageInfo, nil
}

// Lookup resolves the payment outcome pages by payment id, external
// reference or preference id, in that order.
func (s *Service) Lookup(ctx context.Context, req domain.LookupRequest) (domain.PaymentLog, error) {
	var (
		item *domain.PaymentLog
		err  error
	)
	switch {
	case strings.TrimSpace(req.PaymentID) != "":
		item, err = s.repo.FindByPaymentID(ctx, s.db, strings.TrimSpace(req.PaymentID))
	case strings.TrimSpace(req.ExternalReference) != "":
		item, err = s.repo.FindByExternalReference(ctx, s.db, strings.TrimSpace(req.ExternalReference))
	case strings.TrimSpace(req.PreferenceID) != "":
		item, err = s.repo.FindByPreferenceID(ctx, s.db, strings.TrimSpace(req.PreferenceID))
	default:
		return domain.PaymentLog{}, domain.ErrInvalidLookup
	}
	if err != nil {
		return domain.PaymentLog{}, err
	}
	if item == nil {
		return domain.PaymentLog{}, domain.ErrNotFound
	}
	return *item, nil
}

func providerFailure(err error) error {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		return preferenceErr(providerMessage(providerErr), providerErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return preferenceErr("Mercado Pago no respondió a tiempo. Intenta de nuevo.", 0, err)
	}
	if errors.Is(err, domain.ErrProviderNotConfigured) {
		return preferenceErr("Mercado Pago no está configurado", 0, err)
	}
	return preferenceErr("No se pudo conectar con Mercado Pago", 0, err)
}

func providerMessage(err *domain.ProviderError) string {
	switch {
	case err.StatusCode == http.StatusUnauthorized:
		return "Error de autenticación. Verifica las credenciales de Mercado Pago."
	case err.StatusCode == http.StatusBadRequest:
		return "Datos inválidos: " + nonEmpty(err.Message, "Datos de pago inválidos")
	case err.StatusCode == http.StatusForbidden:
		return "Acceso denegado. Verifica los permisos de tu cuenta de Mercado Pago."
	case err.StatusCode >= 500:
		return "Error del servidor de Mercado Pago. Intenta de nuevo en unos minutos."
	default:
		return "Error HTTP " + strconv.Itoa(err.StatusCode) + ": " + err.Message
	}
}

func preferenceErr(message string, status int, err error) error {
	return &domain.PreferenceError{Message: message, ProviderStatus: status, Err: err}
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
