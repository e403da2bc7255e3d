package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/smallbiznis/sorteos/pkg/db/pagination"
)

// Gateway is a hosted checkout provider.
type Gateway interface {
	Provider() string
	CreatePreference(ctx context.Context, req CheckoutRequest) (Preference, error)
	GetPayment(ctx context.Context, paymentID string) (PaymentDetail, error)
	ParseNotification(payload []byte, query url.Values) (Notification, error)
	// Verify checks the notification signature. Gateways without a secret accept everything.
	Verify(ctx context.Context, n Notification, headers http.Header) error
}

type PreferenceService interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
}

type WebhookService interface {
	Handle(ctx context.Context, provider string, payload []byte, query url.Values, headers http.Header) (WebhookResult, error)
}

type ListLogsRequest struct {
	Status string `form:"status"`
	pagination.Pagination
}

type LookupRequest struct {
	PaymentID         string `form:"payment_id"`
	ExternalReference string `form:"external_reference"`
	PreferenceID      string `form:"preference_id"`
}

type LogService interface {
	List(ctx context.Context, req ListLogsRequest) ([]PaymentLog, *pagination.PageInfo, error)
	Lookup(ctx context.Context, req LookupRequest) (PaymentLog, error)
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// PreferenceError is a preference creation failure shaped for the storefront.
type PreferenceError struct {
	Message        string
	ProviderStatus int
	Err            error
}

func (e *PreferenceError) Error() string { return e.Message }

func (e *PreferenceError) Unwrap() error { return e.Err }

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrProviderNotConfigured = errors.New("provider_not_configured")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrTicketsNotFound       = errors.New("tickets_not_found")
	ErrTicketsNotReserved    = errors.New("tickets_not_reserved")
	ErrInvalidPayer          = errors.New("invalid_payer")
	ErrInvalidItems          = errors.New("invalid_items")
	ErrInvalidLookup         = errors.New("invalid_lookup")
	ErrNotFound              = errors.New("not_found")
)

// ApprovedPayment describes a payment whose tickets were just confirmed.
type ApprovedPayment struct {
	PaymentID         string
	ExternalReference string
	Amount            int64
	RaffleID          string
	TicketIDs         []string
	TicketNumbers     []int
	PromoterCode      string
	BuyerEmail        string
	BuyerPhone        string
	ApprovedAt        time.Time
}

// Notifier is told about approved payments. Failures never affect the webhook outcome.
type Notifier interface {
	Name() string
	NotifyApproved(ctx context.Context, payment ApprovedPayment) error
}
