package domain

import (
	"fmt"
	"io"

	"github.com/bwmarrin/snowflake"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
)

// Method selects how the buyer pays.
type Method string

const (
	// MethodProvider opens a MercadoPago hosted checkout.
	MethodProvider Method = "provider"
	// MethodManual hands the buyer a WhatsApp link to pay by transfer.
	MethodManual Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodProvider || m == MethodManual
}

// Label is the human name printed on receipts.
func (m Method) Label() string {
	switch m {
	case MethodProvider:
		return "Mercado Pago"
	case MethodManual:
		return "WhatsApp / transferencia"
	default:
		return string(m)
	}
}

// Checkout is the result of a successful dispatch.
type Checkout struct {
	Method            Method                            `json:"method"`
	RaffleID          snowflake.ID                      `json:"raffle_id"`
	TicketNumbers     []int                             `json:"ticket_numbers"`
	Total             int64                             `json:"total"`
	TotalLabel        string                            `json:"total_label"`
	Bonus             string                            `json:"bonus,omitempty"`
	Commission        *promoterdomain.CommissionPreview `json:"commission,omitempty"`
	RedirectURL       string                            `json:"redirect_url,omitempty"`
	PreferenceID      string                            `json:"preference_id,omitempty"`
	ExternalReference string                            `json:"external_reference,omitempty"`
	WhatsAppURL       string                            `json:"whatsapp_url,omitempty"`
}

// ErrorCategory classifies a failed provider dispatch.
type ErrorCategory string

const (
	CategoryAuth            ErrorCategory = "auth"
	CategoryBadRequest      ErrorCategory = "bad_request"
	CategoryServerError     ErrorCategory = "server_error"
	CategoryTimeout         ErrorCategory = "timeout"
	CategoryNetwork         ErrorCategory = "network"
	CategoryInvalidResponse ErrorCategory = "invalid_response"
)

// DispatchError is a provider checkout failure the storefront can show as is.
// Fallback always carries a WhatsApp link so the sale is not lost.
type DispatchError struct {
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Attempt    int           `json:"attempt"`
	CanRetry   bool          `json:"can_retry"`
	Fallback   string        `json:"fallback"`
	StatusCode int           `json:"status_code,omitempty"`
	Err        error         `json:"-"`
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("checkout dispatch %s (attempt %d): %s", e.Category, e.Attempt, e.Message)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ReceiptFile is a rendered receipt ready to stream.
type ReceiptFile struct {
	Name string
	Body io.Reader
}
