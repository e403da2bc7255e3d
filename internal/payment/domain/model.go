package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const ProviderMercadoPago = "mercadopago"

const (
	StatusCreated    = "created"
	StatusApproved   = "approved"
	StatusPending    = "pending"
	StatusInProcess  = "in_process"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusChargeback = "charged_back"
)

// PaymentLog tracks a checkout preference and the payment it produced.
type PaymentLog struct {
	ID                snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider          string         `gorm:"not null" json:"provider"`
	PreferenceID      *string        `gorm:"column:preference_id" json:"preference_id,omitempty"`
	PaymentID         *string        `gorm:"column:payment_id" json:"payment_id,omitempty"`
	ExternalReference *string        `gorm:"column:external_reference" json:"external_reference,omitempty"`
	Status            string         `gorm:"not null" json:"status"`
	StatusDetail      *string        `gorm:"column:status_detail" json:"status_detail,omitempty"`
	Amount            int64          `gorm:"not null" json:"amount"`
	Metadata          datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	WebhookData       datatypes.JSON `gorm:"type:jsonb" json:"webhook_data,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (PaymentLog) TableName() string { return "payment_logs" }

// Metadata travels with the preference and comes back on the payment.
type Metadata struct {
	RaffleID      FlexString `json:"raffle_id"`
	TicketIDs     IDList     `json:"ticket_ids"`
	TicketNumbers []int      `json:"ticket_numbers"`
	PromoterCode  string     `json:"promoter_code,omitempty"`
	UserID        FlexString `json:"user_id,omitempty"`
	UserPhone     FlexString `json:"user_phone"`
	UserEmail     string     `json:"user_email"`
}

// IDList decodes ids sent as strings, numbers or a single scalar without
// losing precision on 64-bit values.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		data = append(append([]byte{'['}, data...), ']')
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		value := strings.Trim(strings.TrimSpace(string(item)), `"`)
		if value == "" || value == "null" {
			continue
		}
		out = append(out, value)
	}
	*l = out
	return nil
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	value := strings.TrimSpace(string(data))
	if value == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

type PreferenceItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

type Phone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type Payer struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   Phone  `json:"phone"`
}

// PreferenceRequest is the body accepted by the create-preference endpoint.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             Payer            `json:"payer"`
	ExternalReference string           `json:"external_reference"`
	Metadata          Metadata         `json:"metadata"`
}

// Total returns the sum of all items in minor units.
func (r PreferenceRequest) Total() int64 {
	var total float64
	for _, item := range r.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return ToMinor(total)
}

type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
	Success           bool   `json:"success"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// CheckoutRequest is a preference request enriched with the settings the
// gateway needs to open a hosted checkout.
type CheckoutRequest struct {
	PreferenceRequest
	BackURLs            BackURLs
	NotificationURL     string
	StatementDescriptor string
	Installments        int
	ExpiresFrom         time.Time
	ExpiresTo           time.Time
	IdempotencyKey      string
}

// PaymentDetail is the authoritative payment fetched from the provider.
type PaymentDetail struct {
	ID                string
	PreferenceID      string
	ExternalReference string
	Status            string
	StatusDetail      string
	Amount            int64
	Metadata          Metadata
	Raw               json.RawMessage
}

// Notification is a parsed webhook call.
type Notification struct {
	Type       string
	ResourceID string
	Raw        json.RawMessage
}

type WebhookResult struct {
	Processed bool
	Ignored   bool
	PaymentID string
	Status    string
}

// ToMinor converts a provider amount in pesos to centavos.
func ToMinor(amount float64) int64 {
	if amount >= 0 {
		return int64(amount*100 + 0.5)
	}
	return int64(amount*100 - 0.5)
}

// FromMinor converts centavos to the provider's decimal amount.
func FromMinor(amount int64) float64 {
	return float64(amount) / 100
}
