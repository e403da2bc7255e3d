package mercadopago

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/sorteos/internal/config"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	defaultBaseURL         = "https://api.mercadopago.com"
	defaultProviderTimeout = 45 * time.Second
	defaultLookupTimeout   = 30 * time.Second
	maxErrorBody           = 4 << 10
	userAgent              = "sorteos/1.0"
	categoryTickets        = "tickets"
)

// Client talks to the MercadoPago checkout and payments APIs.
type Client struct {
	baseURL         string
	accessToken     string
	webhookSecret   string
	providerTimeout time.Duration
	lookupTimeout   time.Duration
	http            *http.Client
	log             *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	pc := cfg.Payment
	baseURL := strings.TrimRight(strings.TrimSpace(pc.MercadoPagoBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	providerTimeout := pc.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}
	lookupTimeout := pc.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &Client{
		baseURL:         baseURL,
		accessToken:     strings.TrimSpace(pc.MercadoPagoAccessToken),
		webhookSecret:   strings.TrimSpace(pc.MercadoPagoWebhookSecret),
		providerTimeout: providerTimeout,
		lookupTimeout:   lookupTimeout,
		http:            &http.Client{},
		log:             log.Named("payment.mercadopago"),
	}
}

func (c *Client) Provider() string {
	return paymentdomain.ProviderMercadoPago
}

type preferenceItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
	CategoryID  string  `json:"category_id"`
}

type paymentMethods struct {
	ExcludedPaymentMethods []map[string]string `json:"excluded_payment_methods"`
	ExcludedPaymentTypes   []map[string]string `json:"excluded_payment_types"`
	Installments           int                 `json:"installments"`
	DefaultInstallments    int                 `json:"default_installments"`
}

type preferenceBody struct {
	Items               []preferenceItem       `json:"items"`
	Payer               paymentdomain.Payer    `json:"payer"`
	BackURLs            paymentdomain.BackURLs `json:"back_urls"`
	AutoReturn          string                 `json:"auto_return"`
	ExternalReference   string                 `json:"external_reference"`
	Metadata            paymentdomain.Metadata `json:"metadata"`
	NotificationURL     string                 `json:"notification_url,omitempty"`
	StatementDescriptor string                 `json:"statement_descriptor,omitempty"`
	PaymentMethods      paymentMethods         `json:"payment_methods"`
	Expires             bool                   `json:"expires"`
	ExpirationDateFrom  string                 `json:"expiration_date_from,omitempty"`
	ExpirationDateTo    string                 `json:"expiration_date_to,omitempty"`
	BinaryMode          bool                   `json:"binary_mode"`
}

type preferenceResponse struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

func (c *Client) CreatePreference(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.Preference, error) {
	if c.accessToken == "" {
		return paymentdomain.Preference{}, paymentdomain.ErrProviderNotConfigured
	}

	body := preferenceBody{
		Items:               make([]preferenceItem, 0, len(req.Items)),
		Payer:               req.Payer,
		BackURLs:            req.BackURLs,
		AutoReturn:          "approved",
		ExternalReference:   req.ExternalReference,
		Metadata:            req.Metadata,
		NotificationURL:     req.NotificationURL,
		StatementDescriptor: req.StatementDescriptor,
		PaymentMethods: paymentMethods{
			ExcludedPaymentMethods: []map[string]string{},
			ExcludedPaymentTypes:   []map[string]string{},
			Installments:           req.Installments,
			DefaultInstallments:    1,
		},
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, preferenceItem{
			Title:       item.Title,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CurrencyID:  item.CurrencyID,
			CategoryID:  categoryTickets,
		})
	}
	if !req.ExpiresTo.IsZero() {
		body.Expires = true
		body.ExpirationDateFrom = req.ExpiresFrom.UTC().Format(time.RFC3339Nano)
		body.ExpirationDateTo = req.ExpiresTo.UTC().Format(time.RFC3339Nano)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return paymentdomain.Preference{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return paymentdomain.Preference{}, err
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		httpReq.Header.Set("X-Idempotency-Key", key)
	}

	var out preferenceResponse
	if err := c.do(httpReq, &out); err != nil {
		return paymentdomain.Preference{}, err
	}
	if out.ExternalReference == "" {
		out.ExternalReference = req.ExternalReference
	}
	return paymentdomain.Preference{
		ID:                out.ID,
		InitPoint:         out.InitPoint,
		SandboxInitPoint:  out.SandboxInitPoint,
		ExternalReference: out.ExternalReference,
		Success:           true,
	}, nil
}

type paymentResponse struct {
	ID                json.Number            `json:"id"`
	PreferenceID      string                 `json:"preference_id"`
	ExternalReference string                 `json:"external_reference"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	TransactionAmount float64                `json:"transaction_amount"`
	Metadata          paymentdomain.Metadata `json:"metadata"`
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (paymentdomain.PaymentDetail, error) {
	if c.accessToken == "" {
		return paymentdomain.PaymentDetail{}, paymentdomain.ErrProviderNotConfigured
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return paymentdomain.PaymentDetail{}, paymentdomain.ErrInvalidPayload
	}

	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return paymentdomain.PaymentDetail{}, err
	}
	c.authorize(httpReq)

	var raw json.RawMessage
	if err := c.do(httpReq, &raw); err != nil {
		return paymentdomain.PaymentDetail{}, err
	}

	var out paymentResponse
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&out); err != nil {
		return paymentdomain.PaymentDetail{}, fmt.Errorf("decode payment: %w", err)
	}

	id := out.ID.String()
	if id == "" {
		id = paymentID
	}
	return paymentdomain.PaymentDetail{
		ID:                id,
		PreferenceID:      out.PreferenceID,
		ExternalReference: out.ExternalReference,
		Status:            strings.ToLower(strings.TrimSpace(out.Status)),
		StatusDetail:      out.StatusDetail,
		Amount:            paymentdomain.ToMinor(out.TransactionAmount),
		Metadata:          out.Metadata,
		Raw:               raw,
	}, nil
}

type notificationBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID paymentdomain.FlexString `json:"id"`
	} `json:"data"`
}

// ParseNotification accepts the JSON body form and the legacy query form
// (?topic=payment&id=123 or ?type=payment&data.id=123).
func (c *Client) ParseNotification(payload []byte, query url.Values) (paymentdomain.Notification, error) {
	var body notificationBody
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return paymentdomain.Notification{}, paymentdomain.ErrInvalidPayload
		}
	}

	kind := firstNonEmpty(body.Type, body.Topic, query.Get("type"), query.Get("topic"))
	if kind == "" && strings.HasPrefix(body.Action, "payment.") {
		kind = "payment"
	}
	resource := firstNonEmpty(string(body.Data.ID), query.Get("data.id"), query.Get("id"))
	if kind == "" {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidPayload
	}

	n := paymentdomain.Notification{
		Type:       strings.ToLower(kind),
		ResourceID: resource,
	}
	if json.Valid(payload) {
		n.Raw = append(json.RawMessage(nil), payload...)
	}
	return n, nil
}

// Verify checks the x-signature header: "ts=<unix>,v1=<hex hmac>" over
// the manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func (c *Client) Verify(ctx context.Context, n paymentdomain.Notification, headers http.Header) error {
	if c.webhookSecret == "" {
		return nil
	}
	ts, signatures, err := parseSignature(headers.Get("x-signature"))
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	expected := Sign(c.webhookSecret, n.ResourceID, headers.Get("x-request-id"), ts)
	for _, signature := range signatures {
		if hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// Sign returns the hex signature MercadoPago sends for a notification.
func Sign(secret, dataID, requestID, ts string) string {
	manifest := ""
	if dataID = strings.TrimSpace(dataID); dataID != "" {
		manifest += "id:" + strings.ToLower(dataID) + ";"
	}
	if requestID = strings.TrimSpace(requestID); requestID != "" {
		manifest += "request-id:" + requestID + ";"
	}
	manifest += "ts:" + ts + ";"

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("mercadopago request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return &paymentdomain.ProviderError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := firstNonEmpty(parsed.Message, parsed.Error); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

func parseSignature(header string) (string, []string, error) {
	var ts string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		keyValue := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "ts":
			ts = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if ts == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return ts, signatures, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
