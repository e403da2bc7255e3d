package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sorteos/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type preferenceFailure struct {
	Error          string               `json:"error"`
	Details        string               `json:"details"`
	Diagnostic     preferenceDiagnostic `json:"diagnostic"`
	Suggestions    []string             `json:"suggestions"`
	FallbackAction string               `json:"fallback_action"`
	WhatsAppNumber string               `json:"whatsapp_number,omitempty"`
}

type preferenceDiagnostic struct {
	ProviderStatus int    `json:"provider_status,omitempty"`
	Sandbox        bool   `json:"sandbox"`
	Timestamp      string `json:"timestamp"`
}

// CreatePaymentPreference opens a hosted checkout for reserved tickets.
// Failures answer 400 with enough detail for the storefront to fall back
// to WhatsApp.
func (s *Server) CreatePaymentPreference(c *gin.Context) {
	var req paymentdomain.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pref, err := s.preferenceSvc.CreatePreference(c.Request.Context(), req)
	if err != nil {
		var prefErr *paymentdomain.PreferenceError
		if !errors.As(err, &prefErr) {
			AbortWithError(c, err)
			return
		}
		logger.FromContext(c.Request.Context()).Warn("payment preference rejected",
			zap.String("external_reference", req.ExternalReference),
			zap.Int("provider_status", prefErr.ProviderStatus),
			zap.Error(prefErr.Err),
		)
		c.JSON(http.StatusBadRequest, s.preferenceFailure(prefErr))
		return
	}

	c.JSON(http.StatusOK, pref)
}

func (s *Server) preferenceFailure(err *paymentdomain.PreferenceError) preferenceFailure {
	details := "Error al crear la preferencia de pago"
	if err.Err != nil {
		details = err.Err.Error()
	}
	return preferenceFailure{
		Error:   err.Message,
		Details: details,
		Diagnostic: preferenceDiagnostic{
			ProviderStatus: err.ProviderStatus,
			Sandbox:        s.cfg.Payment.Sandbox,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		},
		Suggestions:    preferenceSuggestions(err),
		FallbackAction: "whatsapp",
		WhatsAppNumber: s.cfg.Raffle.WhatsAppNumber,
	}
}

func preferenceSuggestions(err *paymentdomain.PreferenceError) []string {
	switch {
	case err.ProviderStatus == http.StatusUnauthorized || err.ProviderStatus == http.StatusForbidden:
		return []string{
			"Verifica el access token de Mercado Pago",
			"Confirma que la cuenta tenga permisos para crear preferencias",
		}
	case err.ProviderStatus >= http.StatusInternalServerError:
		return []string{
			"Mercado Pago no está disponible en este momento",
			"Intenta de nuevo en unos minutos o paga por WhatsApp",
		}
	case errors.Is(err, paymentdomain.ErrTicketsNotReserved), errors.Is(err, paymentdomain.ErrTicketsNotFound):
		return []string{
			"Tu reserva pudo haber expirado",
			"Selecciona tus boletos de nuevo",
		}
	case errors.Is(err, paymentdomain.ErrInvalidPayer):
		return []string{"Verifica que tu teléfono tenga 10 dígitos"}
	default:
		return []string{
			"Verifica tus datos e intenta de nuevo",
			"También puedes completar tu compra por WhatsApp",
		}
	}
}

type webhookAck struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Ignored   bool   `json:"ignored,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HandlePaymentWebhook acknowledges a provider payment notification.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	ack := webhookAck{Received: true, Timestamp: time.Now().UTC().Format(time.RFC3339)}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		ack.Error = "invalid_payload"
		c.JSON(s.webhookStatus(http.StatusBadRequest), ack)
		return
	}

	result, err := s.webhookSvc.Handle(c.Request.Context(), provider, payload, c.Request.URL.Query(), c.Request.Header)
	if err != nil {
		status, errPayload := mapError(err)
		ack.Error = errPayload.Type
		if len(errPayload.Errors) > 0 {
			ack.Error = errPayload.Errors[0].Code
		}
		_ = c.Error(err)
		c.JSON(s.webhookStatus(status), ack)
		return
	}

	ack.Processed = result.Processed
	ack.Ignored = result.Ignored
	c.JSON(http.StatusOK, ack)
}

func (s *Server) webhookStatus(status int) int {
	if s.cfg.Payment.WebhookAckAlways200 {
		return http.StatusOK
	}
	return status
}

type paymentOutcome struct {
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail,omitempty"`
	PaymentID         string `json:"payment_id,omitempty"`
	PreferenceID      string `json:"preference_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	Amount            int64  `json:"amount"`
	RaffleID          string `json:"raffle_id,omitempty"`
	TicketNumbers     []int  `json:"ticket_numbers"`
	UpdatedAt         string `json:"updated_at"`
}

// LookupPaymentOutcome backs the success, failure and pending pages.
func (s *Server) LookupPaymentOutcome(c *gin.Context) {
	var req paymentdomain.LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.paymentLogSvc.Lookup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPaymentOutcome(item)})
}

func toPaymentOutcome(item paymentdomain.PaymentLog) paymentOutcome {
	out := paymentOutcome{
		Status:        item.Status,
		StatusDetail:  deref(item.StatusDetail),
		PaymentID:     deref(item.PaymentID),
		PreferenceID:  deref(item.PreferenceID),
		Amount:        item.Amount,
		TicketNumbers: []int{},
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	out.ExternalReference = deref(item.ExternalReference)

	var metadata paymentdomain.Metadata
	if len(item.Metadata) > 0 && json.Unmarshal(item.Metadata, &metadata) == nil {
		out.RaffleID = string(metadata.RaffleID)
		if len(metadata.TicketNumbers) > 0 {
			out.TicketNumbers = metadata.TicketNumbers
		}
	}
	if out.RaffleID == "" {
		out.RaffleID, _, _ = paymentdomain.ParseExternalReference(out.ExternalReference)
	}
	return out
}

func (s *Server) ListPaymentLogs(c *gin.Context) {
	var req paymentdomain.ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, pageInfo, err := s.paymentLogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
