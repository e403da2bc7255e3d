package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/sorteos/internal/audit/domain"
	authdomain "github.com/smallbiznis/sorteos/internal/auth/domain"
	"github.com/smallbiznis/sorteos/internal/authorization"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	checkoutdomain "github.com/smallbiznis/sorteos/internal/checkout/domain"
	"github.com/smallbiznis/sorteos/internal/liveevents"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/smallbiznis/sorteos/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`

	// Set for failed provider checkouts so the storefront can offer a retry
	// or the WhatsApp fallback.
	Checkout *checkoutdomain.DispatchError `json:"checkout,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError translates a gin binding failure into field errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidRequestError()
	}
	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: field + " is " + fe.Tag(),
		})
	}
	return out
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var formErr *buyerdomain.InvalidFormError
	if errors.As(err, &formErr) {
		fields := make([]ValidationError, 0, len(formErr.Fields))
		for _, f := range formErr.Fields {
			fields = append(fields, ValidationError{
				Field:   f.Field,
				Code:    f.Code,
				Message: formFieldMessage(f.Code),
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}

	var dispatchErr *checkoutdomain.DispatchError
	if errors.As(err, &dispatchErr) {
		return http.StatusBadGateway, errorPayload{
			Type:     "payment_provider_error",
			Message:  dispatchErr.Message,
			Checkout: dispatchErr,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, liveevents.ErrHubUnavailable),
		errors.Is(err, authdomain.ErrNotConfigured),
		errors.Is(err, paymentdomain.ErrProviderNotConfigured),
		errors.Is(err, checkoutdomain.ErrReceiptUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "timeout",
			Message: "request timed out",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code attached to request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if status == http.StatusInternalServerError {
		code = "unexpected"
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isRaffleValidationError(err),
		isTicketValidationError(err),
		isPromoterValidationError(err),
		isReservationValidationError(err),
		isCheckoutValidationError(err),
		isPaymentValidationError(err),
		isAuthValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isRaffleValidationError(err error) bool {
	switch {
	case errors.Is(err, raffledomain.ErrInvalidID),
		errors.Is(err, raffledomain.ErrInvalidName),
		errors.Is(err, raffledomain.ErrInvalidPrice),
		errors.Is(err, raffledomain.ErrInvalidTotalTickets),
		errors.Is(err, raffledomain.ErrInvalidDrawDate),
		errors.Is(err, raffledomain.ErrInvalidStatus),
		errors.Is(err, raffledomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func isTicketValidationError(err error) bool {
	switch {
	case errors.Is(err, ticketdomain.ErrInvalidID),
		errors.Is(err, ticketdomain.ErrInvalidRaffle),
		errors.Is(err, ticketdomain.ErrInvalidNumber),
		errors.Is(err, ticketdomain.ErrInvalidStatus),
		errors.Is(err, ticketdomain.ErrNoTickets),
		errors.Is(err, ticketdomain.ErrSelectionLimitReached):
		return true
	default:
		return false
	}
}

func isPromoterValidationError(err error) bool {
	switch {
	case errors.Is(err, promoterdomain.ErrInvalidID),
		errors.Is(err, promoterdomain.ErrInvalidName),
		errors.Is(err, promoterdomain.ErrInvalidCode),
		errors.Is(err, promoterdomain.ErrInvalidTicket):
		return true
	default:
		return false
	}
}

func isReservationValidationError(err error) bool {
	switch {
	case errors.Is(err, reservationdomain.ErrInvalidRaffle),
		errors.Is(err, reservationdomain.ErrTicketRaffleMismatch),
		errors.Is(err, reservationdomain.ErrSelectionTooLarge),
		errors.Is(err, buyerdomain.ErrInvalidForm),
		errors.Is(err, buyerdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isCheckoutValidationError(err error) bool {
	switch {
	case errors.Is(err, checkoutdomain.ErrInvalidMethod),
		errors.Is(err, checkoutdomain.ErrInvalidRaffle),
		errors.Is(err, checkoutdomain.ErrTicketRaffleMismatch):
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidPayer),
		errors.Is(err, paymentdomain.ErrInvalidItems),
		errors.Is(err, paymentdomain.ErrInvalidLookup):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidRole),
		errors.Is(err, authdomain.ErrWeakPassword):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, promoterdomain.ErrDuplicateCode),
		errors.Is(err, reservationdomain.ErrTicketsUnavailable),
		errors.Is(err, reservationdomain.ErrRaffleNotActive),
		errors.Is(err, raffledomain.ErrRaffleCompleted),
		errors.Is(err, raffledomain.ErrRaffleNotActive),
		errors.Is(err, ticketdomain.ErrTicketNotAvailable),
		errors.Is(err, checkoutdomain.ErrTicketsNotReserved),
		errors.Is(err, paymentdomain.ErrTicketsNotReserved),
		errors.Is(err, promoterdomain.ErrInactive),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, reservationdomain.ErrTicketsUnavailable),
		errors.Is(err, ticketdomain.ErrTicketNotAvailable):
		return "Algunos boletos ya no están disponibles. Por favor selecciona otros."
	case errors.Is(err, checkoutdomain.ErrTicketsNotReserved),
		errors.Is(err, paymentdomain.ErrTicketsNotReserved):
		return "Tu reserva expiró. Selecciona tus boletos de nuevo."
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, raffledomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, promoterdomain.ErrNotFound),
		errors.Is(err, reservationdomain.ErrNotFound),
		errors.Is(err, buyerdomain.ErrNotFound),
		errors.Is(err, checkoutdomain.ErrTicketsNotFound),
		errors.Is(err, paymentdomain.ErrTicketsNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, buyerdomain.ErrInvalidForm):
		return buyerdomain.ErrInvalidForm.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "selection_limit_reached":
		return "Has alcanzado el máximo de boletos por compra"
	case "no_tickets_selected":
		return "Selecciona al menos un boleto"
	default:
		return "invalid value"
	}
}

func formFieldMessage(code string) string {
	switch code {
	case "required":
		return "Este campo es obligatorio"
	case "invalid_email":
		return "Ingresa un correo electrónico válido"
	case "invalid_phone":
		return "El teléfono debe tener 10 dígitos"
	case "terms_not_accepted":
		return "Debes aceptar los términos y condiciones"
	default:
		return "Valor inválido"
	}
}
