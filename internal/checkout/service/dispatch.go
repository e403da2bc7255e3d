package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/sorteos/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
)

const (
	defaultDispatchTimeout = 60 * time.Second
	maxResponseBody        = 64 << 10
	clientInfo             = "sorteos-web"
)

// failure is a dispatch error before the attempt counter and fallback are known.
type failure struct {
	category domain.ErrorCategory
	message  string
	status   int
	err      error
}

func (f *failure) Error() string { return string(f.category) + ": " + f.message }

func (f *failure) Unwrap() error { return f.err }

type preferenceResponse struct {
	paymentdomain.Preference
	Error   string `json:"error"`
	Details string `json:"details"`
}

// httpDispatcher posts preference requests to the create-preference endpoint.
type httpDispatcher struct {
	url     string
	sandbox bool
	client  *http.Client
}

func newHTTPDispatcher(url string, timeout time.Duration, sandbox bool) *httpDispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &httpDispatcher{
		url:     strings.TrimSpace(url),
		sandbox: sandbox,
		client:  &http.Client{Timeout: timeout},
	}
}

// Dispatch returns the preference and the checkout URL the buyer is sent to.
func (d *httpDispatcher) Dispatch(ctx context.Context, req paymentdomain.PreferenceRequest) (paymentdomain.Preference, string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return paymentdomain.Preference{}, "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return paymentdomain.Preference{}, "", &failure{category: domain.CategoryNetwork, message: networkMessage, err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-Info", clientInfo)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return paymentdomain.Preference{}, "", classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return paymentdomain.Preference{}, "", classifyTransport(err)
	}

	var out preferenceResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return paymentdomain.Preference{}, "", classifyStatus(resp.StatusCode, out.Error)
	}
	if decodeErr != nil {
		return paymentdomain.Preference{}, "", &failure{category: domain.CategoryInvalidResponse, message: invalidResponseMessage, status: resp.StatusCode, err: decodeErr}
	}

	redirect := out.InitPoint
	if d.sandbox && out.SandboxInitPoint != "" {
		redirect = out.SandboxInitPoint
	}
	if strings.TrimSpace(redirect) == "" {
		return paymentdomain.Preference{}, "", &failure{category: domain.CategoryInvalidResponse, message: invalidResponseMessage, status: resp.StatusCode}
	}
	return out.Preference, redirect, nil
}

const (
	authMessage            = "Error de configuración de pagos. Contacta al soporte."
	badRequestMessage      = "Datos de pago inválidos. Verifica la información."
	serverErrorMessage     = "Error del servidor de Mercado Pago. Intenta de nuevo en unos minutos."
	timeoutMessage         = "La conexión tardó demasiado. Intenta de nuevo."
	networkMessage         = "Error de conexión. Verifica tu internet e intenta de nuevo."
	invalidResponseMessage = "No se recibió el enlace de pago de Mercado Pago"
)

func classifyStatus(status int, message string) *failure {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &failure{category: domain.CategoryAuth, message: authMessage, status: status}
	case status >= 500:
		return &failure{category: domain.CategoryServerError, message: serverErrorMessage, status: status}
	default:
		if strings.TrimSpace(message) == "" {
			message = badRequestMessage
		}
		return &failure{category: domain.CategoryBadRequest, message: message, status: status}
	}
}

func classifyTransport(err error) *failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &failure{category: domain.CategoryTimeout, message: timeoutMessage, err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &failure{category: domain.CategoryTimeout, message: timeoutMessage, err: err}
	}
	return &failure{category: domain.CategoryNetwork, message: networkMessage, err: err}
}
