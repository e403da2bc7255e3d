package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/sorteos/internal/audit/domain"
	authdomain "github.com/smallbiznis/sorteos/internal/auth/domain"
	"github.com/smallbiznis/sorteos/internal/auth/session"
	"github.com/smallbiznis/sorteos/internal/authorization"
	"github.com/smallbiznis/sorteos/internal/config"
	obscontext "github.com/smallbiznis/sorteos/internal/observability/context"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeAuth struct {
	authdomain.Service
	session *authdomain.Session
	err     error
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*authdomain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeAuthz struct {
	err   error
	calls []string
}

func (f *fakeAuthz) Authorize(ctx context.Context, actor, role, object, action string) error {
	f.calls = append(f.calls, actor+"|"+role+"|"+object+"|"+action)
	return f.err
}

type fakeRaffles struct {
	raffledomain.Service
	items []raffledomain.Raffle
}

func (f *fakeRaffles) List(ctx context.Context, req raffledomain.ListRafflesRequest) ([]raffledomain.Raffle, error) {
	return f.items, nil
}

func (f *fakeRaffles) Delete(ctx context.Context, id string) error { return nil }

type fakeAudit struct {
	auditdomain.Service
	actions []string
	targets []string
	actor   string
}

func (f *fakeAudit) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	if targetID != nil {
		f.targets = append(f.targets, *targetID)
	}
	_, f.actor = obscontext.ActorFromContext(ctx)
	return nil
}

type fakeReservations struct {
	reservationdomain.Service
	released []ticketdomain.Ticket
	reserved bool
	lastReq  reservationdomain.ReleaseRequest
}

func (f *fakeReservations) Release(ctx context.Context, req reservationdomain.ReleaseRequest) (reservationdomain.ReleaseResult, error) {
	f.lastReq = req
	return reservationdomain.ReleaseResult{Released: f.released}, nil
}

func (f *fakeReservations) Reserve(ctx context.Context, req reservationdomain.ReserveRequest) (reservationdomain.Reservation, error) {
	f.reserved = true
	return reservationdomain.Reservation{}, reservationdomain.ErrTicketsUnavailable
}

func (f *fakeReservations) Window() time.Duration { return 15 * time.Minute }

type fakeWebhooks struct {
	result paymentdomain.WebhookResult
	err    error
}

func (f *fakeWebhooks) Handle(ctx context.Context, provider string, payload []byte, query url.Values, headers http.Header) (paymentdomain.WebhookResult, error) {
	return f.result, f.err
}

type fakePreferences struct {
	pref paymentdomain.Preference
	err  error
}

func (f *fakePreferences) CreatePreference(ctx context.Context, req paymentdomain.PreferenceRequest) (paymentdomain.Preference, error) {
	return f.pref, f.err
}

type fakePaymentLogs struct {
	paymentdomain.LogService
	item paymentdomain.PaymentLog
}

func (f *fakePaymentLogs) Lookup(ctx context.Context, req paymentdomain.LookupRequest) (paymentdomain.PaymentLog, error) {
	return f.item, nil
}

func newTestServer(t *testing.T, p ServerParams) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	p.Gin = r
	p.Log = zap.NewNop()
	p.Sessions = session.NewManager(session.ConfigFrom(p.Cfg))
	if p.Authsvc == nil {
		p.Authsvc = &fakeAuth{err: authdomain.ErrInvalidSession}
	}
	if p.AuthzSvc == nil {
		p.AuthzSvc = &fakeAuthz{}
	}
	return NewServer(p)
}

func doRequest(s *Server, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAdminRequiresSession(t *testing.T) {
	s := newTestServer(t, ServerParams{})

	w := doRequest(s, http.MethodGet, "/admin/raffles", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodGet, "/admin/raffles", nil, "expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "unauthorized", body["error"].(map[string]any)["type"])
}

func TestAdminAuthorization(t *testing.T) {
	userID := snowflake.ID(42)
	auth := &fakeAuth{session: &authdomain.Session{
		UserID:    userID,
		Role:      authdomain.RoleStaff,
		ExpiresAt: time.Now().Add(time.Hour),
	}}

	t.Run("forbidden", func(t *testing.T) {
		authz := &fakeAuthz{err: authorization.ErrForbidden}
		s := newTestServer(t, ServerParams{Authsvc: auth, AuthzSvc: authz})

		w := doRequest(s, http.MethodDelete, "/admin/raffles/1", nil, "tok")
		assert.Equal(t, http.StatusForbidden, w.Code)
		require.Len(t, authz.calls, 1)
		assert.Equal(t, "user:42|staff|"+authorization.ObjectRaffle+"|"+authorization.ActionRaffleDelete, authz.calls[0])
	})

	t.Run("allowed", func(t *testing.T) {
		raffles := &fakeRaffles{items: []raffledomain.Raffle{{ID: 7, Name: "Camioneta"}}}
		s := newTestServer(t, ServerParams{Authsvc: auth, RaffleSvc: raffles})

		w := doRequest(s, http.MethodGet, "/admin/raffles", nil, "tok")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["data"], 1)
	})
}

func TestAdminMutationsAreAudited(t *testing.T) {
	auth := &fakeAuth{session: &authdomain.Session{UserID: 42, Role: authdomain.RoleAdmin}}
	audits := &fakeAudit{}
	s := newTestServer(t, ServerParams{Authsvc: auth, AuditSvc: audits, RaffleSvc: &fakeRaffles{}})

	w := doRequest(s, http.MethodDelete, "/admin/raffles/77", nil, "tok")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"raffle.delete"}, audits.actions)
	assert.Equal(t, []string{"77"}, audits.targets)
	assert.Equal(t, "42", audits.actor)
}

func TestReleaseReservation(t *testing.T) {
	reservations := &fakeReservations{released: []ticketdomain.Ticket{{ID: 1}, {ID: 2}}}
	s := newTestServer(t, ServerParams{ReservationSvc: reservations})

	w := doRequest(s, http.MethodPost, "/api/reservations/release", []byte(`{"ticket_ids":["1","2","3"],"phone":"668 123 4567"}`), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["released"])
	assert.Equal(t, []string{"1", "2", "3"}, reservations.lastReq.TicketIDs)
	assert.Equal(t, reservationdomain.Holder{Phone: "668 123 4567"}, reservations.lastReq.Holder)
	assert.False(t, reservations.lastReq.ClearPromoter)
}

func TestReleaseReservationRequiresPhone(t *testing.T) {
	reservations := &fakeReservations{}
	s := newTestServer(t, ServerParams{ReservationSvc: reservations})

	for _, payload := range []string{`{"ticket_ids":["1"]}`, `{"ticket_ids":["1"],"phone":" - "}`} {
		w := doRequest(s, http.MethodPost, "/api/reservations/release", []byte(payload), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Nil(t, reservations.lastReq.TicketIDs)
}

func TestReservationWithoutLimiter(t *testing.T) {
	reservations := &fakeReservations{}
	s := newTestServer(t, ServerParams{ReservationSvc: reservations})

	w := doRequest(s, http.MethodPost, "/api/reservations", []byte(`{"raffle_id":"1","ticket_ids":["5"]}`), "")
	assert.True(t, reservations.reserved)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	body := decodeBody(t, w)
	assert.Contains(t, body["error"].(map[string]any)["message"], "ya no están disponibles")
}

func TestWebhookAck(t *testing.T) {
	tests := []struct {
		name      string
		always200 bool
		result    paymentdomain.WebhookResult
		err       error
		status    int
		processed bool
	}{
		{name: "processed", result: paymentdomain.WebhookResult{Processed: true}, status: http.StatusOK, processed: true},
		{name: "ignored", result: paymentdomain.WebhookResult{Ignored: true}, status: http.StatusOK},
		{name: "internal failure", err: errors.New("db down"), status: http.StatusInternalServerError},
		{name: "internal failure forced ack", always200: true, err: errors.New("db down"), status: http.StatusOK},
		{name: "bad signature", err: paymentdomain.ErrInvalidSignature, status: http.StatusUnauthorized},
		{name: "bad payload", err: paymentdomain.ErrInvalidPayload, status: http.StatusBadRequest},
		{name: "unknown provider", err: paymentdomain.ErrProviderNotFound, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{}
			cfg.Payment.WebhookAckAlways200 = tt.always200
			s := newTestServer(t, ServerParams{
				Cfg:        cfg,
				WebhookSvc: &fakeWebhooks{result: tt.result, err: tt.err},
			})

			w := doRequest(s, http.MethodPost, "/api/payments/webhooks/mercadopago?type=payment&data.id=1", []byte(`{}`), "")
			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, true, body["received"])
			assert.Equal(t, tt.processed, body["processed"])
			if tt.err != nil {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestCreatePaymentPreferenceFailure(t *testing.T) {
	cfg := config.Config{}
	cfg.Raffle.WhatsAppNumber = "5215512345678"
	prefs := &fakePreferences{err: &paymentdomain.PreferenceError{
		Message:        "Credenciales de pago inválidas",
		ProviderStatus: http.StatusUnauthorized,
		Err:            errors.New("invalid access token"),
	}}
	s := newTestServer(t, ServerParams{Cfg: cfg, PreferenceSvc: prefs})

	w := doRequest(s, http.MethodPost, "/api/payments/preferences", []byte(`{}`), "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body preferenceFailure
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Credenciales de pago inválidas", body.Error)
	assert.Equal(t, "invalid access token", body.Details)
	assert.Equal(t, http.StatusUnauthorized, body.Diagnostic.ProviderStatus)
	assert.Equal(t, "whatsapp", body.FallbackAction)
	assert.Equal(t, "5215512345678", body.WhatsAppNumber)
	assert.Contains(t, body.Suggestions[0], "access token")
}

func TestCreatePaymentPreferenceSuccess(t *testing.T) {
	prefs := &fakePreferences{pref: paymentdomain.Preference{
		ID:        "pref-1",
		InitPoint: "https://mp.example/init",
		Success:   true,
	}}
	s := newTestServer(t, ServerParams{PreferenceSvc: prefs})

	w := doRequest(s, http.MethodPost, "/api/payments/preferences", []byte(`{}`), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
}

func TestLookupPaymentOutcome(t *testing.T) {
	paymentID := "123"
	logs := &fakePaymentLogs{item: paymentdomain.PaymentLog{
		Status:    paymentdomain.StatusApproved,
		PaymentID: &paymentID,
		Amount:    15000,
		Metadata:  datatypes.JSON(`{"raffle_id":"9","ticket_numbers":[4,8]}`),
	}}
	s := newTestServer(t, ServerParams{PaymentLogSvc: logs})

	w := doRequest(s, http.MethodGet, "/api/payments/outcome?payment_id=123", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, "9", data["raffle_id"])
	assert.Equal(t, []any{float64(4), float64(8)}, data["ticket_numbers"])
}

func TestStreamWithoutHub(t *testing.T) {
	s := newTestServer(t, ServerParams{})

	w := doRequest(s, http.MethodGet, "/api/raffles/1/tickets/stream", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	s := newTestServer(t, ServerParams{})

	w := doRequest(s, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
