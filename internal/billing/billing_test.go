package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/store"
	"github.com/abhisek/simulado/internal/subscription"
)

func TestReference(t *testing.T) {
	s, err := Reference{UserID: "u1", Plan: subscription.PlanQuarterly}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u1","plan_type":"quarterly"}`, s)

	ref, err := ParseReference(s)
	require.NoError(t, err)
	assert.Equal(t, "u1", ref.UserID)
	assert.Equal(t, subscription.PlanQuarterly, ref.Plan)

	for _, bad := range []string{"", "{}", `{"user_id":"u1"}`, `{"user_id":"u1","plan_type":"free"}`, `{"user_id":"u1","plan_type":"weekly"}`} {
		_, err := ParseReference(bad)
		assert.ErrorIs(t, err, ErrIncompleteReference, bad)
	}
	_, err = ParseReference("not json")
	assert.Error(t, err)
}

func TestHTTPGateway_CreateCheckout(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"init_point":"https://pay.example/abc"}`)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL+"/", "tok", "https://hooks.example/webhooks/payments")
	link, err := g.CreateCheckout(context.Background(), CheckoutRequest{
		UserID: "u1",
		Email:  "ana@example.com",
		Plan:   subscription.PlanSemiannual,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", link)

	assert.Equal(t, `{"user_id":"u1","plan_type":"semiannual"}`, got["external_reference"])
	assert.Equal(t, "https://hooks.example/webhooks/payments", got["notification_url"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 119.4, items[0].(map[string]any)["unit_price"])
	assert.Equal(t, 6.0, got["payment_methods"].(map[string]any)["installments"])
}

func TestHTTPGateway_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid token"}`)
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := NewHTTPGateway(srv.URL, "", "").Payment(ctx, "1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewHTTPGateway(srv.URL, "tok", "").CreateCheckout(ctx, CheckoutRequest{UserID: "u1", Plan: subscription.PlanFree})
	assert.Error(t, err)

	_, err = NewHTTPGateway(srv.URL, "tok", "").Payment(ctx, "1")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestHTTPGateway_PaymentNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":123,"status":"approved","external_reference":"{}","payer":{"id":987654}}`)
	}))
	defer srv.Close()

	p, err := NewHTTPGateway(srv.URL, "tok", "").Payment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", p.ID)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "987654", p.PayerID)
}

type fakePayments struct {
	payment *Payment
	err     error
	asked   []string
}

func (f *fakePayments) Payment(_ context.Context, id string) (*Payment, error) {
	f.asked = append(f.asked, id)
	return f.payment, f.err
}

type fakeActivator struct {
	user   string
	update store.PlanUpdate
	calls  int
	err    error
}

func (f *fakeActivator) UpdatePlan(_ context.Context, user string, u store.PlanUpdate) error {
	f.calls++
	f.user, f.update = user, u
	return f.err
}

type fakeInvalidator struct{ users []string }

func (f *fakeInvalidator) Invalidate(user string) { f.users = append(f.users, user) }

func approved(ref string) *Payment {
	return &Payment{ID: "555", Status: StatusApproved, ExternalReference: ref, PayerID: "c-1"}
}

func TestWebhook_ActivatesPlan(t *testing.T) {
	payments := &fakePayments{payment: approved(`{"user_id":"u1","plan_type":"monthly"}`)}
	accounts := &fakeActivator{}
	plans := &fakeInvalidator{}
	h := NewWebhookHandler(payments, accounts, plans, nil)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodPost, WebhookPath+"?topic=payment&id=555", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"555"}, payments.asked)
	assert.Equal(t, "u1", accounts.user)
	assert.Equal(t, store.PlanUpdate{
		Plan:           "monthly",
		EndsAt:         now.Add(30 * 24 * time.Hour),
		SubscriptionID: "555",
		CustomerID:     "c-1",
	}, accounts.update)
	assert.Equal(t, []string{"u1"}, plans.users)
}

func TestWebhook_ReadsBody(t *testing.T) {
	payments := &fakePayments{payment: approved(`{"user_id":"u1","plan_type":"quarterly"}`)}
	accounts := &fakeActivator{}
	h := NewWebhookHandler(payments, accounts, nil, nil)

	body := strings.NewReader(`{"type":"payment","data":{"id":777}}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"777"}, payments.asked)
	assert.Equal(t, 1, accounts.calls)
}

func TestWebhook_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		payments   *fakePayments
		accounts   *fakeActivator
		wantStatus int
		wantUpdate bool
	}{
		{
			name:       "non-payment topic",
			target:     WebhookPath + "?topic=merchant_order&id=1",
			payments:   &fakePayments{},
			accounts:   &fakeActivator{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing id",
			target:     WebhookPath + "?topic=payment",
			payments:   &fakePayments{},
			accounts:   &fakeActivator{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "pending payment",
			target:     WebhookPath + "?topic=payment&id=1",
			payments:   &fakePayments{payment: &Payment{ID: "1", Status: "pending"}},
			accounts:   &fakeActivator{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad reference",
			target:     WebhookPath + "?type=payment&data.id=1",
			payments:   &fakePayments{payment: approved("{}")},
			accounts:   &fakeActivator{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "lookup failure",
			target:     WebhookPath + "?topic=payment&id=1",
			payments:   &fakePayments{err: errors.New("timeout")},
			accounts:   &fakeActivator{},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "activation failure",
			target:     WebhookPath + "?topic=payment&id=1",
			payments:   &fakePayments{payment: approved(`{"user_id":"u1","plan_type":"monthly"}`)},
			accounts:   &fakeActivator{err: store.ErrNotFound},
			wantStatus: http.StatusInternalServerError,
			wantUpdate: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(tt.payments, tt.accounts, nil, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUpdate, tt.accounts.calls > 0)
		})
	}
}

type logEntry struct {
	Msg    string `json:"msg"`
	Level  string `json:"level"`
	URL    string `json:"url"`
	Agent  string `json:"agent"`
	Status int    `json:"status"`
	IP     string `json:"ip"`
	Method string `json:"method"`
}

func TestLogWith(t *testing.T) {
	b := bytes.Buffer{}
	l := slog.New(slog.NewJSONHandler(&b, &slog.HandlerOptions{}))
	m := LogWith(l)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("POST", "/webhooks/payments?id=123", nil)
	req.RemoteAddr = "1.2.3.4"
	req.Header.Set("User-Agent", "test-runner")

	rec := httptest.NewRecorder()
	m(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)

	var e logEntry
	require.NoError(t, json.Unmarshal(b.Bytes(), &e))
	assert.Equal(t, "request received", e.Msg)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "/webhooks/payments?id=123", e.URL)
	assert.Equal(t, "test-runner", e.Agent)
	assert.Equal(t, 418, e.Status)
	assert.Equal(t, "1.2.3.4", e.IP)
	assert.Equal(t, "POST", e.Method)
}

func TestNewServer_Routes(t *testing.T) {
	accounts := &fakeActivator{}
	h := NewWebhookHandler(&fakePayments{}, accounts, nil, nil)
	srv := NewServer(":0", h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath+"?topic=ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
