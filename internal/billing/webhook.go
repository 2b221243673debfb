package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/store"
)

// WebhookPath is where the provider posts payment notifications.
const WebhookPath = "/webhooks/payments"

// PaymentLookup fetches a payment from the provider.
type PaymentLookup interface {
	Payment(ctx context.Context, id string) (*Payment, error)
}

// PlanActivator stores a plan change.
type PlanActivator interface {
	UpdatePlan(ctx context.Context, userID string, u store.PlanUpdate) error
}

// PlanInvalidator drops a cached plan.
type PlanInvalidator interface {
	Invalidate(userID string)
}

// WebhookHandler handles payment notifications. Notifications it does
// not act on are acknowledged with 200 so the provider stops sending
// them; lookup or activation failures answer 500 so it retries.
type WebhookHandler struct {
	payments PaymentLookup
	accounts PlanActivator
	plans    PlanInvalidator
	now      func() time.Time
	log      *slog.Logger
}

// NewWebhookHandler creates the handler. plans may be nil.
func NewWebhookHandler(payments PaymentLookup, accounts PlanActivator, plans PlanInvalidator, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		accounts: accounts,
		plans:    plans,
		now:      time.Now,
		log:      logging.OrDiscard(log).With("component", "webhook"),
	}
}

type notification struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	ID    flexID `json:"id"`
	Data  struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic, paymentID := readNotification(r)
	if topic != "payment" || paymentID == "" {
		h.log.Info("ignored notification", "topic", topic, "id", paymentID)
		writeJSON(w, http.StatusOK, map[string]any{"message": "ignored non-payment event"})
		return
	}

	ctx := r.Context()
	p, err := h.payments.Payment(ctx, paymentID)
	if err != nil {
		h.log.Error("payment lookup failed", "id", paymentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "payment lookup failed"})
		return
	}
	if p.Status != StatusApproved {
		h.log.Info("payment not approved", "id", paymentID, "status", p.Status)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	ref, err := ParseReference(p.ExternalReference)
	if err != nil {
		// Retrying cannot fix a bad reference.
		h.log.Error("unusable payment reference", "id", paymentID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"message": "missing metadata"})
		return
	}

	endsAt := h.now().Add(ref.Plan.Duration())
	err = h.accounts.UpdatePlan(ctx, ref.UserID, store.PlanUpdate{
		Plan:           string(ref.Plan),
		EndsAt:         endsAt,
		SubscriptionID: paymentID,
		CustomerID:     p.PayerID,
	})
	if err != nil {
		h.log.Error("plan activation failed", "user_id", ref.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "activation failed"})
		return
	}
	if h.plans != nil {
		h.plans.Invalidate(ref.UserID)
	}

	h.log.Info("plan activated", "user_id", ref.UserID, "plan", ref.Plan, "ends_at", endsAt)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// readNotification takes topic and id from the query string, falling
// back to the JSON body for whatever is missing.
func readNotification(r *http.Request) (topic, id string) {
	q := r.URL.Query()
	topic = firstNonEmpty(q.Get("topic"), q.Get("type"))
	id = firstNonEmpty(q.Get("id"), q.Get("data.id"))
	if topic != "" && id != "" {
		return topic, id
	}

	var n notification
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&n); err != nil && !errors.Is(err, io.EOF) {
		return topic, id
	}
	topic = firstNonEmpty(topic, n.Topic, n.Type)
	id = firstNonEmpty(id, string(n.ID), string(n.Data.ID))
	return topic, id
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
