package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/simulado/internal/subscription"
)

// StatusApproved is the payment status that activates a plan.
const StatusApproved = "approved"

// ErrNotConfigured is returned when no provider token is set.
var ErrNotConfigured = errors.New("payment provider token not configured")

// Offer is what a plan costs at checkout.
type Offer struct {
	Title        string
	Price        float64
	Installments int
}

// Offers lists the price of each paid plan.
var Offers = map[subscription.Plan]Offer{
	subscription.PlanMonthly:    {Title: "Simulado Premium - Mensal (30 dias)", Price: 29.90, Installments: 1},
	subscription.PlanQuarterly:  {Title: "Simulado Premium - Trimestral (90 dias)", Price: 74.70, Installments: 3},
	subscription.PlanSemiannual: {Title: "Simulado Premium - Semestral (180 dias)", Price: 119.40, Installments: 6},
}

// CheckoutRequest describes a purchase.
type CheckoutRequest struct {
	UserID    string
	Email     string
	Plan      subscription.Plan
	ReturnURL string
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID                string
	Status            string
	ExternalReference string
	PayerID           string
}

// ProviderError is a non-2xx answer from the payment provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Body)
}

// HTTPGateway talks to the payment provider's REST API.
type HTTPGateway struct {
	baseURL         string
	token           string
	notificationURL string
	client          *http.Client
}

// NewHTTPGateway creates a gateway. notificationURL is where the provider
// posts payment notifications; it may be empty.
func NewHTTPGateway(baseURL, token, notificationURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:         strings.TrimRight(baseURL, "/"),
		token:           strings.TrimSpace(token),
		notificationURL: notificationURL,
		client:          &http.Client{Timeout: 15 * time.Second},
	}
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type preference struct {
	Items []preferenceItem `json:"items"`
	Payer struct {
		Email string `json:"email,omitempty"`
	} `json:"payer"`
	PaymentMethods struct {
		Installments        int `json:"installments"`
		DefaultInstallments int `json:"default_installments"`
	} `json:"payment_methods"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	ExternalReference string            `json:"external_reference"`
}

// CreateCheckout creates a checkout for the plan and returns the URL the
// user should open to pay.
func (g *HTTPGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if g.token == "" {
		return "", ErrNotConfigured
	}
	offer, ok := Offers[req.Plan]
	if !ok {
		return "", fmt.Errorf("plan %q cannot be bought", req.Plan)
	}
	ref, err := Reference{UserID: req.UserID, Plan: req.Plan}.Encode()
	if err != nil {
		return "", err
	}

	var p preference
	p.Items = []preferenceItem{{Title: offer.Title, Quantity: 1, CurrencyID: "BRL", UnitPrice: offer.Price}}
	p.Payer.Email = req.Email
	p.PaymentMethods.Installments = offer.Installments
	p.PaymentMethods.DefaultInstallments = offer.Installments
	p.NotificationURL = g.notificationURL
	p.ExternalReference = ref
	if origin := strings.TrimRight(req.ReturnURL, "/"); origin != "" {
		p.BackURLs = map[string]string{
			"success": origin + "/?status=success",
			"failure": origin + "/?status=failure",
			"pending": origin + "/?status=pending",
		}
		p.AutoReturn = StatusApproved
	}

	var out struct {
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	if err := g.do(ctx, http.MethodPost, "/checkout/preferences", p, &out); err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	if out.InitPoint != "" {
		return out.InitPoint, nil
	}
	if out.SandboxInitPoint != "" {
		return out.SandboxInitPoint, nil
	}
	return "", errors.New("create checkout: provider returned no checkout url")
}

// Payment fetches a payment by id.
func (g *HTTPGateway) Payment(ctx context.Context, id string) (*Payment, error) {
	if g.token == "" {
		return nil, ErrNotConfigured
	}
	var out struct {
		ID                flexID `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
		Payer             struct {
			ID flexID `json:"id"`
		} `json:"payer"`
	}
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", id, err)
	}
	return &Payment{
		ID:                string(out.ID),
		Status:            out.Status,
		ExternalReference: out.ExternalReference,
		PayerID:           string(out.Payer.ID),
	}, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
