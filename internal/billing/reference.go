// Package billing creates checkouts with the payment provider and
// activates plans when its webhook reports an approved payment.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/simulado/internal/subscription"
)

// ErrIncompleteReference is returned for a reference without a user or plan.
var ErrIncompleteReference = errors.New("external reference missing user_id or plan_type")

// Reference is attached to a checkout as its external reference and comes
// back with the payment.
type Reference struct {
	UserID string            `json:"user_id"`
	Plan   subscription.Plan `json:"plan_type"`
}

// Encode returns the JSON form of the reference.
func (r Reference) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode reference: %w", err)
	}
	return string(b), nil
}

// ParseReference decodes and checks a reference. An empty string decodes
// to an incomplete reference.
func ParseReference(s string) (Reference, error) {
	var r Reference
	if s == "" {
		return r, ErrIncompleteReference
	}
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return r, fmt.Errorf("decode reference: %w", err)
	}
	if r.UserID == "" || r.Plan == "" {
		return r, ErrIncompleteReference
	}
	if _, err := subscription.ParsePlan(string(r.Plan)); err != nil || !r.Plan.IsPremium() {
		return r, fmt.Errorf("reference plan %q: %w", r.Plan, ErrIncompleteReference)
	}
	return r, nil
}

// flexID accepts a provider id sent either as a JSON number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", b)
	}
	*f = flexID(n.String())
	return nil
}
