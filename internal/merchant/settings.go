// Package merchant holds the merchant's provider settings and keeps the
// cached payment limits fresh.
package merchant

import (
	"slices"
	"strings"
	"sync/atomic"

	"bnpl-gateway/internal/limits"
	"bnpl-gateway/internal/model"
)

// Environment selects which provider credentials and endpoints are used.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	return e == Sandbox || e == Production
}

// Credentials authenticate against the provider API.
type Credentials struct {
	MerchantID string `json:"merchant_id" yaml:"merchant_id"`
	SecretKey  string `json:"secret_key" yaml:"secret_key"`
}

// Complete reports whether both halves are present.
func (c Credentials) Complete() bool {
	return c.MerchantID != "" && c.SecretKey != ""
}

// SupportedCurrencies are the store currencies the provider accepts.
var SupportedCurrencies = []string{"AUD", "CAD", "NZD", "USD"}

// CurrencySupported reports whether currency can be paid in installments.
func CurrencySupported(currency string) bool {
	return slices.Contains(SupportedCurrencies, strings.ToUpper(currency))
}

// Settings is one complete snapshot of merchant configuration.
// Snapshots are replaced whole, never mutated in place.
type Settings struct {
	Enabled     bool
	Environment Environment
	Sandbox     Credentials
	Production  Credentials
	Limits      limits.Limits

	// IntegrationVersion is the merchant's provider integration version
	// (e.g. "v2.1.0"). Versions below v2 capture without an amount.
	IntegrationVersion string
}

// ActiveCredentials returns the credentials for the selected environment.
func (s Settings) ActiveCredentials() (Credentials, error) {
	var c Credentials
	switch s.Environment {
	case Sandbox:
		c = s.Sandbox
	case Production:
		c = s.Production
	default:
		return Credentials{}, model.NewConfigurationError("unknown provider environment " + string(s.Environment))
	}
	if !c.Complete() {
		return Credentials{}, model.NewConfigurationError("missing " + string(s.Environment) + " merchant credentials")
	}
	return c, nil
}

// Holder publishes Settings snapshots to concurrent readers.
// Readers always see a complete snapshot, either the old one or the new one.
type Holder struct {
	current atomic.Pointer[Settings]
}

// NewHolder returns a holder seeded with s.
func NewHolder(s Settings) *Holder {
	h := &Holder{}
	h.Store(s)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() Settings {
	return *h.current.Load()
}

// Store replaces the snapshot.
func (h *Holder) Store(s Settings) {
	h.current.Store(&s)
}

// Update applies fn to a copy of the current snapshot and publishes the result.
// fn may run more than once if another writer races it.
func (h *Holder) Update(fn func(*Settings)) Settings {
	for {
		old := h.current.Load()
		next := *old
		fn(&next)
		if h.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// SetLimits publishes new cached limits.
func (h *Holder) SetLimits(l limits.Limits) {
	h.Update(func(s *Settings) { s.Limits = l })
}

// InvalidateLimits marks the cached limits unavailable. Called when the
// provider rejects our credentials so that no new checkout is offered.
func (h *Holder) InvalidateLimits() {
	h.SetLimits(limits.Unavailable())
}

// Limits returns the cached limits.
func (h *Holder) Limits() limits.Limits {
	return h.Load().Limits
}
