// Package provider talks to the external data fulfillment providers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/vtu-wallet-ledger/internal/config"
)

var ErrUnknownProvider = errors.New("unknown provider")

// PurchaseRequest asks a provider to deliver one plan to a phone number.
type PurchaseRequest struct {
	NetworkID    string
	PlanID       string
	Recipient    string
	TxRef        string
	PortedNumber bool
}

// Outcome is the provider's verdict. A nil error with Success false is a declined purchase.
type Outcome struct {
	Success   bool
	Reference string
	Message   string
}

type Provider interface {
	Name() string
	Purchase(ctx context.Context, req PurchaseRequest) (*Outcome, error)
}

// Router selects the provider for a plan, falling back to the configured default.
type Router struct {
	providers map[string]Provider
	fallback  string
}

// NewRouter creates a router over the given providers. Unknown names resolve to fallback
// when it is set.
func NewRouter(fallback string, providers ...Provider) *Router {
	r := &Router{
		providers: make(map[string]Provider, len(providers)),
		fallback:  fallback,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// NewRouterFromConfig builds one rate limited HTTP provider per configured endpoint.
func NewRouterFromConfig(logger *slog.Logger, cfg *config.ProviderConfig) *Router {
	providers := make([]Provider, 0, len(cfg.Endpoints))
	for name, baseURL := range cfg.Endpoints {
		providers = append(providers, NewHTTPProvider(logger, HTTPProviderConfig{
			Name:    name,
			BaseURL: baseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		}))
	}
	return NewRouter(cfg.Default, providers...)
}

// Resolve returns the provider registered under name, or the default when name is empty
// or unknown.
func (r *Router) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if p, ok := r.providers[r.fallback]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Default is the name purchases route to when a plan names no configured provider.
func (r *Router) Default() string {
	return r.fallback
}

// Names lists the registered providers in alphabetical order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TimedPurchase calls p with its own deadline; a timeout is reported as an error like any
// other transport failure.
func TimedPurchase(ctx context.Context, p Provider, timeout time.Duration, req PurchaseRequest) (*Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Purchase(callCtx, req)
}
