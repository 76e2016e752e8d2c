package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const purchasePath = "/api/data/"

// HTTPProviderConfig configures one provider endpoint.
type HTTPProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Limiter *rate.Limiter
}

// HTTPProvider speaks the JSON purchase API shared by the supported providers.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHTTPProvider(logger *slog.Logger, cfg HTTPProviderConfig) *HTTPProvider {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &HTTPProvider{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With("provider", cfg.Name),
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

type purchasePayload struct {
	Network      string `json:"network"`
	MobileNumber string `json:"mobile_number"`
	Plan         string `json:"plan"`
	PortedNumber bool   `json:"Ported_number"`
	RequestID    string `json:"request_id,omitempty"`
}

type purchaseResponse struct {
	Status      string `json:"Status"`
	Ident       string `json:"ident"`
	APIResponse string `json:"api_response"`
	Message     string `json:"message"`
}

func (r purchaseResponse) successful() bool {
	return strings.EqualFold(r.Status, "successful") || strings.EqualFold(r.Status, "success")
}

// Purchase posts the order and interprets the provider's status. Transport failures and
// non-2xx responses are returned as errors.
func (p *HTTPProvider) Purchase(ctx context.Context, req PurchaseRequest) (*Outcome, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("provider %s rate limit: %w", p.name, err)
	}

	body, err := json.Marshal(purchasePayload{
		Network:      req.NetworkID,
		MobileNumber: req.Recipient,
		Plan:         req.PlanID,
		PortedNumber: req.PortedNumber,
		RequestID:    req.TxRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchase for %s: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+purchasePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider %s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", p.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("Provider rejected purchase", "status", resp.StatusCode, "tx_ref", req.TxRef, "body", string(raw))
		return nil, fmt.Errorf("provider %s returned HTTP %d", p.name, resp.StatusCode)
	}

	var decoded purchaseResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}

	message := decoded.APIResponse
	if message == "" {
		message = decoded.Message
	}

	return &Outcome{
		Success:   decoded.successful(),
		Reference: decoded.Ident,
		Message:   message,
	}, nil
}
