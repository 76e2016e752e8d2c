package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vtu-wallet-ledger/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPProvider(newTestLogger(), HTTPProviderConfig{
		Name:    "datastation",
		BaseURL: server.URL + "/",
		APIKey:  "secret",
		Timeout: time.Second,
	})
}

func TestHTTPProvider_Purchase(t *testing.T) {
	req := PurchaseRequest{NetworkID: "1", PlanID: "44", Recipient: "08030000000", TxRef: "ref-1", PortedNumber: true}

	t.Run("successful delivery", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/data/", r.URL.Path)
			assert.Equal(t, "Token secret", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "1", payload["network"])
			assert.Equal(t, "08030000000", payload["mobile_number"])
			assert.Equal(t, "44", payload["plan"])
			assert.Equal(t, true, payload["Ported_number"])
			assert.Equal(t, "ref-1", payload["request_id"])

			_, _ = w.Write([]byte(`{"Status":"successful","ident":"DS-123","api_response":"Dear customer, you have received 1GB"}`))
		})

		outcome, err := p.Purchase(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "DS-123", outcome.Reference)
		assert.Contains(t, outcome.Message, "1GB")
	})

	t.Run("declined", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"Status":"failed","message":"plan unavailable"}`))
		})

		outcome, err := p.Purchase(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.Equal(t, "plan unavailable", outcome.Message)
	})

	t.Run("http error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := p.Purchase(context.Background(), req)
		assert.ErrorContains(t, err, "returned HTTP 502")
	})

	t.Run("malformed body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})

		_, err := p.Purchase(context.Background(), req)
		assert.ErrorContains(t, err, "failed to decode datastation response")
	})

	t.Run("timeout", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})

		_, err := TimedPurchase(context.Background(), p, 20*time.Millisecond, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rate limited until deadline", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("request should not be sent")
		})
		p.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
		require.True(t, p.limiter.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := p.Purchase(ctx, req)
		assert.ErrorContains(t, err, "rate limit")
	})
}

type stubProvider struct{ name string }

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Purchase(context.Context, PurchaseRequest) (*Outcome, error) {
	return &Outcome{Success: true}, nil
}

func TestRouter_Resolve(t *testing.T) {
	router := NewRouter("datastation", stubProvider{"datastation"}, stubProvider{"husmodata"})

	p, err := router.Resolve("husmodata")
	require.NoError(t, err)
	assert.Equal(t, "husmodata", p.Name())

	p, err = router.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "datastation", p.Name())

	p, err = router.Resolve("direct")
	require.NoError(t, err)
	assert.Equal(t, "datastation", p.Name())

	assert.Equal(t, []string{"datastation", "husmodata"}, router.Names())
	assert.Equal(t, "datastation", router.Default())
}

func TestRouter_ResolveWithoutDefault(t *testing.T) {
	router := NewRouter("missing", stubProvider{"husmodata"})

	_, err := router.Resolve("direct")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestNewRouterFromConfig(t *testing.T) {
	router := NewRouterFromConfig(newTestLogger(), &config.ProviderConfig{
		Endpoints: map[string]string{"datastation": "http://ds.local", "husmodata": "http://hm.local"},
		Default:   "datastation",
		Timeout:   time.Second,
		RateLimit: 5,
		RateBurst: 1,
	})

	assert.Equal(t, []string{"datastation", "husmodata"}, router.Names())
	p, err := router.Resolve("husmodata")
	require.NoError(t, err)
	assert.Equal(t, "http://hm.local", p.(*HTTPProvider).baseURL)
}
