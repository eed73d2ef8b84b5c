package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMerchantServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/merchants/by-api-key", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("X-API-Key") {
		case "sk_test_good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"merchant_id":"m-1","name":"Acme","status":"active","primary_color":"#111111"}`))
		case "sk_test_boom":
			http.Error(w, "db down", http.StatusInternalServerError)
		default:
			http.Error(w, `{"detail":"Merchant not found"}`, http.StatusNotFound)
		}
	})
	mux.HandleFunc("/api/v1/merchants/m-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"merchant_id":"m-1","name":"Acme","status":"suspended","webhook_url":"https://acme.test/hook"}`))
	})
	mux.HandleFunc("/api/v1/merchants/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestMerchantClient_GetMerchantByAPIKey(t *testing.T) {
	srv := newMerchantServer(t)
	client := NewMerchantClient(srv.URL+"/", time.Second)

	m, err := client.GetMerchantByAPIKey(context.Background(), "sk_test_good")
	require.NoError(t, err)
	assert.Equal(t, "m-1", m.MerchantID)
	assert.True(t, m.IsActive())
	assert.Equal(t, "#111111", m.PrimaryColor)

	_, err = client.GetMerchantByAPIKey(context.Background(), "sk_test_unknown")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = client.GetMerchantByAPIKey(context.Background(), "sk_test_boom")
	assert.ErrorIs(t, err, ErrMerchantUnavailable)
}

func TestMerchantClient_GetMerchant(t *testing.T) {
	srv := newMerchantServer(t)
	client := NewMerchantClient(srv.URL, time.Second)

	m, err := client.GetMerchant(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test/hook", m.WebhookURL)
	assert.False(t, m.IsActive())

	_, err = client.GetMerchant(context.Background(), "m-404")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}

func TestMerchantClient_Unreachable(t *testing.T) {
	srv := newMerchantServer(t)
	url := srv.URL
	srv.Close()

	_, err := NewMerchantClient(url, 200*time.Millisecond).GetMerchant(context.Background(), "m-1")
	assert.ErrorIs(t, err, ErrMerchantUnavailable)
}
