package plexa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatheusEger/fiisync/internal/httpx"
)

// memTokenStore keeps the token in memory for tests.
type memTokenStore struct {
	mu    sync.Mutex
	token string
	saves int
}

func (s *memTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.saves++
	return nil
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "data": data})
}

func TestGetDividends_LazyLoginAndFetch(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/site/login":
			logins++
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "user@example.com", creds["usuEmail"])
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok-1"})
		case "/json/dividendo/ABCD11/3600":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			writeEnvelope(w, []map[string]string{
				{"dataCom": "31/01/2024", "valor": "1,00"},
				{"dataCom": "29/02/2024", "valor": "0,95"},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	tokens := &memTokenStore{}
	client := NewClient(Credentials{Email: "user@example.com", Password: "secret"}, tokens,
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	dividends, err := client.GetDividends(context.Background(), "ABCD11", 3600)
	require.NoError(t, err)
	require.Len(t, dividends, 2)
	assert.Equal(t, "31/01/2024", dividends[0].ComDate)
	assert.Equal(t, "1,00", dividends[0].Value)

	assert.Equal(t, 1, logins)
	assert.Equal(t, "tok-1", tokens.token, "token persisted for later runs")
}

func TestGetDividends_ReusesPersistedToken(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/site/login" {
			logins++
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh"})
			return
		}
		assert.Equal(t, "Bearer stored", r.Header.Get("Authorization"))
		writeEnvelope(w, []map[string]string{})
	}))
	defer srv.Close()

	tokens := &memTokenStore{token: "stored"}
	client := NewClient(Credentials{}, tokens,
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	_, err := client.GetDividends(context.Background(), "ABCD11", 12)
	require.NoError(t, err)
	assert.Equal(t, 0, logins, "no login while the stored token is accepted")
}

func TestGet_ReauthOnce(t *testing.T) {
	logins := 0
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/site/login" {
			logins++
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok-2"})
			return
		}
		calls++
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeEnvelope(w, []map[string]string{{"dataCom": "31/03/2024", "valor": "1,10"}})
	}))
	defer srv.Close()

	tokens := &memTokenStore{token: "expired"}
	client := NewClient(Credentials{}, tokens,
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	dividends, err := client.GetDividends(context.Background(), "ABCD11", 12)
	require.NoError(t, err)
	require.Len(t, dividends, 1)

	assert.Equal(t, 1, logins, "exactly one re-login")
	assert.Equal(t, 2, calls, "original call retried once")
	assert.Equal(t, "tok-2", tokens.token)
}

func TestGet_SecondUnauthorizedIsFatal(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/site/login" {
			logins++
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "still-bad"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, &memTokenStore{token: "expired"},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	_, err := client.GetDividends(context.Background(), "ABCD11", 12)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, logins, "no third login attempt")
}

func TestGetDividends_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, &memTokenStore{token: "tok"},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	dividends, err := client.GetDividends(context.Background(), "GONE11", 12)
	require.NoError(t, err, "404 for a ticker is a valid empty result")
	assert.Empty(t, dividends)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, []map[string]string{{"data": "02/01/2024", "fechamento": "101,50"}})
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, &memTokenStore{token: "tok"},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	bars, err := client.GetHistory(context.Background(), "ABCD11", 30)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "101,50", bars[0].Close)
	assert.Equal(t, 3, attempts)
}

func TestGet_RetriesExhaustedSurfacesError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, &memTokenStore{token: "tok"},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	_, err := client.GetHistory(context.Background(), "ABCD11", 30)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestListFunds_DecodesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/fundo", r.URL.Path)
		writeEnvelope(w, []map[string]string{{
			"ticker":            "ABCD11",
			"nome":              "Fundo ABCD",
			"segmento":          "Logísticos",
			"gestao":            "Gestora X",
			"admin":             "Admin Y",
			"ultimoPatrLiquido": "1.234.567,89",
			"ultimoPlDataRef":   "03/2024",
		}})
	}))
	defer srv.Close()

	client := NewClient(Credentials{}, &memTokenStore{token: "tok"},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	funds, err := client.ListFunds(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "ABCD11", funds[0].Ticker)
	assert.Equal(t, "Fundo ABCD", funds[0].Name)
	assert.Equal(t, "1.234.567,89", funds[0].NetAssetValue)
	assert.Equal(t, "03/2024", funds[0].NetAssetDateRef)
}

func TestLoginFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/site/login" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Email: "u", Password: "wrong"}, &memTokenStore{},
		WithBaseURL(srv.URL), WithRetryPolicy(httpx.ZeroDelay()), WithRateLimit(1000))

	_, err := client.ListFunds(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLogin)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
