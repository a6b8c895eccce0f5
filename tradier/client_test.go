package tradier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thammo4/uvatradier/tabular"
)

// newTestClient points a client at a stub broker.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{
		AccountID: "VA12345678",
		Token:     "test-token",
		BaseURL:   server.URL,
	})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := New(Config{Token: "tok"})
		assert.Error(t, err)

		_, err = New(Config{AccountID: "VA12345678"})
		assert.Error(t, err)
	})

	t.Run("sandbox is the default host", func(t *testing.T) {
		assert.Equal(t, sandboxBaseURL, Config{}.baseURL())
		assert.Equal(t, liveBaseURL, Config{LiveTrade: true}.baseURL())
		assert.Equal(t, "http://x", Config{BaseURL: "http://x", LiveTrade: true}.baseURL())
	})
}

func TestSend(t *testing.T) {
	t.Run("sets auth and accept headers", func(t *testing.T) {
		var seen *http.Request
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			seen = r.Clone(context.Background())
			w.Write([]byte(`{"profile": {"id": "id-x", "name": "Fat Tony"}}`))
		})

		rows, err := c.UserProfile(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Fat Tony", rows[0].String("name"))

		require.NotNil(t, seen)
		assert.Equal(t, "Bearer test-token", seen.Header.Get("Authorization"))
		assert.Equal(t, "application/json", seen.Header.Get("Accept"))
		assert.Equal(t, "/v1/user/profile", seen.URL.Path)
	})

	t.Run("non-2xx surfaces a transport error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Invalid Access Token", http.StatusUnauthorized)
		})

		_, err := c.AccountBalance(context.Background())
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, http.StatusUnauthorized, terr.StatusCode)
		assert.Contains(t, terr.Error(), "401")
	})

	t.Run("network failure surfaces a transport error", func(t *testing.T) {
		c, err := New(Config{
			AccountID: "VA12345678",
			Token:     "test-token",
			BaseURL:   "http://127.0.0.1:1", // nothing listens here
			Timeout:   100 * time.Millisecond,
		})
		require.NoError(t, err)

		_, err = c.Quotes(context.Background(), []string{"AAPL"})
		var terr *TransportError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestAccount(t *testing.T) {
	t.Run("balance flattens margin fields", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/accounts/VA12345678/balances", r.URL.Path)
			w.Write([]byte(`{"balances": {
				"total_equity": 74314.82,
				"margin": {"fed_call": 0, "stock_buying_power": 77839.68}
			}}`))
		})

		row, err := c.AccountBalance(context.Background())
		require.NoError(t, err)
		f, ok := row.Float("margin.stock_buying_power")
		require.True(t, ok)
		assert.Equal(t, 77839.68, f)
	})

	t.Run("no orders is zero rows", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "true", r.URL.Query().Get("includeTags"))
			w.Write([]byte(`{"orders": "null"}`))
		})

		rows, err := c.Orders(context.Background())
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("positions filter by kind", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"positions": {"position": [
				{"symbol": "AAPL", "quantity": 10},
				{"symbol": "LMT240119C00100000", "quantity": 1}
			]}}`))
		})

		rows, err := c.Positions(context.Background(), PositionFilter{Kind: tabular.KindOption})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "LMT240119C00100000", rows[0].String("symbol"))
	})

	t.Run("gainloss defaults", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "1", q.Get("page"))
			assert.Equal(t, "100", q.Get("limit"))
			assert.Equal(t, "closeDate", q.Get("sortBy"))
			assert.Equal(t, "desc", q.Get("sort"))
			assert.Equal(t, "KO", q.Get("symbol"))
			w.Write([]byte(`{"gainloss": {"closed_position": {"symbol": "KO", "gain_loss": 3.52}}}`))
		})

		rows, err := c.GainLoss(context.Background(), GainLossParams{Symbol: "ko"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})
}

func TestQuotes(t *testing.T) {
	t.Run("uppercases and joins symbols", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "AAPL,HAL", r.URL.Query().Get("symbols"))
			w.Write([]byte(`{"quotes": {"quote": [
				{"symbol": "AAPL", "last": 182.31},
				{"symbol": "HAL", "last": 35.10}
			]}}`))
		})

		rows, err := c.Quotes(context.Background(), []string{"aapl", "hal"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("empty symbol list fails fast", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := c.Quotes(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("last price", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"quotes": {"quote": {"symbol": "DFS", "last": 131.7}}}`))
		})

		last, err := c.LastPrice(context.Background(), "DFS")
		require.NoError(t, err)
		assert.Equal(t, "131.7", last.String())
	})

	t.Run("history fills default window", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "daily", q.Get("interval"))
			assert.NotEmpty(t, q.Get("start"))
			assert.NotEmpty(t, q.Get("end"))
			w.Write([]byte(`{"history": {"day": [{"date": "2026-08-31", "close": 10.0}]}}`))
		})

		rows, err := c.HistoricalQuotes(context.Background(), "F", "", "", "")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestLastMonday(t *testing.T) {
	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	for days := 0; days < 7; days++ {
		got := lastMonday(monday.AddDate(0, 0, days))
		assert.Equal(t, monday, got, "offset %d", days)
	}
}
