package tradier

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thammo4/uvatradier/order"
)

func TestPlaceOrder(t *testing.T) {
	t.Run("posts form body and decodes receipt", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/accounts/VA12345678/orders", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "equity", r.PostForm.Get("class"))
			assert.Equal(t, "UNP", r.PostForm.Get("symbol"))
			assert.Equal(t, "buy", r.PostForm.Get("side"))
			assert.Equal(t, "220.09", r.PostForm.Get("price"))

			w.Write([]byte(`{"order": {"id": 8248093, "status": "ok", "partner_id": "pid-1"}}`))
		})

		payload, err := order.Equity("UNP", order.Buy, 10, order.Limit, order.GTC,
			order.WithLimitPrice(decimal.NewFromFloat(220.09)))
		require.NoError(t, err)

		receipt, err := c.PlaceOrder(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, 8248093, receipt.ID)
		assert.Equal(t, "ok", receipt.Status)
		assert.Equal(t, "pid-1", receipt.PartnerID)
	})

	t.Run("single rejection reason", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors": {"error": "Backoffice rejected override of the order."}}`))
		})

		payload, err := order.Equity("UNP", order.Buy, 10, order.Market, order.Day)
		require.NoError(t, err)

		_, err = c.PlaceOrder(context.Background(), payload)
		var rerr *BrokerRejectError
		require.ErrorAs(t, err, &rerr)
		require.Len(t, rerr.Messages, 1)
		assert.Contains(t, rerr.Error(), "Backoffice")
	})

	t.Run("multiple rejection reasons", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors": {"error": ["quantity exceeds limit", "market closed"]}}`))
		})

		payload, err := order.Equity("UNP", order.Buy, 10, order.Market, order.Day)
		require.NoError(t, err)

		_, err = c.PlaceOrder(context.Background(), payload)
		var rerr *BrokerRejectError
		require.ErrorAs(t, err, &rerr)
		assert.Len(t, rerr.Messages, 2)
	})

	t.Run("http rejection stays a transport error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		})

		payload, err := order.Equity("UNP", order.Buy, 10, order.Market, order.Day)
		require.NoError(t, err)

		_, err = c.PlaceOrder(context.Background(), payload)
		var terr *TransportError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestPreviewOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("preview"))
		w.Write([]byte(`{"order": {"status": "ok", "commission": 0, "cost": 2200.90, "margin_change": 0}}`))
	})

	payload, err := order.Equity("UNP", order.Buy, 10, order.Limit, order.Day,
		order.WithLimitPrice(decimal.NewFromFloat(220.09)))
	require.NoError(t, err)

	row, err := c.PreviewOrder(context.Background(), payload)
	require.NoError(t, err)
	cost, ok := row.Float("cost")
	require.True(t, ok)
	assert.Equal(t, 2200.90, cost)
}

func TestModifyOrder(t *testing.T) {
	t.Run("puts only the supplied changes", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/v1/accounts/VA12345678/orders/8248093", r.URL.Path)

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "215.50", r.PostForm.Get("price"))
			assert.Empty(t, r.PostForm.Get("duration"))

			w.Write([]byte(`{"order": {"id": 8248093, "status": "ok"}}`))
		})

		receipt, err := c.ModifyOrder(context.Background(), 8248093, map[string][]string{
			"price": {"215.50"},
		})
		require.NoError(t, err)
		assert.Equal(t, 8248093, receipt.ID)
	})

	t.Run("empty change set fails fast", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := c.ModifyOrder(context.Background(), 8248093, nil)
		assert.Error(t, err)
	})
}

func TestCancelOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/accounts/VA12345678/orders/8248093", r.URL.Path)
		w.Write([]byte(`{"order": {"id": 8248093, "status": "ok"}}`))
	})

	receipt, err := c.CancelOrder(context.Background(), 8248093)
	require.NoError(t, err)
	assert.Equal(t, "ok", receipt.Status)
}

func TestStreamSession(t *testing.T) {
	t.Run("returns the session id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/markets/events/session", r.URL.Path)
			w.Write([]byte(`{"stream": {"sessionid": "sess-abc123", "url": "https://stream.tradier.com/v1/markets/events"}}`))
		})

		id, err := c.StreamSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sess-abc123", id)
	})

	t.Run("missing id is a shape error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"stream": {}}`))
		})

		_, err := c.StreamSession(context.Background())
		assert.Error(t, err)
	})
}
