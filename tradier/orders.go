package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/thammo4/uvatradier/order"
	"github.com/thammo4/uvatradier/tabular"
)

// OrderReceipt is the broker's acknowledgment of a submitted order.
type OrderReceipt struct {
	ID        int    `json:"id"`
	Status    string `json:"status"`
	PartnerID string `json:"partner_id"`
}

// BrokerRejectError reports an order the broker accepted at the transport
// level but refused to book, carrying its reasons verbatim.
type BrokerRejectError struct {
	Messages []string
}

func (e *BrokerRejectError) Error() string {
	return "tradier: order rejected: " + strings.Join(e.Messages, "; ")
}

// brokerErrors is the errors envelope the order endpoints use. The error
// field is a single string for one reason and an array for several.
type brokerErrors struct {
	Errors struct {
		Error json.RawMessage `json:"error"`
	} `json:"errors"`
}

func (b brokerErrors) messages() []string {
	raw := b.Errors.Error
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return []string{string(raw)}
}

// PlaceOrder submits a built payload to the configured account. A broker
// rejection comes back as *BrokerRejectError; a successful submission
// returns the receipt with the assigned order id.
func (c *Client) PlaceOrder(ctx context.Context, payload order.Payload) (*OrderReceipt, error) {
	raw, err := c.send(ctx, http.MethodPost, c.accountPath("orders"), nil, url.Values(payload))
	if err != nil {
		return nil, err
	}

	var rejection brokerErrors
	if json.Unmarshal(raw, &rejection) == nil {
		if msgs := rejection.messages(); len(msgs) > 0 {
			c.logger.Warn("order rejected by broker", zap.Strings("reasons", msgs))
			return nil, &BrokerRejectError{Messages: msgs}
		}
	}

	var envelope struct {
		Order *OrderReceipt `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Order == nil {
		return nil, &tabular.UnexpectedShapeError{Path: "order", Detail: "acknowledgment missing from response"}
	}

	c.logger.Info("order placed",
		zap.Int("order_id", envelope.Order.ID),
		zap.String("status", envelope.Order.Status))
	return envelope.Order, nil
}

// PreviewOrder submits a payload in preview mode and returns the broker's
// cost and margin estimate without booking anything. The preview flag is
// forced on regardless of how the payload was built.
func (c *Client) PreviewOrder(ctx context.Context, payload order.Payload) (tabular.Row, error) {
	body := url.Values(payload)
	body.Set("preview", "true")

	raw, err := c.send(ctx, http.MethodPost, c.accountPath("orders"), nil, body)
	if err != nil {
		return nil, err
	}

	var rejection brokerErrors
	if json.Unmarshal(raw, &rejection) == nil {
		if msgs := rejection.messages(); len(msgs) > 0 {
			return nil, &BrokerRejectError{Messages: msgs}
		}
	}
	rows, err := tabular.NormalizeBytes(raw, "order", "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &tabular.UnexpectedShapeError{Path: "order", Detail: "preview missing from response"}
	}
	return rows[0], nil
}

// ModifyOrder changes the mutable attributes of a pending order. Supported
// keys are type, duration, price and stop; only the supplied ones change.
func (c *Client) ModifyOrder(ctx context.Context, orderID int, changes url.Values) (*OrderReceipt, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("tradier: no changes supplied for order %d", orderID)
	}

	raw, err := c.send(ctx, http.MethodPut, c.accountPath(fmt.Sprintf("orders/%d", orderID)), nil, changes)
	if err != nil {
		return nil, err
	}

	var rejection brokerErrors
	if json.Unmarshal(raw, &rejection) == nil {
		if msgs := rejection.messages(); len(msgs) > 0 {
			return nil, &BrokerRejectError{Messages: msgs}
		}
	}

	var envelope struct {
		Order *OrderReceipt `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Order == nil {
		return nil, &tabular.UnexpectedShapeError{Path: "order", Detail: "acknowledgment missing from response"}
	}
	return envelope.Order, nil
}

// CancelOrder cancels a pending order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID int) (*OrderReceipt, error) {
	raw, err := c.send(ctx, http.MethodDelete, c.accountPath(fmt.Sprintf("orders/%d", orderID)), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Order *OrderReceipt `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Order == nil {
		return nil, &tabular.UnexpectedShapeError{Path: "order", Detail: "acknowledgment missing from response"}
	}

	c.logger.Info("order canceled", zap.Int("order_id", envelope.Order.ID))
	return envelope.Order, nil
}

// StreamSession opens a market-event streaming session and returns its id.
// Session ids expire quickly; request one immediately before connecting.
func (c *Client) StreamSession(ctx context.Context) (string, error) {
	raw, err := c.send(ctx, http.MethodPost, "v1/markets/events/session", nil, nil)
	if err != nil {
		return "", err
	}

	var envelope struct {
		Stream struct {
			SessionID string `json:"sessionid"`
			URL       string `json:"url"`
		} `json:"stream"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Stream.SessionID == "" {
		return "", &tabular.UnexpectedShapeError{Path: "stream.sessionid", Detail: "session id missing from response"}
	}
	return envelope.Stream.SessionID, nil
}

// StreamURL returns the websocket host the client is configured against.
func (c *Client) StreamURL() string {
	return c.cfg.streamURL()
}
