// Package order constructs the flat key-value payloads the Tradier order
// endpoint accepts. Builders are pure: they validate their inputs fail-fast,
// in a documented rule order, and never emit a partially constructed payload.
// Dispatch is the caller's responsibility.
package order

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

// Class identifies the order shape on the wire.
type Class string

const (
	ClassEquity   Class = "equity"
	ClassOption   Class = "option"
	ClassMultileg Class = "multileg"
	ClassCombo    Class = "combo"
)

// EquitySide is the trade side vocabulary for equity legs. Equity and option
// side sets are disjoint; a builder rejects a side from the wrong set.
type EquitySide string

const (
	Buy        EquitySide = "buy"
	BuyToCover EquitySide = "buy_to_cover"
	Sell       EquitySide = "sell"
	SellShort  EquitySide = "sell_short"
)

// OptionSide is the trade side vocabulary for option legs.
type OptionSide string

const (
	BuyToOpen   OptionSide = "buy_to_open"
	BuyToClose  OptionSide = "buy_to_close"
	SellToOpen  OptionSide = "sell_to_open"
	SellToClose OptionSide = "sell_to_close"
)

// Type is the execution instruction for the order.
type Type string

const (
	Market    Type = "market"
	Limit     Type = "limit"
	Stop      Type = "stop"
	StopLimit Type = "stop_limit"

	// Spread order types. For Credit the limit price is the minimum
	// acceptable net credit; for Debit it is the maximum acceptable net
	// cost. The broker applies that sign convention, not this package.
	Debit  Type = "debit"
	Credit Type = "credit"
	Even   Type = "even"
)

// Duration controls how long the broker works the order.
type Duration string

const (
	Day  Duration = "day"
	GTC  Duration = "gtc"
	Pre  Duration = "pre"
	Post Duration = "post"
)

// Leg is one option leg of a multileg or combo order.
type Leg struct {
	OptionSymbol string
	Side         OptionSide
	Quantity     int
}

// EquityLeg is the equity leg of a combo order.
type EquityLeg struct {
	Symbol   string
	Side     EquitySide
	Quantity int
}

// Payload is the transport-ready flat key-value form of an order.
type Payload = url.Values

// InvalidParameterError reports the first violated validation rule. It
// carries the offending field and value together with the expected
// constraint so failures can be asserted directly.
type InvalidParameterError struct {
	Field      string
	Value      interface{}
	Constraint string
	Err        error
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid order parameter %s=%v: want %s", e.Field, e.Value, e.Constraint)
}

func (e *InvalidParameterError) Unwrap() error {
	return e.Err
}

var (
	equitySides = map[EquitySide]bool{Buy: true, BuyToCover: true, Sell: true, SellShort: true}
	optionSides = map[OptionSide]bool{BuyToOpen: true, BuyToClose: true, SellToOpen: true, SellToClose: true}
	singleTypes = map[Type]bool{Market: true, Limit: true, Stop: true, StopLimit: true}
	spreadTypes = map[Type]bool{Market: true, Debit: true, Credit: true, Even: true}
	durations   = map[Duration]bool{Day: true, GTC: true, Pre: true, Post: true}
)

const (
	equitySideList = "one of buy, buy_to_cover, sell, sell_short"
	optionSideList = "one of buy_to_open, buy_to_close, sell_to_open, sell_to_close"
	singleTypeList = "one of market, limit, stop, stop_limit"
	spreadTypeList = "one of market, debit, credit, even"
	durationList   = "one of day, gtc, pre, post"
)

// Opt adjusts the optional fields of an order under construction.
type Opt func(*opts)

type opts struct {
	limit      *decimal.Decimal
	stop       *decimal.Decimal
	underlying string
	tag        string
	preview    bool
}

// WithLimitPrice sets the limit price. Required for limit and stop_limit
// single-leg orders and for debit and credit spreads.
func WithLimitPrice(p decimal.Decimal) Opt {
	return func(o *opts) { o.limit = &p }
}

// WithStopPrice sets the stop price. Required for stop and stop_limit orders.
func WithStopPrice(p decimal.Decimal) Opt {
	return func(o *opts) { o.stop = &p }
}

// WithUnderlying overrides the underlying symbol instead of deriving it from
// the OCC symbol of the (first) option leg.
func WithUnderlying(symbol string) Opt {
	return func(o *opts) { o.underlying = symbol }
}

// WithTag attaches a client-chosen order tag, echoed back by the broker on
// order status.
func WithTag(tag string) Opt {
	return func(o *opts) { o.tag = tag }
}

// WithPreview marks the order as a preview: the broker validates and prices
// it without placing it.
func WithPreview() Opt {
	return func(o *opts) { o.preview = true }
}

// NewTag returns a fresh client order tag.
func NewTag() string {
	return uuid.NewString()
}

func applyOpts(os []Opt) opts {
	var o opts
	for _, fn := range os {
		fn(&o)
	}
	return o
}

// wireOrder holds the non-indexed fields shared by every order shape.
// Indexed leg fields (option_symbol[i], side[i], quantity[i]) are appended
// by the multileg and combo builders after encoding.
type wireOrder struct {
	Class        Class    `schema:"class"`
	Symbol       string   `schema:"symbol"`
	Side         string   `schema:"side,omitempty"`
	Quantity     string   `schema:"quantity,omitempty"`
	OptionSymbol string   `schema:"option_symbol,omitempty"`
	Type         Type     `schema:"type"`
	Duration     Duration `schema:"duration"`
	Price        string   `schema:"price,omitempty"`
	Stop         string   `schema:"stop,omitempty"`
	Tag          string   `schema:"tag,omitempty"`
	Preview      string   `schema:"preview,omitempty"`
}

var wireEncoder = schema.NewEncoder()

func (w wireOrder) payload() (Payload, error) {
	v := url.Values{}
	if err := wireEncoder.Encode(w, v); err != nil {
		return nil, fmt.Errorf("encode order payload: %w", err)
	}
	return v, nil
}

// resolvePrices enforces the limit/stop price requirement matrix for the
// given order type and formats the prices for the wire.
func resolvePrices(typ Type, o opts) (price, stop string, err error) {
	needsLimit := typ == Limit || typ == StopLimit || typ == Debit || typ == Credit
	needsStop := typ == Stop || typ == StopLimit

	if needsLimit {
		if o.limit == nil || !o.limit.IsPositive() {
			return "", "", &InvalidParameterError{
				Field:      "limit_price",
				Value:      optValue(o.limit),
				Constraint: fmt.Sprintf("limit_price > 0 for %s orders", typ),
			}
		}
	}
	if needsStop {
		if o.stop == nil || !o.stop.IsPositive() {
			return "", "", &InvalidParameterError{
				Field:      "stop_price",
				Value:      optValue(o.stop),
				Constraint: fmt.Sprintf("stop_price > 0 for %s orders", typ),
			}
		}
	}

	// A limit price supplied alongside a type that does not require one is
	// still forwarded (market/even spreads accept it) but must be positive.
	if o.limit != nil {
		if !o.limit.IsPositive() {
			return "", "", &InvalidParameterError{Field: "limit_price", Value: o.limit.String(), Constraint: "limit_price > 0"}
		}
		price = o.limit.String()
	}
	if o.stop != nil && needsStop {
		stop = o.stop.String()
	}
	return price, stop, nil
}

func optValue(p *decimal.Decimal) interface{} {
	if p == nil {
		return "<nil>"
	}
	return p.String()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func previewValue(preview bool) string {
	if preview {
		return "true"
	}
	return ""
}
