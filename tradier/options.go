package tradier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thammo4/uvatradier/expiry"
	"github.com/thammo4/uvatradier/occ"
	"github.com/thammo4/uvatradier/tabular"
)

// ExpiryCatalog fetches the expiration dates available for an underlying,
// optionally with the strike ladder per date. An underlying with no listed
// options yields an empty catalog; selection against it fails with
// expiry.ErrNoExpiries only when a date is actually requested.
func (c *Client) ExpiryCatalog(ctx context.Context, symbol string, withStrikes bool) (*expiry.Catalog, error) {
	if symbol == "" {
		return nil, errors.New("tradier: no symbol provided")
	}
	symbol = strings.ToUpper(symbol)

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("includeAllRoots", "true")
	query.Set("strikes", fmt.Sprintf("%t", withStrikes))

	raw, err := c.send(ctx, http.MethodGet, "v1/markets/options/expirations", query, nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &tabular.UnexpectedShapeError{Path: "expirations", Detail: fmt.Sprintf("envelope is not a JSON object: %v", err)}
	}
	exps, ok := envelope["expirations"]
	if !ok {
		return nil, &tabular.UnexpectedShapeError{Path: "expirations", Detail: "key missing"}
	}

	catalog := &expiry.Catalog{Underlying: symbol}
	if exps == nil {
		return catalog, nil
	}
	m, ok := exps.(map[string]interface{})
	if !ok {
		return nil, &tabular.UnexpectedShapeError{Path: "expirations", Detail: fmt.Sprintf("want an object, got %T", exps)}
	}

	if !withStrikes {
		for _, v := range asList(m["date"]) {
			d, err := parseExpiryDate(v)
			if err != nil {
				return nil, err
			}
			catalog.Dates = append(catalog.Dates, d)
		}
		return catalog, nil
	}

	catalog.StrikesByDate = map[string][]decimal.Decimal{}
	for _, v := range asList(m["expiration"]) {
		entry, ok := v.(map[string]interface{})
		if !ok {
			return nil, &tabular.UnexpectedShapeError{Path: "expirations.expiration", Detail: fmt.Sprintf("want an object, got %T", v)}
		}
		d, err := parseExpiryDate(entry["date"])
		if err != nil {
			return nil, err
		}
		catalog.Dates = append(catalog.Dates, d)

		strikes, err := parseStrikeLadder(entry["strikes"])
		if err != nil {
			return nil, err
		}
		catalog.StrikesByDate[d.Format(expiry.DateFormat)] = strikes
	}
	return catalog, nil
}

// Strikes fetches the strike ladder for one expiration date.
func (c *Client) Strikes(ctx context.Context, symbol, expiryDate string) ([]decimal.Decimal, error) {
	if symbol == "" {
		return nil, errors.New("tradier: no symbol provided")
	}

	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))
	query.Set("expiration", expiryDate)

	raw, err := c.send(ctx, http.MethodGet, "v1/markets/options/strikes", query, nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &tabular.UnexpectedShapeError{Path: "strikes", Detail: fmt.Sprintf("envelope is not a JSON object: %v", err)}
	}
	return parseStrikeLadder(envelope["strikes"])
}

// ChainFilter narrows ChainDay rows. Nil price bounds apply no filter.
type ChainFilter struct {
	Strike     *decimal.Decimal
	StrikeLow  *decimal.Decimal
	StrikeHigh *decimal.Decimal
	OptionType string // "call" or "put"
}

// ChainDay fetches the option chain for one expiration date. An empty
// expiryDate selects the first date listed for the underlying.
func (c *Client) ChainDay(ctx context.Context, symbol, expiryDate string, filter ChainFilter) ([]tabular.Row, error) {
	if symbol == "" {
		return nil, errors.New("tradier: no symbol provided")
	}
	symbol = strings.ToUpper(symbol)

	if expiryDate == "" {
		catalog, err := c.ExpiryCatalog(ctx, symbol, false)
		if err != nil {
			return nil, err
		}
		if len(catalog.Dates) == 0 {
			return nil, fmt.Errorf("tradier: %s: %w", symbol, expiry.ErrNoExpiries)
		}
		expiryDate = catalog.Dates[0].Format(expiry.DateFormat)
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("expiration", expiryDate)
	query.Set("greeks", "false")

	rows, err := c.getRows(ctx, "v1/markets/options/chains", query, "options", "option")
	if err != nil {
		return nil, err
	}
	return filterChain(rows, filter), nil
}

func filterChain(rows []tabular.Row, f ChainFilter) []tabular.Row {
	kept := make([]tabular.Row, 0, len(rows))
	for _, row := range rows {
		strike, ok := row.Float("strike")
		if !ok {
			continue
		}
		s := decimal.NewFromFloat(strike)
		if f.Strike != nil && !s.Equal(*f.Strike) {
			continue
		}
		if f.StrikeLow != nil && s.LessThan(*f.StrikeLow) {
			continue
		}
		if f.StrikeHigh != nil && s.GreaterThan(*f.StrikeHigh) {
			continue
		}
		if f.OptionType != "" && row.String("option_type") != f.OptionType {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// OptionSymbols fetches every listed OCC symbol for an underlying, across
// all of its option roots.
func (c *Client) OptionSymbols(ctx context.Context, underlying string) ([]string, error) {
	if underlying == "" {
		return nil, errors.New("tradier: no underlying provided")
	}

	query := url.Values{}
	query.Set("underlying", strings.ToUpper(underlying))

	raw, err := c.send(ctx, http.MethodGet, "v1/markets/options/lookup", query, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Symbols []struct {
			RootSymbol string   `json:"rootSymbol"`
			Options    []string `json:"options"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &tabular.UnexpectedShapeError{Path: "symbols", Detail: fmt.Sprintf("cannot decode: %v", err)}
	}

	var symbols []string
	for _, root := range envelope.Symbols {
		symbols = append(symbols, root.Options...)
	}
	return symbols, nil
}

// OptionSymbolsParsed fetches and decomposes the listed OCC symbols for an
// underlying. Entries that fail to parse are dropped, matching the codec's
// documented batch behavior; fetch raw symbols and use occ.ParseManyStrict
// when that is not acceptable.
func (c *Client) OptionSymbolsParsed(ctx context.Context, underlying string) ([]occ.Symbol, error) {
	raws, err := c.OptionSymbols(ctx, underlying)
	if err != nil {
		return nil, err
	}
	return occ.ParseMany(raws), nil
}

// asList coerces the broker's single-value-or-array encoding to a slice.
func asList(v interface{}) []interface{} {
	switch item := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return item
	default:
		return []interface{}{item}
	}
}

func parseExpiryDate(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &tabular.UnexpectedShapeError{Path: "expirations.date", Detail: fmt.Sprintf("want a string, got %T", v)}
	}
	d, err := time.ParseInLocation(expiry.DateFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, &tabular.UnexpectedShapeError{Path: "expirations.date", Detail: fmt.Sprintf("not a YYYY-MM-DD date: %q", s)}
	}
	return d, nil
}

func parseStrikeLadder(v interface{}) ([]decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &tabular.UnexpectedShapeError{Path: "strikes", Detail: fmt.Sprintf("want an object, got %T", v)}
	}

	var strikes []decimal.Decimal
	for _, s := range asList(m["strike"]) {
		f, ok := s.(float64)
		if !ok {
			return nil, &tabular.UnexpectedShapeError{Path: "strikes.strike", Detail: fmt.Sprintf("want a number, got %T", s)}
		}
		strikes = append(strikes, decimal.NewFromFloat(f))
	}
	return strikes, nil
}
