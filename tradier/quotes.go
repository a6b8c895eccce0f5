package tradier

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thammo4/uvatradier/tabular"
)

// Quotes fetches current quotes for one or more symbols.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]tabular.Row, error) {
	if len(symbols) == 0 {
		return nil, errors.New("tradier: no symbols provided")
	}

	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	query := url.Values{}
	query.Set("symbols", strings.Join(upper, ","))
	query.Set("greeks", "false")

	return c.getRows(ctx, "v1/markets/quotes", query, "quotes", "quote")
}

// QuoteDay fetches the current quote for a single symbol.
func (c *Client) QuoteDay(ctx context.Context, symbol string) (tabular.Row, error) {
	rows, err := c.Quotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &tabular.UnexpectedShapeError{Path: "quotes.quote", Detail: "want one quote, got none"}
	}
	return rows[0], nil
}

// LastPrice fetches the last traded price for a symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	row, err := c.QuoteDay(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	last, ok := row.Float("last")
	if !ok {
		return decimal.Zero, &tabular.UnexpectedShapeError{Path: "quotes.quote.last", Detail: "not a number"}
	}
	return decimal.NewFromFloat(last), nil
}

// HistoricalQuotes fetches daily, weekly or monthly bars. An empty end date
// defaults to today; an empty start date defaults to the Monday of the end
// date's trading week.
func (c *Client) HistoricalQuotes(ctx context.Context, symbol, interval, startDate, endDate string) ([]tabular.Row, error) {
	if symbol == "" {
		return nil, errors.New("tradier: no symbol provided")
	}
	if interval == "" {
		interval = "daily"
	}
	if endDate == "" {
		endDate = time.Now().Format("2006-01-02")
	}
	if startDate == "" {
		end, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return nil, errors.New("tradier: end date must be YYYY-MM-DD")
		}
		startDate = lastMonday(end).Format("2006-01-02")
	}

	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))
	query.Set("interval", interval)
	query.Set("start", startDate)
	query.Set("end", endDate)

	return c.getRows(ctx, "v1/markets/history", query, "history", "day")
}

// lastMonday returns the Monday on or before d.
func lastMonday(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// TimeSales fetches intraday tick bars. Start and end use the
// "YYYY-MM-DD HH:MM" layout the broker expects; either may be empty.
func (c *Client) TimeSales(ctx context.Context, symbol, interval, start, end string) ([]tabular.Row, error) {
	if symbol == "" {
		return nil, errors.New("tradier: no symbol provided")
	}

	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))
	if interval != "" {
		query.Set("interval", interval)
	}
	if start != "" {
		query.Set("start", start)
	}
	if end != "" {
		query.Set("end", end)
	}

	return c.getRows(ctx, "v1/markets/timesales", query, "series", "data")
}

// SearchCompanies looks up securities matching a query string. No matches
// yields zero rows.
func (c *Client) SearchCompanies(ctx context.Context, q string) ([]tabular.Row, error) {
	if q == "" {
		return nil, errors.New("tradier: no search query provided")
	}

	query := url.Values{}
	query.Set("q", q)
	query.Set("indexes", "false")

	return c.getRows(ctx, "v1/markets/search", query, "securities", "security")
}
