package tradier

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/thammo4/uvatradier/tabular"
)

// UserProfile fetches the user profile with its associated accounts.
func (c *Client) UserProfile(ctx context.Context) ([]tabular.Row, error) {
	return c.getRows(ctx, "v1/user/profile", nil, "profile", "")
}

// AccountBalance fetches the balances snapshot for the configured account.
// Margin sub-fields appear under dotted paths, e.g. margin.fed_call.
func (c *Client) AccountBalance(ctx context.Context) (tabular.Row, error) {
	return c.getRow(ctx, c.accountPath("balances"), nil, "balances", "")
}

// PositionFilter narrows the rows returned by Positions. The zero value
// applies no filtering.
type PositionFilter struct {
	Symbols []string
	Kind    tabular.InstrumentKind
}

// Positions fetches the open positions, optionally filtered by symbol or
// instrument kind.
func (c *Client) Positions(ctx context.Context, filter PositionFilter) ([]tabular.Row, error) {
	rows, err := c.getRows(ctx, c.accountPath("positions"), nil, "positions", "position")
	if err != nil {
		return nil, err
	}
	if len(filter.Symbols) > 0 {
		rows = tabular.FilterSymbols(rows, "symbol", filter.Symbols...)
	}
	if filter.Kind != "" {
		rows = tabular.FilterKind(rows, "symbol", filter.Kind)
	}
	return rows, nil
}

// GainLossParams page through closed-position cost basis records. Zero
// values fall back to the broker defaults: page 1, limit 100, sorted by
// close date descending.
type GainLossParams struct {
	Page          int
	Limit         int
	SortBy        string // openDate or closeDate
	SortDirection string // asc or desc
	Start         string // YYYY-MM-DD
	End           string // YYYY-MM-DD
	Symbol        string
}

// GainLoss fetches closed-position gain/loss records.
func (c *Client) GainLoss(ctx context.Context, p GainLossParams) ([]tabular.Row, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = 100
	}
	if p.SortBy == "" {
		p.SortBy = "closeDate"
	}
	if p.SortDirection == "" {
		p.SortDirection = "desc"
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("limit", strconv.Itoa(p.Limit))
	query.Set("sortBy", p.SortBy)
	query.Set("sort", p.SortDirection)
	if p.Symbol != "" {
		query.Set("symbol", strings.ToUpper(p.Symbol))
	}
	if p.Start != "" {
		query.Set("start", p.Start)
	}
	if p.End != "" {
		query.Set("end", p.End)
	}

	return c.getRows(ctx, c.accountPath("gainloss"), query, "gainloss", "closed_position")
}

// History fetches account activity events.
func (c *Client) History(ctx context.Context, page, limit int) ([]tabular.Row, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	return c.getRows(ctx, c.accountPath("history"), query, "history", "event")
}

// Orders fetches the queued and recently filled orders for the account,
// tags included. An account with no orders yields zero rows; the broker
// encodes that as the literal string "null".
func (c *Client) Orders(ctx context.Context) ([]tabular.Row, error) {
	query := url.Values{}
	query.Set("includeTags", "true")

	return c.getRows(ctx, c.accountPath("orders"), query, "orders", "order")
}

// Order fetches a single order by id.
func (c *Client) Order(ctx context.Context, orderID int) (tabular.Row, error) {
	return c.getRow(ctx, c.accountPath(fmt.Sprintf("orders/%d", orderID)), nil, "order", "")
}
