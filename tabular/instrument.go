package tabular

import "github.com/thammo4/uvatradier/occ"

// InstrumentKind tags a row's instrument as equity or option.
type InstrumentKind string

const (
	KindEquity InstrumentKind = "equity"
	KindOption InstrumentKind = "option"
)

// Kind classifies a symbol by whether it parses as an OCC option symbol.
// An earlier revision classified by string length (>5 characters meant
// option), which misfiled five-letter tickers like GOOGL; parsing the
// symbol makes the tag exact.
func Kind(symbol string) InstrumentKind {
	if _, err := occ.Parse(symbol); err == nil {
		return KindOption
	}
	return KindEquity
}

// FilterKind keeps the rows whose symbolKey field classifies as kind.
func FilterKind(rows []Row, symbolKey string, kind InstrumentKind) []Row {
	kept := make([]Row, 0, len(rows))
	for _, row := range rows {
		if Kind(row.String(symbolKey)) == kind {
			kept = append(kept, row)
		}
	}
	return kept
}

// FilterSymbols keeps the rows whose symbolKey field matches one of symbols.
func FilterSymbols(rows []Row, symbolKey string, symbols ...string) []Row {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	kept := make([]Row, 0, len(rows))
	for _, row := range rows {
		if want[row.String(symbolKey)] {
			kept = append(kept, row)
		}
	}
	return kept
}
