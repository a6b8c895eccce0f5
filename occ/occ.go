// Package occ parses and formats OCC-style option contract symbols as used
// by the Tradier API, e.g. LMT240119C00260000.
package occ

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is the contract right encoded in an OCC symbol.
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// symbolPattern is anchored at both ends. An earlier revision of this codec
// left the end unanchored, which accepted trailing garbage after a valid
// strike; that was a bug, not a permissive mode.
var symbolPattern = regexp.MustCompile(`^([A-Z]{1,5})(\d{6})([CP])(\d{8})$`)

// Symbol is the decomposed form of an OCC option symbol. It is an immutable
// value type; Format reconstructs the exact wire string.
type Symbol struct {
	Underlying string
	Expiry     time.Time // UTC midnight
	Type       OptionType
	Strike     decimal.Decimal
}

// MalformedSymbolError reports an input that does not match the OCC format.
type MalformedSymbolError struct {
	Raw string
}

func (e *MalformedSymbolError) Error() string {
	return fmt.Sprintf("malformed OCC symbol %q: want 1-5 uppercase letters, YYMMDD expiry, C or P, 8-digit strike in thousandths", e.Raw)
}

// Parse decomposes raw into its OCC components. The two-digit year is
// interpreted as 20XX. The strike digits encode thousandths of a unit, so
// 00260000 parses as 260.
func Parse(raw string) (Symbol, error) {
	m := symbolPattern.FindStringSubmatch(raw)
	if m == nil {
		return Symbol{}, &MalformedSymbolError{Raw: raw}
	}

	expiryDate, err := time.ParseInLocation("060102", m[2], time.UTC)
	if err != nil {
		// Matched six digits but not a real calendar date, e.g. month 13.
		return Symbol{}, &MalformedSymbolError{Raw: raw}
	}
	if expiryDate.Year() < 2000 {
		expiryDate = expiryDate.AddDate(100, 0, 0)
	}

	milli, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return Symbol{}, &MalformedSymbolError{Raw: raw}
	}

	return Symbol{
		Underlying: m[1],
		Expiry:     expiryDate,
		Type:       OptionType(m[3]),
		Strike:     decimal.New(milli, -3),
	}, nil
}

// Format reconstructs the OCC wire string from its components. For every
// valid symbol s, Format(Parse(s)) == s.
func Format(s Symbol) string {
	milli := s.Strike.Mul(decimal.NewFromInt(1000)).IntPart()
	return fmt.Sprintf("%s%s%s%08d", s.Underlying, s.Expiry.Format("060102"), s.Type, milli)
}

func (s Symbol) String() string {
	return Format(s)
}

// Underlying extracts the root ticker from an OCC symbol.
func Underlying(raw string) (string, error) {
	s, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return s.Underlying, nil
}

// ParseMany parses a list of raw symbols, silently dropping entries that do
// not match. This mirrors the broker lookup endpoint's historical handling;
// use ParseManyStrict when a dropped entry should be an error.
func ParseMany(raws []string) []Symbol {
	symbols := make([]Symbol, 0, len(raws))
	for _, raw := range raws {
		s, err := Parse(raw)
		if err != nil {
			continue
		}
		symbols = append(symbols, s)
	}
	return symbols
}

// ParseManyStrict parses a list of raw symbols, failing on the first entry
// that does not match.
func ParseManyStrict(raws []string) ([]Symbol, error) {
	symbols := make([]Symbol, 0, len(raws))
	for _, raw := range raws {
		s, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}
