package occ

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("standard call", func(t *testing.T) {
		s, err := Parse("LMT240119C00260000")
		require.NoError(t, err)

		assert.Equal(t, "LMT", s.Underlying)
		assert.Equal(t, time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC), s.Expiry)
		assert.Equal(t, Call, s.Type)
		assert.True(t, s.Strike.Equal(decimal.NewFromInt(260)))
	})

	t.Run("put with fractional strike", func(t *testing.T) {
		s, err := Parse("PG240816P00172500")
		require.NoError(t, err)

		assert.Equal(t, "PG", s.Underlying)
		assert.Equal(t, Put, s.Type)
		assert.True(t, s.Strike.Equal(decimal.NewFromFloat(172.5)))
	})

	t.Run("five letter root", func(t *testing.T) {
		s, err := Parse("GOOGL250620C00180000")
		require.NoError(t, err)
		assert.Equal(t, "GOOGL", s.Underlying)
	})

	t.Run("trailing garbage rejected", func(t *testing.T) {
		_, err := Parse("LMT240119C00260000XYZ")
		var perr *MalformedSymbolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "LMT240119C00260000XYZ", perr.Raw)
	})

	t.Run("malformed inputs", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"LMT",
			"lmt240119C00260000",   // lowercase root
			"TOOLONG240119C00260000", // root over five letters
			"LMT240119X00260000",   // bad right
			"LMT240119C0026000",    // seven strike digits
			"LMT241319C00260000",   // month 13
		} {
			_, err := Parse(raw)
			var perr *MalformedSymbolError
			assert.ErrorAs(t, err, &perr, "input %q", raw)
		}
	})
}

func TestFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"LMT240119C00260000",
		"PG240816P00172500",
		"SPY241220P00450000",
		"GOOGL250620C00180000",
		"F260115C00012500",
	} {
		s, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, Format(s))
		assert.Equal(t, raw, s.String())
	}
}

func TestUnderlying(t *testing.T) {
	root, err := Underlying("TER230915C00110000")
	require.NoError(t, err)
	assert.Equal(t, "TER", root)

	_, err = Underlying("not-an-occ")
	var perr *MalformedSymbolError
	assert.ErrorAs(t, err, &perr)
}

func TestParseMany(t *testing.T) {
	raws := []string{"COP240216C00115000", "garbage", "COP240216P00115000"}

	t.Run("drops non-matching entries", func(t *testing.T) {
		symbols := ParseMany(raws)
		require.Len(t, symbols, 2)
		assert.Equal(t, Call, symbols[0].Type)
		assert.Equal(t, Put, symbols[1].Type)
	})

	t.Run("strict mode fails fast", func(t *testing.T) {
		_, err := ParseManyStrict(raws)
		var perr *MalformedSymbolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "garbage", perr.Raw)
	})

	t.Run("strict mode on clean input", func(t *testing.T) {
		symbols, err := ParseManyStrict([]string{"COP240216C00115000"})
		require.NoError(t, err)
		assert.Len(t, symbols, 1)
	})
}
