package order

import (
	"fmt"

	"github.com/thammo4/uvatradier/occ"
)

// Strategy helpers compose the base builders with a fixed side pattern per
// strategy. Vertical spreads identify their long and short legs by parsed
// strike, so argument order never changes the side assignment: for a bull
// call spread the lower strike is always bought to open and the higher
// strike sold to open, whichever way the symbols are passed.

// BullCallSpread buys the lower-strike call and sells the higher-strike call.
func BullCallSpread(underlying, occ0, occ1 string, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	return verticalSpread(underlying, occ0, occ1, quantity, typ, duration, occ.Call, BuyToOpen, SellToOpen, options)
}

// BearCallSpread sells the lower-strike call and buys the higher-strike call.
func BearCallSpread(underlying, occ0, occ1 string, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	return verticalSpread(underlying, occ0, occ1, quantity, typ, duration, occ.Call, SellToOpen, BuyToOpen, options)
}

// BullPutSpread buys the lower-strike put and sells the higher-strike put.
func BullPutSpread(underlying, occ0, occ1 string, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	return verticalSpread(underlying, occ0, occ1, quantity, typ, duration, occ.Put, BuyToOpen, SellToOpen, options)
}

// BearPutSpread sells the lower-strike put and buys the higher-strike put.
func BearPutSpread(underlying, occ0, occ1 string, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	return verticalSpread(underlying, occ0, occ1, quantity, typ, duration, occ.Put, SellToOpen, BuyToOpen, options)
}

func verticalSpread(underlying, occ0, occ1 string, quantity int, typ Type, duration Duration, right occ.OptionType, lowSide, highSide OptionSide, options []Opt) (Payload, error) {
	s0, err := parseSpreadLeg(occ0, right)
	if err != nil {
		return nil, err
	}
	s1, err := parseSpreadLeg(occ1, right)
	if err != nil {
		return nil, err
	}

	if !s0.Expiry.Equal(s1.Expiry) {
		return nil, &InvalidParameterError{
			Field:      "occ_symbols",
			Value:      fmt.Sprintf("%s, %s", occ0, occ1),
			Constraint: "both legs of a vertical spread share one expiry",
		}
	}
	if s0.Strike.Equal(s1.Strike) {
		return nil, &InvalidParameterError{
			Field:      "occ_symbols",
			Value:      fmt.Sprintf("%s, %s", occ0, occ1),
			Constraint: "two distinct strikes",
		}
	}

	low, high := s0, s1
	if s1.Strike.LessThan(s0.Strike) {
		low, high = s1, s0
	}

	legs := []Leg{
		{OptionSymbol: low.String(), Side: lowSide, Quantity: quantity},
		{OptionSymbol: high.String(), Side: highSide, Quantity: quantity},
	}
	return Multileg(legs, typ, duration, append(options, WithUnderlying(underlying))...)
}

func parseSpreadLeg(raw string, right occ.OptionType) (occ.Symbol, error) {
	s, err := occ.Parse(raw)
	if err != nil {
		return occ.Symbol{}, &InvalidParameterError{Field: "occ_symbol", Value: raw, Constraint: "a valid OCC symbol", Err: err}
	}
	if s.Type != right {
		return occ.Symbol{}, &InvalidParameterError{
			Field:      "occ_symbol",
			Value:      raw,
			Constraint: fmt.Sprintf("an option of type %s", right),
		}
	}
	return s, nil
}

// Straddle buys to open a call and a put at the same strike and expiry.
func Straddle(callOCC, putOCC string, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	call, err := parseSpreadLeg(callOCC, occ.Call)
	if err != nil {
		return nil, err
	}
	put, err := parseSpreadLeg(putOCC, occ.Put)
	if err != nil {
		return nil, err
	}
	if !call.Expiry.Equal(put.Expiry) || !call.Strike.Equal(put.Strike) {
		return nil, &InvalidParameterError{
			Field:      "occ_symbols",
			Value:      fmt.Sprintf("%s, %s", callOCC, putOCC),
			Constraint: "a call and a put sharing strike and expiry",
		}
	}

	legs := []Leg{
		{OptionSymbol: callOCC, Side: BuyToOpen, Quantity: quantity},
		{OptionSymbol: putOCC, Side: BuyToOpen, Quantity: quantity},
	}
	return Multileg(legs, typ, duration, options...)
}

// MarriedPut buys shares of the underlying and buys to open a protective put
// against them, as a single combo order.
func MarriedPut(equitySymbol, putOCC string, shares, contracts int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	put, err := parseSpreadLeg(putOCC, occ.Put)
	if err != nil {
		return nil, err
	}
	if put.Underlying != equitySymbol {
		return nil, &InvalidParameterError{
			Field:      "occ_symbol",
			Value:      putOCC,
			Constraint: fmt.Sprintf("a put on %s", equitySymbol),
		}
	}

	equityLeg := EquityLeg{Symbol: equitySymbol, Side: Buy, Quantity: shares}
	optionLegs := []Leg{{OptionSymbol: putOCC, Side: BuyToOpen, Quantity: contracts}}
	return Combo(equityLeg, optionLegs, typ, duration, options...)
}
