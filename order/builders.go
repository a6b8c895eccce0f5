package order

import (
	"fmt"

	"github.com/thammo4/uvatradier/occ"
)

// Equity builds a single-leg equity order payload.
//
// Validation order: side, type, duration, quantity, limit price, stop price.
// The first violated rule is reported; rules are never aggregated.
func Equity(symbol string, side EquitySide, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	o := applyOpts(options)

	if !equitySides[side] {
		return nil, &InvalidParameterError{Field: "side", Value: side, Constraint: equitySideList}
	}
	if !singleTypes[typ] {
		return nil, &InvalidParameterError{Field: "type", Value: typ, Constraint: singleTypeList}
	}
	if !durations[duration] {
		return nil, &InvalidParameterError{Field: "duration", Value: duration, Constraint: durationList}
	}
	if quantity <= 0 {
		return nil, &InvalidParameterError{Field: "quantity", Value: quantity, Constraint: "a positive integer"}
	}

	price, stop, err := resolvePrices(typ, o)
	if err != nil {
		return nil, err
	}

	return wireOrder{
		Class:    ClassEquity,
		Symbol:   symbol,
		Side:     string(side),
		Quantity: itoa(quantity),
		Type:     typ,
		Duration: duration,
		Price:    price,
		Stop:     stop,
		Tag:      o.tag,
		Preview:  previewValue(o.preview),
	}.payload()
}

// Option builds a single-leg option order payload. When the underlying is
// not supplied via WithUnderlying it is derived from the OCC symbol.
func Option(occSymbol string, side OptionSide, quantity int, typ Type, duration Duration, options ...Opt) (Payload, error) {
	o := applyOpts(options)

	if !optionSides[side] {
		return nil, &InvalidParameterError{Field: "side", Value: side, Constraint: optionSideList}
	}
	if !singleTypes[typ] {
		return nil, &InvalidParameterError{Field: "type", Value: typ, Constraint: singleTypeList}
	}
	if !durations[duration] {
		return nil, &InvalidParameterError{Field: "duration", Value: duration, Constraint: durationList}
	}
	if quantity <= 0 {
		return nil, &InvalidParameterError{Field: "quantity", Value: quantity, Constraint: "a positive integer"}
	}

	underlying := o.underlying
	if underlying == "" {
		root, err := occ.Underlying(occSymbol)
		if err != nil {
			return nil, &InvalidParameterError{
				Field:      "occ_symbol",
				Value:      occSymbol,
				Constraint: "a valid OCC symbol to derive the underlying from",
				Err:        err,
			}
		}
		underlying = root
	}

	price, stop, err := resolvePrices(typ, o)
	if err != nil {
		return nil, err
	}

	return wireOrder{
		Class:        ClassOption,
		Symbol:       underlying,
		OptionSymbol: occSymbol,
		Side:         string(side),
		Quantity:     itoa(quantity),
		Type:         typ,
		Duration:     duration,
		Price:        price,
		Stop:         stop,
		Tag:          o.tag,
		Preview:      previewValue(o.preview),
	}.payload()
}

// Multileg builds an order of 2 to 4 option legs executed together. All legs
// must share one underlying, inferred from the first leg when not supplied.
// Legs keep their ordinal position: leg i emits option_symbol[i], side[i]
// and quantity[i].
func Multileg(legs []Leg, typ Type, duration Duration, options ...Opt) (Payload, error) {
	o := applyOpts(options)

	if len(legs) < 2 || len(legs) > 4 {
		return nil, &InvalidParameterError{Field: "legs", Value: len(legs), Constraint: "between 2 and 4 legs"}
	}
	for i, leg := range legs {
		if !optionSides[leg.Side] {
			return nil, &InvalidParameterError{Field: fmt.Sprintf("side[%d]", i), Value: leg.Side, Constraint: optionSideList}
		}
		if leg.Quantity <= 0 {
			return nil, &InvalidParameterError{Field: fmt.Sprintf("quantity[%d]", i), Value: leg.Quantity, Constraint: "a positive integer"}
		}
	}
	if !spreadTypes[typ] {
		return nil, &InvalidParameterError{Field: "type", Value: typ, Constraint: spreadTypeList}
	}
	if !durations[duration] {
		return nil, &InvalidParameterError{Field: "duration", Value: duration, Constraint: durationList}
	}

	price, _, err := resolvePrices(typ, o)
	if err != nil {
		return nil, err
	}

	underlying, err := sharedUnderlying(legs, o.underlying)
	if err != nil {
		return nil, err
	}

	payload, err := wireOrder{
		Class:    ClassMultileg,
		Symbol:   underlying,
		Type:     typ,
		Duration: duration,
		Price:    price,
		Tag:      o.tag,
		Preview:  previewValue(o.preview),
	}.payload()
	if err != nil {
		return nil, err
	}

	for i, leg := range legs {
		payload.Set(fmt.Sprintf("option_symbol[%d]", i), leg.OptionSymbol)
		payload.Set(fmt.Sprintf("side[%d]", i), string(leg.Side))
		payload.Set(fmt.Sprintf("quantity[%d]", i), itoa(leg.Quantity))
	}
	return payload, nil
}

// Combo builds an order pairing one equity leg with one or two option legs.
// The equity leg always occupies index 0; option legs follow from index 1.
func Combo(equity EquityLeg, legs []Leg, typ Type, duration Duration, options ...Opt) (Payload, error) {
	o := applyOpts(options)

	if !equitySides[equity.Side] {
		return nil, &InvalidParameterError{Field: "side[0]", Value: equity.Side, Constraint: equitySideList}
	}
	if equity.Quantity <= 0 {
		return nil, &InvalidParameterError{Field: "quantity[0]", Value: equity.Quantity, Constraint: "a positive integer"}
	}
	if len(legs) < 1 || len(legs) > 2 {
		return nil, &InvalidParameterError{Field: "legs", Value: len(legs), Constraint: "one or two option legs"}
	}
	for i, leg := range legs {
		if !optionSides[leg.Side] {
			return nil, &InvalidParameterError{Field: fmt.Sprintf("side[%d]", i+1), Value: leg.Side, Constraint: optionSideList}
		}
		if leg.Quantity <= 0 {
			return nil, &InvalidParameterError{Field: fmt.Sprintf("quantity[%d]", i+1), Value: leg.Quantity, Constraint: "a positive integer"}
		}
	}
	if !spreadTypes[typ] {
		return nil, &InvalidParameterError{Field: "type", Value: typ, Constraint: spreadTypeList}
	}
	if !durations[duration] {
		return nil, &InvalidParameterError{Field: "duration", Value: duration, Constraint: durationList}
	}

	price, _, err := resolvePrices(typ, o)
	if err != nil {
		return nil, err
	}

	payload, err := wireOrder{
		Class:    ClassCombo,
		Symbol:   equity.Symbol,
		Type:     typ,
		Duration: duration,
		Price:    price,
		Tag:      o.tag,
		Preview:  previewValue(o.preview),
	}.payload()
	if err != nil {
		return nil, err
	}

	payload.Set("side[0]", string(equity.Side))
	payload.Set("quantity[0]", itoa(equity.Quantity))
	for i, leg := range legs {
		payload.Set(fmt.Sprintf("option_symbol[%d]", i+1), leg.OptionSymbol)
		payload.Set(fmt.Sprintf("side[%d]", i+1), string(leg.Side))
		payload.Set(fmt.Sprintf("quantity[%d]", i+1), itoa(leg.Quantity))
	}
	return payload, nil
}

// sharedUnderlying resolves the symbol field for leg-based orders and checks
// that every leg's OCC root agrees. An explicit override wins over the
// inferred root but leg consistency is still enforced.
func sharedUnderlying(legs []Leg, override string) (string, error) {
	var root string
	for i, leg := range legs {
		r, err := occ.Underlying(leg.OptionSymbol)
		if err != nil {
			return "", &InvalidParameterError{
				Field:      fmt.Sprintf("option_symbol[%d]", i),
				Value:      leg.OptionSymbol,
				Constraint: "a valid OCC symbol",
				Err:        err,
			}
		}
		if i == 0 {
			root = r
			continue
		}
		if r != root {
			return "", &InvalidParameterError{
				Field:      fmt.Sprintf("option_symbol[%d]", i),
				Value:      leg.OptionSymbol,
				Constraint: fmt.Sprintf("all legs share underlying %s", root),
			}
		}
	}
	if override != "" {
		return override, nil
	}
	return root, nil
}
