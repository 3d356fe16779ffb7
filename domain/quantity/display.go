package quantity

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"phaengine/domain/core"
)

// DisplayValue renders a scenario's value as text. invalidText replaces a
// value with a problem status, infiniteText an infinite one. Scientific
// notation is forced at or above sciUpper, else at or below sciLower; either
// bound may be nil.
func (q *Quantity) DisplayValue(scenario core.ReceptorID, invalidText, infiniteText string, sciUpper, sciLower *float64) string {
	if q.Status(scenario) != nil {
		return invalidText
	}
	if q.Infinite(scenario) {
		return infiniteText
	}
	r := q.Value(scenario, nil)
	if !r.OK() {
		return invalidText
	}
	f := q.Format(scenario)
	return FormatNumber(r.Value, f.SigFigs, f.Scientific, sciUpper, sciLower)
}

// FormatNumber rounds v to sig significant figures and prints it in fixed or
// scientific notation.
func FormatNumber(v float64, sig int, scientific bool, sciUpper, sciLower *float64) string {
	if sig < 1 {
		sig = 1
	}
	abs := math.Abs(v)
	if !scientific {
		if sciUpper != nil && abs >= *sciUpper {
			scientific = true
		} else if sciLower != nil && abs <= *sciLower {
			scientific = true
		}
	}
	if scientific {
		return strconv.FormatFloat(v, 'e', sig-1, 64)
	}
	if v == 0 {
		return decimal.Zero.StringFixed(int32(sig - 1))
	}

	exp := int(math.Floor(math.Log10(abs)))
	places := sig - 1 - exp
	d := decimal.NewFromFloat(v).Round(int32(places))
	// rounding may carry into the next power of ten (9.996 -> 10.0)
	if d.Abs().GreaterThanOrEqual(decimal.New(1, int32(exp+1))) {
		places--
		d = decimal.NewFromFloat(v).Round(int32(places))
	}
	if places < 0 {
		places = 0
	}
	return d.StringFixed(int32(places))
}
