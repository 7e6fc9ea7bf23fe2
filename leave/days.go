package leave

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Fractional day quantity (0.5-day granularity)
// =============================================================================

// Days is a chargeable-day quantity. Uses decimal.Decimal so that half-day
// arithmetic is exact: the calculator and the ledger must agree bit-for-bit,
// which floating point cannot guarantee once values are summed and compared.
type Days struct {
	Value decimal.Decimal
}

func NewDays(v float64) Days      { return Days{Value: decimal.NewFromFloat(v)} }
func DaysFromInt(v int) Days      { return Days{Value: decimal.NewFromInt(int64(v))} }
func ZeroDays() Days              { return Days{Value: decimal.Zero} }
func HalfDay() Days               { return Days{Value: decimal.NewFromFloat(0.5)} }
func FullDay() Days               { return Days{Value: decimal.NewFromInt(1)} }

func (d Days) Add(o Days) Days          { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days          { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Neg() Days                { return Days{Value: d.Value.Neg()} }
func (d Days) Abs() Days                { return Days{Value: d.Value.Abs()} }
func (d Days) IsZero() bool             { return d.Value.IsZero() }
func (d Days) IsNegative() bool         { return d.Value.IsNegative() }
func (d Days) IsPositive() bool         { return d.Value.IsPositive() }
func (d Days) Equal(o Days) bool        { return d.Value.Equal(o.Value) }
func (d Days) LessThan(o Days) bool     { return d.Value.LessThan(o.Value) }
func (d Days) GreaterThan(o Days) bool  { return d.Value.GreaterThan(o.Value) }

// Max returns the larger of d and o.
func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

func (d Days) Float64() float64 {
	f, _ := d.Value.Float64()
	return f
}

func (d Days) String() string { return d.Value.String() }

// ParseDays parses a decimal day count (e.g. "2.5").
func ParseDays(s string) (Days, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, err
	}
	return Days{Value: v}, nil
}
