// Package money provides the fixed-precision decimal arithmetic used for every
// monetary and percentage value in the application. Amounts are constructed from
// strings only, never from native floats, and serialize to JSON as strings.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// 20 significant digits for division results.
	decimal.DivisionPrecision = 20
}

var (
	// ErrInvalidDecimal is returned when parsing an empty or non-numeric string.
	ErrInvalidDecimal = errors.New("invalid decimal")

	// ErrDivisionByZero is returned by Div when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// Amount is an immutable fixed-precision decimal value.
type Amount struct {
	d decimal.Decimal
}

// Parse constructs an Amount from its string representation.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidDecimal)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	return Amount{d: d}, nil
}

// MustParse is Parse for literals known to be valid. Panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// FromInt constructs an Amount from an integer (criterion points, counts).
func FromInt(i int64) Amount {
	return Amount{d: decimal.NewFromInt(i)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) Amount {
	return Amount{d: a.d.Mul(b.d)}
}

// Div returns a / b, failing with ErrDivisionByZero when b is zero.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.d.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{d: a.d.Div(b.d)}, nil
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports exact decimal equality.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// Round returns a rounded to the given number of decimal places, half up.
func (a Amount) Round(places int32) Amount {
	return Amount{d: a.d.Round(places)}
}

// StringFixed renders a with exactly the given number of decimal places,
// rounding half up.
func (a Amount) StringFixed(places int32) string {
	return a.d.StringFixed(places)
}

// String renders a in its canonical (trailing-zero-free) form.
func (a Amount) String() string {
	return a.d.String()
}

// Float64 returns an approximate float value. Display statistics only; never
// feed the result back into money arithmetic.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// MarshalJSON encodes the amount as a JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.d.String())
}

// UnmarshalJSON decodes a JSON string. Raw JSON numbers are rejected so
// float-typed values cannot sneak across the API boundary.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: decimal values must be JSON strings", ErrInvalidDecimal)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
