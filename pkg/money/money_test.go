package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "Integer", input: "100", want: "100"},
		{name: "Decimal", input: "123.456", want: "123.456"},
		{name: "Negative", input: "-0.01", want: "-0.01"},
		{name: "Leading whitespace", input: "  42.5", want: "42.5"},
		{name: "High precision", input: "12345678901234567890.12345", want: "12345678901234567890.12345"},
		{name: "Empty string", input: "", wantErr: true},
		{name: "Whitespace only", input: "   ", wantErr: true},
		{name: "Non-numeric", input: "abc", wantErr: true},
		{name: "Partial number", input: "12.3.4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDecimal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestArithmeticExactness(t *testing.T) {
	// a + b - b == a and a * 1 == a must hold exactly, with no float drift.
	tests := []struct {
		a string
		b string
	}{
		{"0.1", "0.2"},
		{"100", "0.00000000000000000001"},
		{"12345678901234567890", "0.12345678901234567891"},
		{"-55.5", "1000000"},
	}

	one := MustParse("1")
	for _, tt := range tests {
		a := MustParse(tt.a)
		b := MustParse(tt.b)

		roundTrip := a.Add(b).Sub(b)
		assert.True(t, roundTrip.Equal(a), "(%s + %s) - %s = %s, want %s", tt.a, tt.b, tt.b, roundTrip, tt.a)

		identity := a.Mul(one)
		assert.True(t, identity.Equal(a), "%s * 1 = %s, want %s", tt.a, identity, tt.a)
	}
}

func TestDiv(t *testing.T) {
	a := MustParse("10")

	half, err := a.Div(MustParse("4"))
	require.NoError(t, err)
	assert.Equal(t, "2.5", half.String())

	_, err = a.Div(Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDivPrecision(t *testing.T) {
	// 1/3 should carry 20 digits, not float precision.
	q, err := MustParse("1").Div(MustParse("3"))
	require.NoError(t, err)
	assert.Equal(t, "0.33333333333333333333", q.String())
}

func TestStringFixedRoundsHalfUp(t *testing.T) {
	tests := []struct {
		input  string
		places int32
		want   string
	}{
		{"1.005", 2, "1.01"},
		{"1.004", 2, "1.00"},
		{"2.5", 0, "3"},
		{"100", 2, "100.00"},
	}

	for _, tt := range tests {
		got := MustParse(tt.input).StringFixed(tt.places)
		assert.Equal(t, tt.want, got, "StringFixed(%s, %d)", tt.input, tt.places)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Value Amount `json:"value"`
	}

	out, err := json.Marshal(payload{Value: MustParse("1234.56")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"1234.56"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"value":"-0.005"}`), &in))
	assert.Equal(t, "-0.005", in.Value.String())
}

func TestJSONRejectsNumbers(t *testing.T) {
	// Raw JSON numbers would reintroduce binary-float error; they must fail.
	var a Amount
	err := json.Unmarshal([]byte(`12.5`), &a)
	assert.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestCmp(t *testing.T) {
	assert.Equal(t, -1, MustParse("1").Cmp(MustParse("2")))
	assert.Equal(t, 0, MustParse("1.50").Cmp(MustParse("1.5")))
	assert.Equal(t, 1, MustParse("-1").Cmp(MustParse("-2")))
	assert.True(t, MustParse("0.0").IsZero())
	assert.True(t, MustParse("-3").IsNegative())
	assert.True(t, MustParse("0.001").IsPositive())
}
