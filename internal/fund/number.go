package fund

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ErrNotNumeric is returned by ParseNumber when a raw value is present but is
// not a number.
var ErrNotNumeric = errors.New("value is not numeric")

// Number is a numeric field that a data source may be unable to supply.
// The zero value is Unavailable, which is distinct from a valid zero.
type Number struct {
	value decimal.Decimal
	valid bool
}

// Unavailable returns a Number with no value.
func Unavailable() Number {
	return Number{}
}

// NumberOf wraps a known value.
func NumberOf(d decimal.Decimal) Number {
	return Number{value: d, valid: true}
}

// NumberFromFloat wraps a known float value.
func NumberFromFloat(f float64) Number {
	return NumberOf(decimal.NewFromFloat(f))
}

// ParseNumber converts a raw value taken from a provider payload.
// nil, blank strings and the placeholders "N/A", "--" and "-" yield
// Unavailable with a nil error. Anything else that cannot be read as a number
// yields Unavailable and an error wrapping ErrNotNumeric.
func ParseNumber(raw any) (Number, error) {
	if raw == nil {
		return Unavailable(), nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return Unavailable(), fmt.Errorf("%w: %v", ErrNotNumeric, raw)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "N/A", "--", "-":
		return Unavailable(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Unavailable(), fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return NumberOf(d), nil
}

// NumberOrUnavailable is ParseNumber for fields that are best-effort.
func NumberOrUnavailable(raw any) Number {
	n, _ := ParseNumber(raw)
	return n
}

// Valid reports whether the number carries a value.
func (n Number) Valid() bool { return n.valid }

// Decimal returns the value and whether it is present.
func (n Number) Decimal() (decimal.Decimal, bool) { return n.value, n.valid }

// Round returns the number rounded to places; Unavailable stays Unavailable.
func (n Number) Round(places int32) Number {
	if !n.valid {
		return n
	}
	return NumberOf(n.value.Round(places))
}

// Float returns the value as float64, or 0 and false when unavailable.
func (n Number) Float() (float64, bool) {
	if !n.valid {
		return 0, false
	}
	return n.value.InexactFloat64(), true
}

func (n Number) String() string {
	if !n.valid {
		return UnavailableText
	}
	return n.value.String()
}

// MarshalJSON encodes Unavailable as null and values as bare JSON numbers.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(n.value.String()), nil
}

// UnmarshalJSON accepts null, numbers and numeric strings.
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Unavailable()
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = NumberOf(d)
	return nil
}
