package wsv

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// maxAmountDigits bounds the significant decimal digits of a balance,
// matching the 256-bit representation of the reference accounting.
const maxAmountDigits = 77

// Amount is an unsigned fixed-point decimal. The scaled integer value
// carries precision fractional digits. Operations never panic: results
// that would go negative or overflow are marked invalid and serialize
// with a leading 'N', which callers test for.
type Amount struct {
	value     *big.Int
	precision uint32
	invalid   bool
}

var errInvalidAmount = errors.New("invalid amount")

// NewAmount returns the zero amount with the given precision.
func NewAmount(precision uint32) *Amount {
	return &Amount{value: new(big.Int), precision: precision}
}

// ParseAmount reads a decimal string such as "10.50". The precision is
// the number of fractional digits present.
func ParseAmount(s string) (*Amount, error) {
	if s == "" || strings.HasPrefix(s, "N") {
		return nil, errInvalidAmount
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if fracPart == "" {
			return nil, errInvalidAmount
		}
	}
	digits := intPart + fracPart
	if digits == "" {
		return nil, errInvalidAmount
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return &Amount{value: v, precision: uint32(len(fracPart))}, nil
}

// Precision returns the number of fractional digits.
func (a *Amount) Precision() uint32 {
	return a.precision
}

// Invalid reports whether an operation produced an unusable value.
func (a *Amount) Invalid() bool {
	return a.invalid
}

// scaled returns the integer value of o rescaled to precision p, or nil
// when o has more fractional digits than p can hold.
func scaled(o *Amount, p uint32) *big.Int {
	if o.precision > p {
		return nil
	}
	v := new(big.Int).Set(o.value)
	for i := o.precision; i < p; i++ {
		v.Mul(v, big.NewInt(10))
	}
	return v
}

// Add returns a+o at a's precision.
func (a *Amount) Add(o *Amount) *Amount {
	r := &Amount{value: new(big.Int), precision: a.precision}
	if a.invalid || o.invalid {
		r.invalid = true
		return r
	}
	ov := scaled(o, a.precision)
	if ov == nil {
		r.invalid = true
		return r
	}
	r.value.Add(a.value, ov)
	if len(r.value.String()) > maxAmountDigits {
		r.invalid = true
	}
	return r
}

// Sub returns a-o at a's precision; negative results are invalid.
func (a *Amount) Sub(o *Amount) *Amount {
	r := &Amount{value: new(big.Int), precision: a.precision}
	if a.invalid || o.invalid {
		r.invalid = true
		return r
	}
	ov := scaled(o, a.precision)
	if ov == nil {
		r.invalid = true
		return r
	}
	r.value.Sub(a.value, ov)
	if r.value.Sign() < 0 {
		r.invalid = true
	}
	return r
}

// StringRepr is the canonical stored representation. Invalid values
// render with the NaN prefix so a single byte test catches them.
func (a *Amount) StringRepr() string {
	if a.invalid {
		return "NaN"
	}
	digits := a.value.String()
	if a.precision == 0 {
		return digits
	}
	p := int(a.precision)
	for len(digits) <= p {
		digits = "0" + digits
	}
	return digits[:len(digits)-p] + "." + digits[len(digits)-p:]
}
