package dashboard

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// toFixed formats x with the given number of fraction digits, rounding
// exact ties away from zero on the magnitude (12.25 -> "12.3"), which is what
// browsers show for Number.prototype.toFixed. strconv rounds ties to even.
func toFixed(x float64, digits int) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', digits, 64)
	}

	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}

	const prec = 256
	scale := new(big.Float).SetPrec(prec).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil))
	v := new(big.Float).SetPrec(prec).SetFloat64(x)
	v.Mul(v, scale)
	v.Add(v, new(big.Float).SetPrec(prec).SetFloat64(0.5))
	n, _ := v.Int(nil) // v >= 0, so truncation is floor

	s := n.String()
	if digits == 0 {
		return sign + s
	}
	if len(s) <= digits {
		s = strings.Repeat("0", digits-len(s)+1) + s
	}
	return sign + s[:len(s)-digits] + "." + s[len(s)-digits:]
}

// round2 rounds to two decimals; nil and NaN become 0.
func round2(x *float64) float64 {
	if x == nil || math.IsNaN(*x) {
		return 0
	}
	v, err := strconv.ParseFloat(toFixed(*x, 2), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// formatScore renders an optional score for display. nil renders as "".
func formatScore(x *float64, digits int) string {
	if x == nil {
		return ""
	}
	return toFixed(*x, digits)
}
