package utils

import (
	"math/big"
	"strings"
)

// AttoDecimals is the number of decimals of the native unit (atto-circles).
const AttoDecimals = 18

// TruncateToPrecision floors x to the nearest multiple of factor. The
// pathfinder silently drops precision below its supported boundary, so
// requested amounts are truncated before they are sent to it. Truncating an
// already-truncated amount is a no-op.
func TruncateToPrecision(x, factor *big.Int) *big.Int {
	out := new(big.Int).Div(x, factor)
	return out.Mul(out, factor)
}

// RoundUpToPrecision ceils x to the nearest multiple of factor. Used on the
// replenish path where the delivered amount must never fall short of the
// target: RoundUpToPrecision(x, f) >= x for every non-negative x.
func RoundUpToPrecision(x, factor *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, factor, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Mul(q, factor)
}

// FormatAtto renders an atto-circle amount as a human-readable decimal
// string (trailing zeros trimmed), for error messages and logs.
func FormatAtto(x *big.Int) string {
	if x == nil {
		return "0"
	}
	neg := x.Sign() < 0
	abs := new(big.Int).Abs(x)

	s := abs.String()
	if len(s) <= AttoDecimals {
		s = strings.Repeat("0", AttoDecimals-len(s)+1) + s
	}
	whole := s[:len(s)-AttoDecimals]
	frac := strings.TrimRight(s[len(s)-AttoDecimals:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
