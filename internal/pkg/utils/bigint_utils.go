package utils

import (
	"fmt"
	"math/big"
	"strings"
)

var bigTen = big.NewInt(10)

// FormatBigInt converts a raw integer amount into a fixed-point decimal string
// with exactly `decimals` fractional digits. The conversion is exact: no
// rounding and no trimming of trailing zeros.
// Example: amount=-1500, decimals=3 => "-1.500"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if decimals == 0 {
		return amount.String()
	}

	abs := new(big.Int).Abs(amount)
	digits := abs.String()
	if pad := int(decimals) + 1 - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}

	split := len(digits) - int(decimals)
	formatted := digits[:split] + "." + digits[split:]
	if amount.Sign() < 0 {
		formatted = "-" + formatted
	}
	return formatted
}

// ParseBigDecimal is the inverse of FormatBigInt: it parses a decimal string
// into a raw integer scaled by 10^decimals. The string must not carry more
// fractional digits than decimals.
func ParseBigDecimal(s string, decimals uint8) (*big.Int, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return nil, fmt.Errorf("empty decimal string")
	}

	negative := false
	switch str[0] {
	case '-':
		negative = true
		str = str[1:]
	case '+':
		str = str[1:]
	}

	intPart, fracPart, hasDot := strings.Cut(str, ".")
	if intPart == "" || (hasDot && fracPart == "") {
		return nil, fmt.Errorf("malformed decimal string %q", s)
	}
	if len(fracPart) > int(decimals) {
		return nil, fmt.Errorf("decimal string %q has %d fractional digits, scale is %d", s, len(fracPart), decimals)
	}
	if strings.ContainsAny(intPart+fracPart, "+-") {
		return nil, fmt.Errorf("malformed decimal string %q", s)
	}

	raw, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, fmt.Errorf("malformed decimal string %q", s)
	}
	missing := int64(int(decimals) - len(fracPart))
	if missing > 0 {
		raw.Mul(raw, new(big.Int).Exp(bigTen, big.NewInt(missing), nil))
	}
	if negative {
		raw.Neg(raw)
	}
	return raw, nil
}

// ParseBlockHeight accepts a decimal or 0x-prefixed block number. An empty
// string or "latest" yields nil.
func ParseBlockHeight(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "latest") {
		return nil, nil
	}
	height, ok := new(big.Int).SetString(raw, 0)
	if !ok || height.Sign() < 0 {
		return nil, fmt.Errorf("invalid block number %q", raw)
	}
	return height, nil
}
