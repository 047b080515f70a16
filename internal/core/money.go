package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumber is returned by ParseHundredths for text that is not a
// non-negative decimal number.
var ErrInvalidNumber = errors.New("invalid number")

// ParseHundredths converts a decimal string to an integer count of hundredths.
//
// Both dot (12.34) and comma (12,34) are accepted as decimal separator and
// the third fractional digit rounds half-up. Zero is valid; signs are not.
//
//	ParseHundredths("12.34")  -> 1234, nil
//	ParseHundredths("12,345") -> 1235, nil
//	ParseHundredths("-1")     -> 0, ErrInvalidNumber
func ParseHundredths(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidNumber
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidNumber
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidNumber
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidNumber
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv >= maxSafe {
		return 0, ErrInvalidNumber
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return iv*100 + frac, nil
}

// ParseAmount reads user-entered money. Anything unparseable, including a
// negative value, becomes zero; callers never see a parse error.
func ParseAmount(s string) decimal.Decimal {
	h, err := ParseHundredths(s)
	if err != nil {
		return decimal.Zero
	}
	return FromHundredths(h)
}

// ParseHours reads a user-entered hour quantity with the same rules as ParseAmount.
func ParseHours(s string) decimal.Decimal {
	return ParseAmount(s)
}

// FromHundredths turns a stored integer (cents, or hours x100) back into a decimal.
func FromHundredths(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// ToHundredths rounds d half-up to two places and returns it as an integer count.
func ToHundredths(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
