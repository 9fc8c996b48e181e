package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseMinorUnits converts a decimal amount such as "1500", "1500.5" or
// "1500.00" into integer minor units (1/100). More than two fractional digits,
// signs and exponents are rejected so the value never passes through a float.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if major > (1<<63-1-minor)/100 {
		return 0, ErrInvalidAmount
	}
	return major*100 + minor, nil
}

// FormatMinorUnits renders minor units as a decimal string with two places.
func FormatMinorUnits(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
