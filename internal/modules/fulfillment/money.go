package fulfillment

import (
	"errors"
	"math/big"
	"regexp"
	"strings"
)

var (
	errNegativeAmount = errors.New("amount cannot be negative")
	errNotANumber     = errors.New("not a number")
	errSubCent        = errors.New("amount has more than two decimal places")
)

var (
	amountPattern = regexp.MustCompile(`^((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?|\.\d+)(k|thousand|m|mm|mil|million|b|bn|billion)?$`)
	splitDigits   = regexp.MustCompile(`\d\s+\d`)
)

var multipliers = map[string]int64{
	"k":        1_000,
	"thousand": 1_000,
	"m":        1_000_000,
	"mm":       1_000_000,
	"mil":      1_000_000,
	"million":  1_000_000,
	"b":        1_000_000_000,
	"bn":       1_000_000_000,
	"billion":  1_000_000_000,
}

// parseAmount reads "$1.5m", "50k", "USD 1,000", "2 billion dollars".
// Commas are only accepted as thousands separators. A value wrapped whole in
// parentheses is an accounting negative.
func parseAmount(raw string) (*big.Rat, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		if _, err := parseAmount(s[1 : len(s)-1]); err == nil {
			return nil, errNegativeAmount
		}
		return nil, errNotANumber
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "$-") {
		return nil, errNegativeAmount
	}
	for _, cut := range []string{"us$", "usd", "$", "dollars", "dollar", "_"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	if splitDigits.MatchString(s) {
		return nil, errNotANumber
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		return nil, errNegativeAmount
	}
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errNotANumber
	}
	r, ok := new(big.Rat).SetString(strings.ReplaceAll(m[1], ",", ""))
	if !ok {
		return nil, errNotANumber
	}
	if mult, ok := multipliers[m[2]]; ok {
		r.Mul(r, new(big.Rat).SetInt64(mult))
	}
	return r, nil
}

// ParseMoney normalizes an amount to a two-decimal string ("1500000.00").
func ParseMoney(raw string) (string, error) {
	r, err := parseAmount(raw)
	if err != nil {
		return "", err
	}
	if !new(big.Rat).Mul(r, big.NewRat(100, 1)).IsInt() {
		return "", errSubCent
	}
	return r.FloatString(2), nil
}

// ParseNumber normalizes a plain quantity, keeping a trailing percent sign.
func ParseNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if strings.ContainsAny(s, "$") {
		return "", errNotANumber
	}
	r, err := parseAmount(s)
	if err != nil {
		return "", err
	}
	out := r.FloatString(6)
	if r.IsInt() {
		out = r.Num().String()
	} else {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	if percent {
		out += "%"
	}
	return out, nil
}
