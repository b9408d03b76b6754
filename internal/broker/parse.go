package broker

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// KIS encodes every numeric field as a string; blanks and dashes appear in
// off-hours responses. Parsing is tolerant: garbage becomes zero.

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some fields arrive with a decimal tail, e.g. "1234.00".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}

		return int64(f)
	}

	return v
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return v
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
