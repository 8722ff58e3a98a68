// Package card holds the value types shared by the generator, parser and formatter.
package card

import (
	"strings"

	"github.com/alovak/cardkit/internal/expiry"
)

// Record is a card number with an optional expiry and CVV.
type Record struct {
	Number string      `json:"number"`
	Expiry expiry.Date `json:"expiry"`
	CVV    string      `json:"cvv,omitempty"`
}

func (r Record) HasExpiry() bool { return !r.Expiry.IsZero() }

func (r Record) HasCVV() bool { return r.CVV != "" }

// Mask keeps the first 6 and last 4 digits of a PAN.
func Mask(pan string) string {
	n := len(pan)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	if n < 10 {
		return strings.Repeat("*", n-4) + pan[n-4:]
	}
	return pan[:6] + strings.Repeat("*", n-10) + pan[n-4:]
}
