package cardfmt

import (
	"strings"

	"github.com/alovak/cardkit/internal/card"
)

// Format renders rec as number[sep MM/YY][sep CVV]. The number is grouped in
// blocks of four only for Pretty. Format never checks the Luhn digit.
func Format(rec card.Record, sep Separator) string {
	var sb strings.Builder
	if sep.groupsNumber() {
		sb.WriteString(Group(rec.Number))
	} else {
		sb.WriteString(rec.Number)
	}
	d := sep.Delimiter()
	if rec.HasExpiry() {
		sb.WriteString(d)
		sb.WriteString(rec.Expiry.CardFace())
	}
	if rec.HasCVV() {
		sb.WriteString(d)
		sb.WriteString(rec.CVV)
	}
	return sb.String()
}

func FormatAll(recs []card.Record, sep Separator) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = Format(r, sep)
	}
	return out
}

// Group splits a number into blocks of four separated by single spaces.
func Group(number string) string {
	if len(number) <= 4 {
		return number
	}
	var sb strings.Builder
	sb.Grow(len(number) + len(number)/4)
	for i := 0; i < len(number); i += 4 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		end := i + 4
		if end > len(number) {
			end = len(number)
		}
		sb.WriteString(number[i:end])
	}
	return sb.String()
}
