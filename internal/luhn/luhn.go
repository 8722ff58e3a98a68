// Package luhn implements the ISO/IEC 7812 mod-10 check digit.
package luhn

import "errors"

const (
	MinLength = 13
	MaxLength = 19
)

var ErrNotDigits = errors.New("luhn: input must be a non-empty digit string")

// CheckDigit returns the digit that makes body+digit pass the Luhn check.
func CheckDigit(body string) (int, error) {
	if body == "" || !isDigits(body) {
		return 0, ErrNotDigits
	}
	// the check digit will sit at position 0, so the rightmost body digit is doubled
	sum := weightedSum(body, true)
	return (10 - sum%10) % 10, nil
}

// Append returns body followed by its check digit.
func Append(body string) (string, error) {
	cd, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	return body + string(rune('0'+cd)), nil
}

// Valid reports whether number is 13..19 digits and passes the Luhn check.
func Valid(number string) bool {
	if l := len(number); l < MinLength || l > MaxLength {
		return false
	}
	if !isDigits(number) {
		return false
	}
	return weightedSum(number, false)%10 == 0
}

func weightedSum(s string, dbl bool) int {
	sum := 0
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if dbl {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		dbl = !dbl
	}
	return sum
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
