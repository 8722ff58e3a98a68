// Package cardfmt recovers card records from free-form text and renders them
// back under a chosen separator.
//
// Each line is read by a small state machine:
//
//	seekNumber -> seekExpiry -> seekCVV -> done
//
// Every state searches only the text after the previous match, so a field is
// never taken from before the field that precedes it.
package cardfmt

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/expiry"
	"github.com/alovak/cardkit/internal/luhn"
)

// ParsedNumberLength caps the number taken from a long digit run; the rest of
// the run stays available for the expiry and CVV.
const ParsedNumberLength = 16

var ErrNoCardData = errors.New("no valid card data found")

type state int

const (
	seekNumber state = iota
	seekExpiry
	seekCVV
	done
)

type lineParser struct {
	s     []rune
	pos   int // never moves backwards
	rec   card.Record
	found bool
}

// ParseLine extracts a record from one line. ok is false when the line has no
// run of at least 13 digits.
func ParseLine(line string) (rec card.Record, ok bool) {
	p := &lineParser{s: []rune(clean(line))}
	for st := seekNumber; st != done; {
		switch st {
		case seekNumber:
			st = p.seekNumber()
		case seekExpiry:
			st = p.seekExpiry()
		case seekCVV:
			st = p.seekCVV()
		}
	}
	return p.rec, p.found
}

func (p *lineParser) seekNumber() state {
	start, n := findRun(p.s, p.pos, luhn.MinLength)
	if start < 0 {
		return done
	}
	if n > ParsedNumberLength {
		n = ParsedNumberLength
	}
	p.rec.Number = string(p.s[start : start+n])
	p.pos = start + n
	p.found = true
	return seekExpiry
}

// seekExpiry looks for MM[x]YY where x is one optional non-digit.
func (p *lineParser) seekExpiry() state {
	s := p.s
	for i := p.pos; i+3 < len(s); i++ {
		if !isDigit(s[i]) || !isDigit(s[i+1]) {
			continue
		}
		yy := -1
		switch {
		case !isDigit(s[i+2]) && i+4 < len(s) && isDigit(s[i+3]) && isDigit(s[i+4]):
			yy = i + 3
		case isDigit(s[i+2]) && isDigit(s[i+3]):
			yy = i + 2
		}
		if yy < 0 {
			continue
		}
		p.rec.Expiry = expiry.New(twoDigits(s[i:]), twoDigits(s[yy:]))
		p.pos = yy + 2
		return seekCVV
	}
	return done
}

func (p *lineParser) seekCVV() state {
	start, n := findRun(p.s, p.pos, 3)
	if start < 0 {
		return done
	}
	if n > 4 {
		n = 4
	}
	p.rec.CVV = string(p.s[start : start+n])
	p.pos = start + n
	return done
}

// Parse reads one candidate per line, skipping blank and unmatched lines.
// It returns ErrNoCardData when no line yields a record.
func Parse(text string) ([]card.Record, error) {
	lines := Lines(text)
	out := make([]card.Record, 0, len(lines))
	for _, line := range lines {
		if rec, ok := ParseLine(line); ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCardData
	}
	return out, nil
}

// ParseConcurrent is Parse with lines spread over at most workers goroutines.
// Output order matches input order.
func ParseConcurrent(ctx context.Context, text string, workers int) ([]card.Record, error) {
	lines := Lines(text)
	if workers < 1 {
		workers = 1
	}

	recs := make([]card.Record, len(lines))
	found := make([]bool, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs[i], found[i] = ParseLine(line)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]card.Record, 0, len(lines))
	for i := range recs {
		if found[i] {
			out = append(out, recs[i])
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCardData
	}
	return out, nil
}

// ExtractNumber returns the first 13..19 digit run after dropping whitespace
// only. Unlike ParseLine it keeps 17..19 digit numbers whole and treats the
// field separators as boundaries, which is what a validator wants.
func ExtractNumber(line string) (string, bool) {
	s := []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line))
	start, n := findRun(s, 0, luhn.MinLength)
	if start < 0 {
		return "", false
	}
	if n > luhn.MaxLength {
		n = luhn.MaxLength
	}
	return string(s[start : start+n]), true
}

// Lines splits text into trimmed, non-blank lines.
func Lines(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func clean(line string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '|', ',', ':', '/':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}

// findRun returns the start and length of the first run of at least min
// digits at or after from, or -1.
func findRun(s []rune, from, min int) (int, int) {
	for i := from; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j-i >= min {
			return i, j - i
		}
		i = j
	}
	return -1, 0
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func twoDigits(s []rune) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
