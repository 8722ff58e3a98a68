package cardgen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/expiry"
	"github.com/alovak/cardkit/internal/luhn"
)

const (
	DefaultLength = 16
	MinBINLength  = 4
	MaxBINLength  = 16
	MinQuantity   = 1
	MaxQuantity   = 100

	maxExpiryYears = 5
	uniqueRetries  = 10
)

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrBINTooShort        = fmt.Errorf("%w: bin too short (need at least %d digits)", ErrInvalidInput, MinBINLength)
	ErrBINTooLong         = fmt.Errorf("%w: bin too long", ErrInvalidInput)
	ErrBINNotNumeric      = fmt.Errorf("%w: bin must contain digits only", ErrInvalidInput)
	ErrQuantityOutOfRange = fmt.Errorf("%w: quantity must be %d..%d", ErrInvalidInput, MinQuantity, MaxQuantity)
	ErrLengthOutOfRange   = fmt.Errorf("%w: length must be %d..%d", ErrInvalidInput, luhn.MinLength, luhn.MaxLength)

	ErrUniqueExhausted = errors.New("could not generate a unique card number")
)

// Request describes one batch.
type Request struct {
	Quantity      int
	Length        int // total PAN length including the check digit; 0 means 16
	IncludeExpiry bool
	IncludeCVV    bool
	// Unique regenerates numbers that already occurred in the batch.
	Unique bool
}

// Generator produces Luhn-valid test card numbers from a BIN.
// A Generator is as safe for concurrent use as its Source.
type Generator struct {
	src Source
	now func() time.Time
}

type Option func(*Generator)

func WithSource(src Source) Option {
	return func(g *Generator) { g.src = src }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.src == nil {
		g.src = NewCryptoSource()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Generate returns exactly req.Quantity records. Out-of-range quantities are
// rejected, never clamped; see ClampQuantity.
func (g *Generator) Generate(bin string, req Request) ([]card.Record, error) {
	length := req.Length
	if length == 0 {
		length = DefaultLength
	}
	if err := validate(bin, length, req.Quantity); err != nil {
		return nil, err
	}

	var seen map[string]struct{}
	if req.Unique {
		seen = make(map[string]struct{}, req.Quantity)
	}

	now := g.now()
	out := make([]card.Record, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		number, err := g.number(bin, length, seen)
		if err != nil {
			return nil, err
		}
		rec := card.Record{Number: number}
		if req.IncludeExpiry {
			rec.Expiry = g.expiry(now)
		}
		if req.IncludeCVV {
			rec.CVV = g.cvv()
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *Generator) number(bin string, length int, seen map[string]struct{}) (string, error) {
	if seen == nil {
		return g.pan(bin, length), nil
	}
	for i := 0; i <= uniqueRetries; i++ {
		pan := g.pan(bin, length)
		if _, used := seen[pan]; !used {
			seen[pan] = struct{}{}
			return pan, nil
		}
	}
	return "", fmt.Errorf("%w after %d retries", ErrUniqueExhausted, uniqueRetries)
}

func (g *Generator) pan(bin string, length int) string {
	fill := length - 1 - len(bin)
	var sb strings.Builder
	sb.Grow(length)
	sb.WriteString(bin)
	for i := 0; i < fill; i++ {
		sb.WriteByte(byte('0' + g.src.Intn(10)))
	}
	// the body is all digits by construction
	pan, _ := luhn.Append(sb.String())
	return pan
}

func (g *Generator) expiry(now time.Time) expiry.Date {
	month := g.src.Intn(12) + 1
	years := g.src.Intn(maxExpiryYears) + 1
	return expiry.New(month, now.Year()+years)
}

// cvv is uniform over 100..999.
func (g *Generator) cvv() string {
	b := []byte{
		byte('1' + g.src.Intn(9)),
		byte('0' + g.src.Intn(10)),
		byte('0' + g.src.Intn(10)),
	}
	return string(b)
}

func validate(bin string, length, quantity int) error {
	if length < luhn.MinLength || length > luhn.MaxLength {
		return ErrLengthOutOfRange
	}
	if !IsDigits(bin) {
		return ErrBINNotNumeric
	}
	if len(bin) < MinBINLength {
		return ErrBINTooShort
	}
	if len(bin) > MaxBINLength || len(bin) >= length {
		// at least the check digit has to fit after the BIN
		return fmt.Errorf("%w: %d digits leaves no room in a %d digit number", ErrBINTooLong, len(bin), length)
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrQuantityOutOfRange
	}
	return nil
}

// ClampQuantity pins q into [MinQuantity, MaxQuantity] for callers that prefer
// clamping over rejection.
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeBIN strips spaces, tabs and dashes.
func NormalizeBIN(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		default:
			return r
		}
	}, s)
}
