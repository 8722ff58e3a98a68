package models

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/cardfmt"
)

var binPattern = regexp.MustCompile(`^[0-9 \-]+$`)

// knownSeparator accepts what cardfmt.ParseSeparator accepts, case and
// surrounding space included.
var knownSeparator = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	if _, err := cardfmt.ParseSeparator(name); err != nil {
		return validation.NewError("validation_separator", "must be one of "+strings.Join(cardfmt.Names(), ", "))
	}
	return nil
})

// GenerateRequest asks for Quantity cards under BIN.
type GenerateRequest struct {
	BIN           string `json:"bin"`
	Quantity      int    `json:"quantity"`
	Length        int    `json:"length,omitempty"`
	IncludeExpiry bool   `json:"include_expiry"`
	IncludeCVV    bool   `json:"include_cvv"`
	Unique        bool   `json:"unique,omitempty"`
	Separator     string `json:"separator,omitempty"`
}

func (r *GenerateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BIN,
			validation.Required,
			validation.Match(binPattern).Error("must contain digits, spaces or dashes only"),
		),
		validation.Field(&r.Quantity, validation.Required),
		validation.Field(&r.Separator, knownSeparator),
	)
}

type GeneratedCard struct {
	card.Record
	Formatted string     `json:"formatted"`
	Brand     card.Brand `json:"brand"`
}

type GenerateResponse struct {
	BatchID string          `json:"batch_id"`
	BIN     string          `json:"bin"`
	Count   int             `json:"count"`
	Cards   []GeneratedCard `json:"cards"`
}

type ValidateRequest struct {
	Input string `json:"input"`
}

func (r *ValidateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required),
	)
}

// Validation is the Luhn verdict for one input line.
type Validation struct {
	Card    string     `json:"card"`
	Number  string     `json:"number"`
	Valid   bool       `json:"valid"`
	Brand   card.Brand `json:"brand"`
	Expired *bool      `json:"expired,omitempty"`
}

type ValidateResponse struct {
	Total      int          `json:"total"`
	ValidCount int          `json:"valid_count"`
	Results    []Validation `json:"results"`
}

type FormatRequest struct {
	Input     string `json:"input"`
	Separator string `json:"separator"`
}

func (r *FormatRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required),
		validation.Field(&r.Separator, knownSeparator),
	)
}

type FormatResponse struct {
	Separator string        `json:"separator"`
	Count     int           `json:"count"`
	Lines     []string      `json:"lines"`
	Cards     []card.Record `json:"cards"`
}

type ISO8583Request struct {
	Input    string `json:"input"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

var numericCurrency = regexp.MustCompile(`^[0-9]{3}$`)

func (r *ISO8583Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required),
		validation.Field(&r.Amount, validation.Min(int64(0))),
		validation.Field(&r.Currency, validation.Match(numericCurrency).Error("must be an ISO 4217 numeric code")),
	)
}

type ISO8583Message struct {
	Card string `json:"card"` // masked
	STAN int    `json:"stan"`
	Hex  string `json:"hex"`
}

type ISO8583Response struct {
	MTI      string           `json:"mti"`
	Count    int              `json:"count"`
	Messages []ISO8583Message `json:"messages"`
}
