// Package isomsg packs card records into ISO 8583:1987 authorization requests
// so generated test cards can be replayed against acquirer simulators.
package isomsg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/iso8583"
	"github.com/moov-io/iso8583/specs"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/expiry"
)

const (
	MTIAuthorizationRequest = "0100"

	fieldPAN              = 2
	fieldProcessingCode   = 3
	fieldAmount           = 4
	fieldTransmissionTime = 7
	fieldSTAN             = 11
	fieldExpiry           = 14
	fieldCurrency         = 49

	purchaseProcessingCode = "000000"
	defaultCurrency        = "840"
	maxSTAN                = 999999
)

var ErrNoPAN = errors.New("record has no card number")

// Auth carries the transaction fields that do not come from the card.
type Auth struct {
	Amount   int64  // minor units
	Currency string // ISO 4217 numeric; empty means 840
	STAN     int
	At       time.Time
}

// Pack builds and packs an 0100 message for rec.
func Pack(rec card.Record, auth Auth) ([]byte, error) {
	if rec.Number == "" {
		return nil, ErrNoPAN
	}
	if rec.HasExpiry() && !rec.Expiry.Valid() {
		return nil, fmt.Errorf("expiry %s has no valid month", rec.Expiry)
	}
	if auth.Amount < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if auth.STAN < 0 || auth.STAN > maxSTAN {
		return nil, fmt.Errorf("stan must be 0..%d", maxSTAN)
	}
	currency := auth.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	at := auth.At
	if at.IsZero() {
		at = time.Now()
	}

	msg := iso8583.NewMessage(specs.Spec87ASCII)
	msg.MTI(MTIAuthorizationRequest)

	fields := []struct {
		id  int
		val string
	}{
		{fieldPAN, rec.Number},
		{fieldProcessingCode, purchaseProcessingCode},
		{fieldAmount, fmt.Sprintf("%012d", auth.Amount)},
		{fieldTransmissionTime, at.UTC().Format("0102150405")},
		{fieldSTAN, fmt.Sprintf("%06d", auth.STAN)},
		{fieldCurrency, currency},
	}
	if rec.HasExpiry() {
		fields = append(fields, struct {
			id  int
			val string
		}{fieldExpiry, rec.Expiry.YYMM()})
	}
	for _, f := range fields {
		if err := msg.Field(f.id, f.val); err != nil {
			return nil, fmt.Errorf("setting field %d: %w", f.id, err)
		}
	}

	packed, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("packing message: %w", err)
	}
	return packed, nil
}

// Unpack reads the card fields back out of a packed message. The CVV is not
// carried in the message.
func Unpack(b []byte) (card.Record, error) {
	msg := iso8583.NewMessage(specs.Spec87ASCII)
	if err := msg.Unpack(b); err != nil {
		return card.Record{}, fmt.Errorf("unpacking message: %w", err)
	}
	pan, err := msg.GetString(fieldPAN)
	if err != nil {
		return card.Record{}, fmt.Errorf("reading pan: %w", err)
	}
	if pan == "" {
		return card.Record{}, ErrNoPAN
	}
	rec := card.Record{Number: pan}
	if yymm, err := msg.GetString(fieldExpiry); err == nil && yymm != "" {
		// numeric fields may come back with their zero padding stripped
		d, err := expiry.ParseYYMM(zeroPad(yymm, 4))
		if err != nil {
			return card.Record{}, fmt.Errorf("reading expiry: %w", err)
		}
		rec.Expiry = d
	}
	return rec, nil
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
