package toolkit_test

import (
	"context"
	"encoding/hex"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/cardfmt"
	"github.com/alovak/cardkit/internal/cardgen"
	"github.com/alovak/cardkit/internal/isomsg"
	"github.com/alovak/cardkit/internal/luhn"
	"github.com/alovak/cardkit/internal/metrics"
	"github.com/alovak/cardkit/toolkit"
	"github.com/alovak/cardkit/toolkit/models"
)

type recorded struct {
	op, status string
	cards      int
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (f *fakeRecorder) RecordOperation(op, status string, cards int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recorded{op, status, cards})
}

func newService(t *testing.T, rec metrics.Recorder) *toolkit.Service {
	t.Helper()
	gen := cardgen.New(cardgen.WithSource(rand.New(rand.NewSource(7))))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return toolkit.NewService(toolkit.DefaultConfig(), gen, logger, rec)
}

func TestService_Generate(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(t, rec)

	resp, err := svc.Generate(models.GenerateRequest{
		BIN:           "4111 11",
		Quantity:      5,
		IncludeExpiry: true,
		IncludeCVV:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "411111", resp.BIN)
	require.Equal(t, 5, resp.Count)
	require.NotEmpty(t, resp.BatchID)

	for _, c := range resp.Cards {
		require.Len(t, c.Number, 16)
		require.True(t, strings.HasPrefix(c.Number, "411111"))
		require.True(t, luhn.Valid(c.Number))
		require.Equal(t, card.BrandVisa, c.Brand)
		require.Len(t, c.CVV, 3)
		// pretty is the default for generated output
		require.Equal(t, cardfmt.Format(c.Record, cardfmt.Pretty), c.Formatted)
	}

	require.Equal(t, []recorded{{"generate", metrics.StatusSuccess, 5}}, rec.seen)
}

func TestService_Generate_Errors(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(t, rec)

	tests := []struct {
		name string
		req  models.GenerateRequest
		is   error
	}{
		{"missing bin", models.GenerateRequest{Quantity: 1}, toolkit.ErrInvalidRequest},
		{"letters in bin", models.GenerateRequest{BIN: "41a111", Quantity: 1}, toolkit.ErrInvalidRequest},
		{"short bin", models.GenerateRequest{BIN: "411", Quantity: 1}, cardgen.ErrBINTooShort},
		{"too many", models.GenerateRequest{BIN: "411111", Quantity: 101}, cardgen.ErrQuantityOutOfRange},
		{"bad separator", models.GenerateRequest{BIN: "411111", Quantity: 1, Separator: "tab"}, toolkit.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(tt.req)
			require.ErrorIs(t, err, tt.is)
		})
	}

	for _, r := range rec.seen {
		require.Equal(t, metrics.StatusError, r.status)
	}
}

func TestService_Validate(t *testing.T) {
	svc := newService(t, nil)

	input := strings.Join([]string{
		"4111111111111111|01/20|123",
		"4111111111111112,12/99",
		"no card here",
		"3782 822463 10005",
	}, "\n")

	resp, err := svc.Validate(models.ValidateRequest{Input: input})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	require.Equal(t, 2, resp.ValidCount)

	first := resp.Results[0]
	require.True(t, first.Valid)
	require.Equal(t, "4111 1111 1111 1111", first.Card)
	require.NotNil(t, first.Expired)
	require.True(t, *first.Expired)

	second := resp.Results[1]
	require.False(t, second.Valid)
	require.NotNil(t, second.Expired)
	require.False(t, *second.Expired)

	amex := resp.Results[2]
	require.Equal(t, "378282246310005", amex.Number)
	require.True(t, amex.Valid)
	require.Equal(t, card.BrandAmex, amex.Brand)
	require.Nil(t, amex.Expired)
}

func TestService_Validate_Errors(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Validate(models.ValidateRequest{Input: "  \n "})
	require.ErrorIs(t, err, toolkit.ErrEmptyInput)

	_, err = svc.Validate(models.ValidateRequest{Input: "hello\nworld"})
	require.ErrorIs(t, err, cardfmt.ErrNoCardData)
}

func TestService_Format(t *testing.T) {
	svc := newService(t, nil)

	input := "4111111111111111 12/30 123\ngarbage\n5555555555554444,01-28"
	resp, err := svc.Format(context.Background(), models.FormatRequest{Input: input, Separator: "colon"})
	require.NoError(t, err)
	require.Equal(t, "colon", resp.Separator)
	require.Equal(t, 2, resp.Count)
	require.Equal(t, []string{
		"4111111111111111:12/30:123",
		"5555555555554444:01/28",
	}, resp.Lines)

	// the configured default applies when no separator is given
	resp, err = svc.Format(context.Background(), models.FormatRequest{Input: input})
	require.NoError(t, err)
	require.Equal(t, "pipe", resp.Separator)
	require.Equal(t, "4111111111111111|12/30|123", resp.Lines[0])
}

func TestService_Format_Errors(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Format(context.Background(), models.FormatRequest{})
	require.ErrorIs(t, err, toolkit.ErrEmptyInput)

	_, err = svc.Format(context.Background(), models.FormatRequest{Input: "nothing"})
	require.ErrorIs(t, err, cardfmt.ErrNoCardData)

	_, err = svc.Format(context.Background(), models.FormatRequest{Input: "4111111111111111", Separator: "semicolon"})
	require.ErrorIs(t, err, toolkit.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Format(ctx, models.FormatRequest{Input: "4111111111111111"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestService_ISO8583(t *testing.T) {
	svc := newService(t, nil)

	resp, err := svc.ISO8583(context.Background(), models.ISO8583Request{
		Input:  "4111111111111111|12/30|123\n5555555555554444",
		Amount: 1250,
	})
	require.NoError(t, err)
	require.Equal(t, isomsg.MTIAuthorizationRequest, resp.MTI)
	require.Equal(t, 2, resp.Count)

	require.Equal(t, card.Mask("4111111111111111"), resp.Messages[0].Card)
	require.Equal(t, 1, resp.Messages[0].STAN)
	require.Equal(t, 2, resp.Messages[1].STAN)

	raw, err := hex.DecodeString(resp.Messages[0].Hex)
	require.NoError(t, err)
	got, err := isomsg.Unpack(raw)
	require.NoError(t, err)
	require.Equal(t, "4111111111111111", got.Number)
	require.Equal(t, "12/30", got.Expiry.CardFace())
	require.Empty(t, got.CVV)
}

func TestService_ISO8583_Errors(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.ISO8583(context.Background(), models.ISO8583Request{Input: "4111111111111111", Amount: -1})
	require.ErrorIs(t, err, toolkit.ErrInvalidRequest)

	_, err = svc.ISO8583(context.Background(), models.ISO8583Request{Input: "4111111111111111", Currency: "USD"})
	require.ErrorIs(t, err, toolkit.ErrInvalidRequest)

	// month 13 parses leniently but cannot be packed
	_, err = svc.ISO8583(context.Background(), models.ISO8583Request{Input: "4111111111111111 13/30"})
	require.ErrorIs(t, err, toolkit.ErrInvalidRequest)
}
