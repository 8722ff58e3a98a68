package toolkit

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardkit/internal/card"
	"github.com/alovak/cardkit/internal/cardfmt"
	"github.com/alovak/cardkit/internal/cardgen"
	"github.com/alovak/cardkit/internal/expiry"
	"github.com/alovak/cardkit/internal/isomsg"
	"github.com/alovak/cardkit/internal/luhn"
	"github.com/alovak/cardkit/internal/metrics"
	"github.com/alovak/cardkit/toolkit/models"
)

var (
	ErrEmptyInput     = errors.New("input is empty")
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	opGenerate = "generate"
	opValidate = "validate"
	opFormat   = "format"
	opISO8583  = "iso8583"
)

type Service struct {
	gen     *cardgen.Generator
	cfg     *Config
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
	stan    atomic.Uint32
}

func NewService(cfg *Config, gen *cardgen.Generator, logger *slog.Logger, rec metrics.Recorder) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if gen == nil {
		gen = cardgen.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		gen:     gen,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "service")),
		metrics: rec,
		now:     time.Now,
	}
}

// Generate produces a batch of test cards. Quantity outside 1..100 is an error.
func (s *Service) Generate(req models.GenerateRequest) (resp *models.GenerateResponse, err error) {
	defer func() { s.record(opGenerate, err, resp) }()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sep, err := cardfmt.ParseSeparator(firstNonEmpty(req.Separator, cardfmt.Pretty.String()))
	if err != nil {
		return nil, err
	}
	length := req.Length
	if length == 0 {
		length = s.cfg.DefaultLength
	}
	bin := cardgen.NormalizeBIN(req.BIN)

	recs, err := s.gen.Generate(bin, cardgen.Request{
		Quantity:      req.Quantity,
		Length:        length,
		IncludeExpiry: req.IncludeExpiry,
		IncludeCVV:    req.IncludeCVV,
		Unique:        req.Unique,
	})
	if err != nil {
		return nil, fmt.Errorf("generating cards: %w", err)
	}

	resp = &models.GenerateResponse{
		BatchID: uuid.New().String(),
		BIN:     bin,
		Count:   len(recs),
		Cards:   make([]models.GeneratedCard, 0, len(recs)),
	}
	for _, r := range recs {
		resp.Cards = append(resp.Cards, models.GeneratedCard{
			Record:    r,
			Formatted: cardfmt.Format(r, sep),
			Brand:     card.BrandOf(r.Number),
		})
	}

	s.logger.Info("cards generated",
		slog.String("batch_id", resp.BatchID),
		slog.String("bin", bin),
		slog.String("brand", string(card.BrandOf(bin))),
		slog.Int("count", resp.Count),
		slog.Int("length", length),
	)
	return resp, nil
}

// Validate runs the Luhn check over the first 13..19 digit run of every line.
func (s *Service) Validate(req models.ValidateRequest) (resp *models.ValidateResponse, err error) {
	defer func() { s.record(opValidate, err, resp) }()

	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := s.now()
	resp = &models.ValidateResponse{}
	for _, line := range cardfmt.Lines(req.Input) {
		number, ok := cardfmt.ExtractNumber(line)
		if !ok {
			continue
		}
		v := models.Validation{
			Card:   cardfmt.Group(number),
			Number: number,
			Valid:  luhn.Valid(number),
			Brand:  card.BrandOf(number),
		}
		if rec, ok := cardfmt.ParseLine(line); ok && rec.HasExpiry() {
			if expired, err := expiry.IsExpired(rec.Expiry, now, nil); err == nil {
				v.Expired = &expired
			}
		}
		if v.Valid {
			resp.ValidCount++
		}
		resp.Results = append(resp.Results, v)
	}
	if len(resp.Results) == 0 {
		return nil, cardfmt.ErrNoCardData
	}
	resp.Total = len(resp.Results)

	s.logger.Info("cards validated",
		slog.Int("total", resp.Total),
		slog.Int("valid", resp.ValidCount),
	)
	return resp, nil
}

// Format re-renders every parsable line under the requested separator.
func (s *Service) Format(ctx context.Context, req models.FormatRequest) (resp *models.FormatResponse, err error) {
	defer func() { s.record(opFormat, err, resp) }()

	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sep, err := cardfmt.ParseSeparator(firstNonEmpty(req.Separator, s.cfg.DefaultSeparator))
	if err != nil {
		return nil, err
	}

	recs, err := cardfmt.ParseConcurrent(ctx, req.Input, s.cfg.MaxWorkers)
	if err != nil {
		return nil, err
	}

	resp = &models.FormatResponse{
		Separator: sep.String(),
		Count:     len(recs),
		Lines:     cardfmt.FormatAll(recs, sep),
		Cards:     recs,
	}
	s.logger.Info("cards formatted",
		slog.String("separator", resp.Separator),
		slog.Int("count", resp.Count),
	)
	return resp, nil
}

// ISO8583 packs one authorization request per parsable line.
func (s *Service) ISO8583(ctx context.Context, req models.ISO8583Request) (resp *models.ISO8583Response, err error) {
	defer func() { s.record(opISO8583, err, resp) }()

	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	recs, err := cardfmt.ParseConcurrent(ctx, req.Input, s.cfg.MaxWorkers)
	if err != nil {
		return nil, err
	}

	currency := firstNonEmpty(req.Currency, s.cfg.ISO8583Currency)
	now := s.now()
	resp = &models.ISO8583Response{MTI: isomsg.MTIAuthorizationRequest}
	for _, r := range recs {
		stan := s.nextSTAN()
		packed, err := isomsg.Pack(r, isomsg.Auth{
			Amount:   req.Amount,
			Currency: currency,
			STAN:     stan,
			At:       now,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: card %s: %v", ErrInvalidRequest, card.Mask(r.Number), err)
		}
		resp.Messages = append(resp.Messages, models.ISO8583Message{
			Card: card.Mask(r.Number),
			STAN: stan,
			Hex:  hex.EncodeToString(packed),
		})
	}
	resp.Count = len(resp.Messages)

	s.logger.Info("iso8583 messages packed", slog.Int("count", resp.Count))
	return resp, nil
}

// nextSTAN cycles through 1..999999.
func (s *Service) nextSTAN() int {
	return int((s.stan.Add(1)-1)%999999) + 1
}

func (s *Service) record(op string, err error, resp any) {
	if err != nil {
		s.metrics.RecordOperation(op, metrics.StatusError, 0)
		s.logger.Debug("operation failed", slog.String("operation", op), slog.Any("err", err))
		return
	}
	s.metrics.RecordOperation(op, metrics.StatusSuccess, cardCount(resp))
}

func cardCount(resp any) int {
	switch r := resp.(type) {
	case *models.GenerateResponse:
		return r.Count
	case *models.ValidateResponse:
		return r.Total
	case *models.FormatResponse:
		return r.Count
	case *models.ISO8583Response:
		return r.Count
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
