package toolkit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/jellydator/validation"

	"github.com/alovak/cardkit/internal/cardfmt"
	"github.com/alovak/cardkit/internal/cardgen"
	"github.com/alovak/cardkit/toolkit/models"
)

// maxBodyBytes caps request bodies; pasted card lists are small.
const maxBodyBytes = 1 << 20

// API is a HTTP API for the card toolkit
type API struct {
	toolkit *Service
}

func NewAPI(toolkit *Service) *API {
	return &API{
		toolkit: toolkit,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/cards", func(r chi.Router) {
		r.Post("/generate", a.generate)
		r.Post("/validate", a.validate)
		r.Post("/format", a.format)
		r.Post("/iso8583", a.iso8583)
	})
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	req := models.GenerateRequest{}
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.toolkit.Generate(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	req := models.ValidateRequest{}
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.toolkit.Validate(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) format(w http.ResponseWriter, r *http.Request) {
	req := models.FormatRequest{}
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.toolkit.Format(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) iso8583(w http.ResponseWriter, r *http.Request) {
	req := models.ISO8583Request{}
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.toolkit.ISO8583(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	var verrs validation.Errors
	switch {
	case errors.Is(err, cardfmt.ErrNoCardData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verrs),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrEmptyInput),
		errors.Is(err, cardgen.ErrInvalidInput),
		errors.Is(err, cardgen.ErrUniqueExhausted),
		errors.Is(err, cardfmt.ErrUnknownSeparator):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
