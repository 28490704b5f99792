// Package http provides the Record API server.
//
// This file decodes record payloads. Dates and amounts are parsed with
// core.ParseDate and core.ParseAmount; bad values are validation errors,
// not malformed bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pocketflow/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// errMalformedBody marks payloads that are not a JSON object.
var errMalformedBody = errors.New("malformed JSON body")

// recordPayload is the wire form of a record on create and update. id is
// never read; userId is only read on create.
type recordPayload struct {
	UserID        *string         `json:"userId"`
	Date          *string         `json:"date"`
	Description   *string         `json:"description"`
	Amount        json.RawMessage `json:"amount"`
	Category      *string         `json:"category"`
	PaymentMethod *string         `json:"paymentMethod"`
}

// decodePayload reads one JSON object from the request body.
func decodePayload(w http.ResponseWriter, r *http.Request) (recordPayload, error) {
	var p recordPayload
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return p, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return p, errMalformedBody
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return p, nil
}

// amount parses the raw amount. ok is false when the field is absent or null.
func (p recordPayload) amount() (d decimal.Decimal, ok bool, err error) {
	raw := bytes.TrimSpace(p.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d, false, nil
	}
	if raw[0] != '"' {
		// a JSON number, possibly with an exponent such as 1e2
		d, err = decimal.NewFromString(string(raw))
		if err != nil {
			return d, true, core.NewValidationError("amount", "is not a number")
		}
		return d.Round(core.AmountPlaces), true, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return d, true, core.NewValidationError("amount", "is not a number")
	}
	d, err = core.ParseAmount(text)
	return d, true, err
}

// toRecord builds a record for creation. Missing fields are left zero so
// FinancialRecord.Validate reports them.
func (p recordPayload) toRecord() (core.FinancialRecord, error) {
	var r core.FinancialRecord
	if p.UserID != nil {
		r.OwnerID = *p.UserID
	}
	if p.Date != nil {
		d, err := core.ParseDate(*p.Date)
		if err != nil {
			return r, err
		}
		r.Date = d
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		r.PaymentMethod = *p.PaymentMethod
	}
	a, ok, err := p.amount()
	if err != nil {
		return r, err
	}
	if !ok {
		if err := r.Validate(); err != nil {
			return r, err
		}
		return r, core.NewValidationError("amount", "is required")
	}
	r.Amount = a
	return r, nil
}

// toPatch builds a partial update from the fields present in the payload.
func (p recordPayload) toPatch() (core.RecordPatch, error) {
	patch := core.RecordPatch{
		Description:   p.Description,
		Category:      p.Category,
		PaymentMethod: p.PaymentMethod,
	}
	if p.Date != nil {
		d, err := core.ParseDate(*p.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	a, ok, err := p.amount()
	if err != nil {
		return patch, err
	}
	if ok {
		patch.Amount = &a
	}
	return patch, nil
}

// pathParam returns the decoded, trimmed chi URL parameter.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	// chi routes on RawPath when it is set; otherwise Path is already decoded.
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
	}
	return strings.TrimSpace(v)
}
