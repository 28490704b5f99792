package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"pocketflow/internal/core"
)

// Form holds the raw values typed into the creation form.
type Form struct {
	Date          string
	Description   string
	Amount        string
	Category      string
	PaymentMethod string
}

// FieldErrors maps a field name to the message shown next to it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Is lets callers treat form errors like any other validation error.
func (fe FieldErrors) Is(target error) bool { return target == core.ErrValidation }

// Validate checks every field and returns the record the form describes,
// without an owner. All problems are reported at once.
func (f Form) Validate(opts Options) (core.FinancialRecord, FieldErrors) {
	errs := FieldErrors{}
	var r core.FinancialRecord

	if d, err := core.ParseDate(f.Date); err != nil {
		errs["date"] = message(err)
	} else {
		r.Date = d
	}

	r.Description = strings.TrimSpace(f.Description)
	switch {
	case r.Description == "":
		errs["description"] = "Description is required."
	case utf8.RuneCountInString(r.Description) > core.MaxDescriptionLen:
		errs["description"] = fmt.Sprintf("Description must be at most %d characters.", core.MaxDescriptionLen)
	}

	if a, err := core.ParseAmount(f.Amount); err != nil {
		errs["amount"] = message(err)
	} else {
		r.Amount = a
	}

	r.Category = strings.TrimSpace(f.Category)
	if msg := checkOption(r.Category, "Category", opts.HasCategory); msg != "" {
		errs["category"] = msg
	}
	r.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	if msg := checkOption(r.PaymentMethod, "Payment method", opts.HasPaymentMethod); msg != "" {
		errs["paymentMethod"] = msg
	}

	if len(errs) > 0 {
		return core.FinancialRecord{}, errs
	}
	return r, nil
}

func checkOption(v, label string, ok func(string) bool) string {
	switch {
	case v == "":
		return label + " is required."
	case !ok(v):
		return fmt.Sprintf("%s %q is not one of the available options.", label, v)
	}
	return ""
}

// message turns a core validation error into a sentence for the UI.
func message(err error) string {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	label := map[string]string{
		"date":          "Date",
		"description":   "Description",
		"amount":        "Amount",
		"category":      "Category",
		"paymentMethod": "Payment method",
		"userId":        "User",
	}[ve.Field]
	if label == "" {
		return capitalise(ve.Reason) + "."
	}
	return label + " " + ve.Reason + "."
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
