package dashboard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pocketflow/internal/core"
)

// Column identifies a table column by the record field it shows.
type Column string

const (
	ColDescription   Column = "description"
	ColAmount        Column = "amount"
	ColCategory      Column = "category"
	ColPaymentMethod Column = "paymentMethod"
	ColDate          Column = "date"
)

// Columns lists the table columns in display order.
var Columns = []Column{ColDescription, ColAmount, ColCategory, ColPaymentMethod, ColDate}

func (c Column) Title() string {
	switch c {
	case ColDescription:
		return "Description"
	case ColAmount:
		return "Amount"
	case ColCategory:
		return "Category"
	case ColPaymentMethod:
		return "Payment Method"
	case ColDate:
		return "Date"
	}
	return string(c)
}

// Editable reports whether cells of c accept edits. Dates are read-only.
func (c Column) Editable() bool {
	switch c {
	case ColDescription, ColAmount, ColCategory, ColPaymentMethod:
		return true
	}
	return false
}

// ParseColumn accepts a field name or a column title, case-insensitively.
func ParseColumn(s string) (Column, error) {
	s = strings.TrimSpace(s)
	for _, c := range Columns {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Title()) {
			return c, nil
		}
	}
	return "", core.NewValidationError("column", fmt.Sprintf("%q is not a column", s))
}

// Cell renders the value of column c for r.
func Cell(r core.FinancialRecord, c Column) string {
	switch c {
	case ColDescription:
		return r.Description
	case ColAmount:
		return core.FormatAmount(r.Amount)
	case ColCategory:
		return r.Category
	case ColPaymentMethod:
		return r.PaymentMethod
	case ColDate:
		return r.Date.UTC().Format("2006-01-02")
	}
	return ""
}

// CellPatch builds the one-field patch for an edit of column c.
func CellPatch(c Column, value string, opts Options) (core.RecordPatch, FieldErrors) {
	if !c.Editable() {
		return core.RecordPatch{}, FieldErrors{string(c): c.Title() + " cannot be edited."}
	}
	value = strings.TrimSpace(value)
	var p core.RecordPatch
	switch c {
	case ColDescription:
		if value == "" {
			return p, FieldErrors{"description": "Description is required."}
		}
		if utf8.RuneCountInString(value) > core.MaxDescriptionLen {
			return p, FieldErrors{"description": fmt.Sprintf("Description must be at most %d characters.", core.MaxDescriptionLen)}
		}
		p.Description = &value
	case ColAmount:
		a, err := core.ParseAmount(value)
		if err != nil {
			return p, FieldErrors{"amount": message(err)}
		}
		p.Amount = &a
	case ColCategory:
		if msg := checkOption(value, "Category", opts.HasCategory); msg != "" {
			return p, FieldErrors{"category": msg}
		}
		p.Category = &value
	case ColPaymentMethod:
		if msg := checkOption(value, "Payment method", opts.HasPaymentMethod); msg != "" {
			return p, FieldErrors{"paymentMethod": msg}
		}
		p.PaymentMethod = &value
	}
	return p, nil
}
