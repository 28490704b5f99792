package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// Length limits count characters, not bytes.
	MaxDescriptionLen = 200
	MaxTagLen         = 64

	// DatePrecision is the finest date resolution every store keeps.
	// BSON datetimes hold milliseconds.
	DatePrecision = time.Millisecond
)

type (
	// FinancialRecord is one income (positive amount) or expense (negative amount) entry.
	FinancialRecord struct {
		ID            string          `json:"id,omitempty"`
		OwnerID       string          `json:"userId"`
		Date          time.Time       `json:"date"`
		Description   string          `json:"description"`
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"paymentMethod"`
	}

	// RecordPatch carries the mutable fields of a partial update. Nil means unchanged.
	RecordPatch struct {
		Date          *time.Time       `json:"date,omitempty"`
		Description   *string          `json:"description,omitempty"`
		Amount        *decimal.Decimal `json:"amount,omitempty"`
		Category      *string          `json:"category,omitempty"`
		PaymentMethod *string          `json:"paymentMethod,omitempty"`
	}
)

// Validate checks every field required for creation. ID is not inspected.
func (r FinancialRecord) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return NewValidationError("userId", "is required")
	}
	if r.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if err := validateTag("category", r.Category); err != nil {
		return err
	}
	return validateTag("paymentMethod", r.PaymentMethod)
}

// IsIncome reports whether the record adds to the balance.
func (r FinancialRecord) IsIncome() bool {
	return r.Amount.IsPositive()
}

// IsExpense reports whether the record subtracts from the balance.
func (r FinancialRecord) IsExpense() bool {
	return r.Amount.IsNegative()
}

// Normalized trims the free-text fields and truncates the date to
// DatePrecision so that values round-trip through storage unchanged.
func (r FinancialRecord) Normalized() FinancialRecord {
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	r.Date = r.Date.UTC().Truncate(DatePrecision)
	return r
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Date == nil && p.Description == nil && p.Amount == nil &&
		p.Category == nil && p.PaymentMethod == nil
}

// Validate checks the fields present in the patch with the creation rules.
func (p RecordPatch) Validate() error {
	if p.Date != nil && p.Date.IsZero() {
		return NewValidationError("date", "cannot be empty")
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateTag("category", *p.Category); err != nil {
			return err
		}
	}
	if p.PaymentMethod != nil {
		if err := validateTag("paymentMethod", *p.PaymentMethod); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into r. ID and OwnerID are never touched.
func (p RecordPatch) Apply(r FinancialRecord) FinancialRecord {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		r.PaymentMethod = *p.PaymentMethod
	}
	return r.Normalized()
}

// Normalized trims string fields the same way FinancialRecord.Normalized does.
func (p RecordPatch) Normalized() RecordPatch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	p.Description = trim(p.Description)
	p.Category = trim(p.Category)
	p.PaymentMethod = trim(p.PaymentMethod)
	if p.Date != nil {
		d := p.Date.UTC().Truncate(DatePrecision)
		p.Date = &d
	}
	return p
}

func validateDescription(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewValidationError("description", "is required")
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return NewValidationError("description", fmt.Sprintf("too long (max %d characters)", MaxDescriptionLen))
	}
	return nil
}

func validateTag(field, s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(s) > MaxTagLen {
		return NewValidationError(field, fmt.Sprintf("too long (max %d characters)", MaxTagLen))
	}
	return nil
}
