// Package dashboard binds the record cache to a terminal UI: a creation
// form, an editable table, the balance and inline notifications.
//
// No business rules live here beyond field-level input checks. Every intent
// is forwarded to the cache, and the cache only changes once the API has
// confirmed the mutation.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pocketflow/internal/client"
	"pocketflow/internal/core"
	"pocketflow/internal/log"
)

// RecordCache is the part of client.Cache the dashboard drives.
type RecordCache interface {
	Load(ctx context.Context, s client.Session) error
	Add(ctx context.Context, s client.Session, r core.FinancialRecord) (core.FinancialRecord, error)
	Modify(ctx context.Context, s client.Session, id string, patch core.RecordPatch) (core.FinancialRecord, error)
	Remove(ctx context.Context, s client.Session, id string) error
	Records() []core.FinancialRecord
	Total() decimal.Decimal
}

var _ RecordCache = (*client.Cache)(nil)

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled by user")

// ConfirmFunc asks the user whether r may be deleted.
type ConfirmFunc func(r core.FinancialRecord) bool

type Option func(*Dashboard)

// WithConfirm asks before every delete.
func WithConfirm(fn ConfirmFunc) Option {
	return func(d *Dashboard) { d.confirm = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(d *Dashboard) { d.logger = l.WithComponent(log.ComponentDashboard) }
}

// Dashboard is the binding layer for one signed-in session.
type Dashboard struct {
	cache   RecordCache
	session client.Session
	opts    Options
	notify  Notifier
	confirm ConfirmFunc
	logger  *log.Logger
}

func New(cache RecordCache, session client.Session, opts Options, notify Notifier, options ...Option) *Dashboard {
	d := &Dashboard{
		cache:   cache,
		session: session,
		opts:    opts,
		notify:  notify,
		logger:  log.Discard(),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

func (d *Dashboard) Options() Options { return d.opts }

// Records returns the table rows in display order.
func (d *Dashboard) Records() []core.FinancialRecord { return d.cache.Records() }

// Refresh loads the session owner's records into the cache.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if err := d.cache.Load(ctx, d.session); err != nil {
		d.fail(ctx, log.OpLoad, "Could not load your records", err)
		return err
	}
	n := len(d.cache.Records())
	if n == 0 {
		d.info("No records yet. Add your first record to get started.")
	} else {
		d.info(fmt.Sprintf("Loaded %d %s.", n, plural(n, "record", "records")))
	}
	return nil
}

// Submit validates the form and creates the record.
func (d *Dashboard) Submit(ctx context.Context, f Form) (core.FinancialRecord, error) {
	r, errs := f.Validate(d.opts)
	if errs != nil {
		d.notify.Notify(Notification{Level: LevelError, Message: "Please fix the form: " + errs.Error()})
		return core.FinancialRecord{}, errs
	}
	r.OwnerID = d.session.OwnerID
	created, err := d.cache.Add(ctx, d.session, r)
	if err != nil {
		d.fail(ctx, log.OpCreate, "Could not add the record", err)
		return core.FinancialRecord{}, err
	}
	d.success(fmt.Sprintf("Added %q (%s).", created.Description, core.FormatAmount(created.Amount)))
	return created, nil
}

// Edit changes one cell of record id.
func (d *Dashboard) Edit(ctx context.Context, id string, c Column, value string) (core.FinancialRecord, error) {
	patch, errs := CellPatch(c, value, d.opts)
	if errs != nil {
		d.notify.Notify(Notification{Level: LevelError, Message: errs.Error()})
		return core.FinancialRecord{}, errs
	}
	updated, err := d.cache.Modify(ctx, d.session, id, patch)
	if err != nil {
		d.fail(ctx, log.OpUpdate, "Could not update the record", err)
		return core.FinancialRecord{}, err
	}
	d.success(fmt.Sprintf("Updated %s of %q.", c.Title(), updated.Description))
	return updated, nil
}

// Delete removes record id after the optional confirmation. A record that
// is already gone is reported as info, not as a failure.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if d.confirm != nil {
		r, _ := d.find(id)
		if !d.confirm(r) {
			d.info("Delete cancelled.")
			return ErrCancelled
		}
	}
	err := d.cache.Remove(ctx, d.session, id)
	switch {
	case err == nil:
		d.success("Record deleted.")
	case errors.Is(err, core.ErrNotFound):
		d.info("Record was already deleted.")
		return nil
	default:
		d.fail(ctx, log.OpDelete, "Could not delete the record", err)
		return err
	}
	return nil
}

// Balance is the sum of all cached amounts with two decimals.
func (d *Dashboard) Balance() string {
	return core.FormatAmount(d.cache.Total())
}

func (d *Dashboard) find(id string) (core.FinancialRecord, bool) {
	for _, r := range d.cache.Records() {
		if r.ID == id {
			return r, true
		}
	}
	return core.FinancialRecord{}, false
}

func (d *Dashboard) success(msg string) {
	d.notify.Notify(Notification{Level: LevelSuccess, Message: msg})
}

func (d *Dashboard) info(msg string) {
	d.notify.Notify(Notification{Level: LevelInfo, Message: msg})
}

func (d *Dashboard) fail(ctx context.Context, op, msg string, err error) {
	d.logger.WarnContext(ctx, msg, log.FieldOperation, op, log.FieldOwnerID, d.session.OwnerID, log.FieldError, err)
	d.notify.Notify(Notification{Level: LevelError, Message: msg + ": " + Describe(err)})
}

// Describe turns an error from the cache into a user-facing sentence.
func Describe(err error) string {
	var fe FieldErrors
	switch {
	case errors.As(err, &fe):
		return fe.Error()
	case errors.Is(err, core.ErrValidation):
		return message(err)
	case errors.Is(err, core.ErrNotFound):
		return "the record no longer exists."
	case errors.Is(err, client.ErrOwnerMismatch), errors.Is(err, client.ErrSuperseded):
		return "your session changed, reload and try again."
	case errors.Is(err, core.ErrTransport):
		return "the server could not be reached."
	case errors.Is(err, core.ErrStorage):
		return "the server failed to save the change."
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out."
	}
	return err.Error()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
