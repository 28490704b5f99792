// Package storage is the SQL record backend. It speaks SQLite through
// modernc.org/sqlite and PostgreSQL through lib/pq, with schema managed by
// embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketflow/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const recordColumns = "id, owner_id, date, description, amount, category, payment_method"

// Repository implements store.Store and store.Pinger on a database/sql pool.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database file and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to url and migrates the schema.
func NewPostgresRepository(url string) (*Repository, error) {
	return open(Postgres, url)
}

func open(dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db, dialect: dialect, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

// ListByOwner returns the owner's records in insertion order.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(
		"SELECT "+recordColumns+" FROM financial_records WHERE owner_id = ? ORDER BY seq"), ownerID)
	if err != nil {
		return nil, core.NewStorageError("list records", err)
	}
	defer rows.Close()

	out := make([]core.FinancialRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, core.NewStorageError("scan record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list records", err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, rec core.FinancialRecord) (core.FinancialRecord, error) {
	rec = rec.Normalized()
	if err := rec.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	now := r.dialect.timeArg(r.now())
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`INSERT INTO financial_records (`+recordColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+recordColumns),
		uuid.NewString(), rec.OwnerID, r.dialect.timeArg(rec.Date), rec.Description,
		rec.Amount, rec.Category, rec.PaymentMethod, now, now)

	created, err := scanRecord(row)
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("insert record", err)
	}
	slog.DebugContext(ctx, "Record inserted", "record_id", created.ID, "dialect", r.dialect)
	return created, nil
}

// Update merges patch into the stored record in a single statement.
func (r *Repository) Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	patch = patch.Normalized()
	if err := patch.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}

	var date, amount, desc, cat, pm any
	if patch.Date != nil {
		date = r.dialect.timeArg(*patch.Date)
	}
	if patch.Amount != nil {
		amount = *patch.Amount
	}
	if patch.Description != nil {
		desc = *patch.Description
	}
	if patch.Category != nil {
		cat = *patch.Category
	}
	if patch.PaymentMethod != nil {
		pm = *patch.PaymentMethod
	}

	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`UPDATE financial_records SET
		   date = COALESCE(?, date),
		   description = COALESCE(?, description),
		   amount = COALESCE(?, amount),
		   category = COALESCE(?, category),
		   payment_method = COALESCE(?, payment_method),
		   updated_at = ?
		 WHERE id = ?
		 RETURNING `+recordColumns),
		date, desc, amount, cat, pm, r.dialect.timeArg(r.now()), id)

	updated, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("update record", err)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (core.FinancialRecord, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		"DELETE FROM financial_records WHERE id = ? RETURNING "+recordColumns), id)

	deleted, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	if err != nil {
		return core.FinancialRecord{}, core.NewStorageError("delete record", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (core.FinancialRecord, error) {
	var (
		rec    core.FinancialRecord
		date   sqlTime
		amount decimal.Decimal
	)
	if err := s.Scan(&rec.ID, &rec.OwnerID, &date, &rec.Description, &amount, &rec.Category, &rec.PaymentMethod); err != nil {
		return core.FinancialRecord{}, err
	}
	rec.Date = date.Time
	rec.Amount = amount
	return rec, nil
}
