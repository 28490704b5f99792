// Package store defines the persistence ports for financial records.
package store

import (
	"context"

	"pocketflow/internal/core"
)

// Ports implemented by every record backend (memory, sqlite, postgres, mongo).
type (
	RecordLister interface {
		// ListByOwner returns the owner's records in insertion order.
		// An owner with no records yields an empty slice, not an error.
		ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error)
	}

	RecordCreator interface {
		// Create persists r under a freshly assigned ID and returns the stored record.
		Create(ctx context.Context, r core.FinancialRecord) (core.FinancialRecord, error)
	}

	RecordUpdater interface {
		// Update applies patch to the record with the given ID and returns the
		// post-update record. Unknown IDs yield a *core.NotFoundError.
		Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error)
	}

	RecordDeleter interface {
		// Delete removes the record and returns it as it was before removal.
		Delete(ctx context.Context, id string) (core.FinancialRecord, error)
	}

	Store interface {
		RecordLister
		RecordCreator
		RecordUpdater
		RecordDeleter
	}

	// Pinger is implemented by backends that can report connectivity.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
