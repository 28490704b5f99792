// Package storetest holds the behaviour every record backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketflow/internal/core"
	"pocketflow/internal/store"
)

// Record builds a valid record for owner.
func Record(owner, desc, amount string) core.FinancialRecord {
	return core.FinancialRecord{
		OwnerID:       owner,
		Date:          time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description:   desc,
		Amount:        decimal.RequireFromString(amount),
		Category:      "General",
		PaymentMethod: "Cash",
	}
}

// Run exercises s against the store port contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty owner lists nothing", func(t *testing.T) {
		got, err := s.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("create list update delete", func(t *testing.T) {
		a, err := s.Create(ctx, Record("alice", "Paycheck", "1500.00"))
		require.NoError(t, err)
		require.NotEmpty(t, a.ID)
		assert.Equal(t, "alice", a.OwnerID)
		assert.True(t, a.Amount.Equal(decimal.RequireFromString("1500")))

		b, err := s.Create(ctx, Record("alice", "Coffee", "-3.50"))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		_, err = s.Create(ctx, Record("bob", "Rent", "-900"))
		require.NoError(t, err)

		list, err := s.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)
		assert.True(t, list[0].Date.Equal(a.Date))
		assert.Equal(t, "Coffee", list[1].Description)

		amt := decimal.RequireFromString("-4.25")
		cat := "Food"
		upd, err := s.Update(ctx, b.ID, core.RecordPatch{Amount: &amt, Category: &cat})
		require.NoError(t, err)
		assert.Equal(t, b.ID, upd.ID)
		assert.Equal(t, "alice", upd.OwnerID)
		assert.True(t, upd.Amount.Equal(amt), "amount %s", upd.Amount)
		assert.Equal(t, "Food", upd.Category)
		assert.Equal(t, "Coffee", upd.Description)
		assert.Equal(t, "Cash", upd.PaymentMethod)

		same, err := s.Update(ctx, b.ID, core.RecordPatch{})
		require.NoError(t, err)
		assert.True(t, same.Amount.Equal(amt))

		del, err := s.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, del.ID)

		list, err = s.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("confirmed record equals the listed one", func(t *testing.T) {
		r := Record("dave", "Sub-millisecond", "12.34")
		r.Date = time.Date(2025, 1, 1, 10, 0, 0, 123456789, time.UTC)
		created, err := s.Create(ctx, r)
		require.NoError(t, err)
		assert.True(t, created.Date.Equal(time.Date(2025, 1, 1, 10, 0, 0, 123000000, time.UTC)), "date %v", created.Date)

		list, err := s.ListByOwner(ctx, "dave")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
		assert.True(t, list[0].Date.Equal(created.Date), "listed %v, confirmed %v", list[0].Date, created.Date)
		assert.True(t, list[0].Amount.Equal(created.Amount))

		later := time.Date(2025, 2, 1, 8, 30, 0, 987654321, time.UTC)
		upd, err := s.Update(ctx, created.ID, core.RecordPatch{Date: &later})
		require.NoError(t, err)
		list, err = s.ListByOwner(ctx, "dave")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Date.Equal(upd.Date), "listed %v, confirmed %v", list[0].Date, upd.Date)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		desc := "x"
		_, err := s.Update(ctx, "does-not-exist", core.RecordPatch{Description: &desc})
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = s.Delete(ctx, "does-not-exist")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		_, err := s.Create(ctx, Record("carol", " ", "1"))
		assert.ErrorIs(t, err, core.ErrValidation)

		list, err := s.ListByOwner(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
