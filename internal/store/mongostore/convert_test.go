package mongostore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1500", "-4.25", "0.01", "-123456789.99"} {
		d := decimal.RequireFromString(s)
		d128, err := toDecimal128(d)
		require.NoError(t, err)
		back, err := fromDecimal128(d128)
		require.NoError(t, err)
		assert.True(t, back.Equal(d), "%s came back as %s", s, back)
	}
}

func TestRecordDocMapping(t *testing.T) {
	oid := primitive.NewObjectID()
	amt, err := primitive.ParseDecimal128("-12.50")
	require.NoError(t, err)
	doc := recordDoc{
		ID:            oid,
		UserID:        "u1",
		Date:          time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Description:   "Lunch",
		Amount:        amt,
		Category:      "Food",
		PaymentMethod: "Card",
	}
	rec, err := doc.record()
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), rec.ID)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, "-12.50", rec.Amount.StringFixed(2))
	assert.Equal(t, "Card", rec.PaymentMethod)
}
