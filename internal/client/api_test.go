package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketflow/internal/core"
	apihttp "pocketflow/internal/http"
	"pocketflow/internal/services"
	"pocketflow/internal/store/memory"
)

// newAPIServer runs the real Record API on an in-memory store.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := apihttp.NewServer(apihttp.Options{RateLimitPerMinute: 1000}, services.NewRecordService(memory.New(), nil, nil))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts
}

func newClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, 5*time.Second)
	require.NoError(t, err)
	return c
}

func paycheck(owner string) core.FinancialRecord {
	return core.FinancialRecord{
		OwnerID:       owner,
		Date:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Description:   "Paycheck",
		Amount:        core.MustAmount("100"),
		Category:      "Salary",
		PaymentMethod: "Bank Transfer",
	}
}

func TestHTTPClientRoundTrip(t *testing.T) {
	ts := newAPIServer(t)
	c := newClient(t, ts.URL+"/")
	ctx := context.Background()

	list, err := c.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	created, err := c.Create(ctx, paycheck("u1"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "100.00", core.FormatAmount(created.Amount))

	amt := core.MustAmount("-20")
	updated, err := c.Update(ctx, created.ID, core.RecordPatch{Amount: &amt})
	require.NoError(t, err)
	assert.Equal(t, "-20.00", core.FormatAmount(updated.Amount))
	assert.Equal(t, created.Description, updated.Description)
	assert.True(t, created.Date.Equal(updated.Date))

	list, err = c.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, created.ID))
	err = c.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = c.Update(ctx, created.ID, core.RecordPatch{Amount: &amt})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHTTPClientValidationError(t *testing.T) {
	ts := newAPIServer(t)
	c := newClient(t, ts.URL)

	r := paycheck("u1")
	r.Category = ""
	_, err := c.Create(context.Background(), r)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Field)
	assert.Equal(t, "is required", ve.Reason)
}

func TestHTTPClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"message":"User ID is required."}`, core.ErrValidation},
		{"server error", http.StatusInternalServerError, `{"message":"Internal server error."}`, core.ErrStorage},
		{"gateway timeout", http.StatusGatewayTimeout, ``, core.ErrStorage},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, core.ErrTransport},
		{"redirect-ish", http.StatusNotModified, ``, core.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := newClient(t, ts.URL).Create(context.Background(), paycheck("u1"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClientListTreats404AsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No records found for this user."}`))
	}))
	defer ts.Close()

	list, err := newClient(t, ts.URL).ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHTTPClientNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newClient(t, url).ListByOwner(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrTransport)
}

func TestHTTPClientUndecodableResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL).ListByOwner(context.Background(), "u1")
	assert.True(t, errors.Is(err, core.ErrTransport), "got %v", err)
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", time.Second)
	assert.Error(t, err)
	_, err = NewHTTPClient("://", time.Second)
	assert.Error(t, err)
}
