// Package client talks to the Record API and keeps a confirmed-only mirror of
// one owner's records for the terminal dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pocketflow/internal/core"
	"pocketflow/internal/log"
)

// API is the remote record store as seen by the cache.
type API interface {
	ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error)
	Create(ctx context.Context, r core.FinancialRecord) (core.FinancialRecord, error)
	Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error)
	Delete(ctx context.Context, id string) error
}

const maxErrorBody = 64 << 10

// HTTPClient implements API over the JSON endpoints.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	logger  *log.Logger
}

var _ API = (*HTTPClient)(nil)

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

func WithLogger(l *log.Logger) Option {
	return func(h *HTTPClient) { h.logger = l.WithComponent(log.ComponentClient) }
}

// NewHTTPClient returns a client for the API rooted at baseURL. Every request
// is bounded by timeout in addition to the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListByOwner treats both an empty 200 and a 404 as zero records.
func (c *HTTPClient) ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error) {
	var records []core.FinancialRecord
	err := c.do(ctx, "list", http.MethodGet, "/financial-records/getAllByUserId/"+url.PathEscape(ownerID), nil, &records)
	if errors.Is(err, core.ErrNotFound) {
		return []core.FinancialRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.FinancialRecord{}
	}
	return records, nil
}

func (c *HTTPClient) Create(ctx context.Context, r core.FinancialRecord) (core.FinancialRecord, error) {
	r.ID = ""
	var created core.FinancialRecord
	if err := c.do(ctx, "create", http.MethodPost, "/financial-records", r, &created); err != nil {
		return core.FinancialRecord{}, err
	}
	return created, nil
}

func (c *HTTPClient) Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	var updated core.FinancialRecord
	if err := c.do(ctx, "update", http.MethodPut, "/financial-records/"+url.PathEscape(id), patch, &updated); err != nil {
		return core.FinancialRecord{}, err
	}
	return updated, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/financial-records/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return core.NewTransportError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed", log.FieldOperation, op, log.FieldError, err)
		return core.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldOperation, op,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return core.NewTransportError(op, fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	return statusError(op, resp)
}

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

// statusError maps a non-2xx response to the error taxonomy.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		reason := msg
		if eb.Field != "" {
			reason = strings.TrimPrefix(msg, eb.Field+" ")
		}
		return core.NewValidationError(eb.Field, reason)
	case resp.StatusCode == http.StatusNotFound:
		return core.NewNotFoundError(resp.Request.URL.Path[strings.LastIndex(resp.Request.URL.Path, "/")+1:])
	case resp.StatusCode >= 500:
		return core.NewStorageError(op, fmt.Errorf("server responded %d: %s", resp.StatusCode, msg))
	default:
		return core.NewTransportError(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg))
	}
}
