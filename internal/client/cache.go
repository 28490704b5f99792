package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"pocketflow/internal/core"
	"pocketflow/internal/log"
)

var (
	// ErrSuperseded is returned by Load when the active owner changed
	// before the listing arrived. The result is discarded.
	ErrSuperseded = errors.New("load superseded by an owner change")
	// ErrOwnerMismatch is returned by mutations issued for a session that
	// is not the active one. No request is sent.
	ErrOwnerMismatch = errors.New("session owner is not the active owner")
)

// Session identifies the signed-in owner. It is passed explicitly to every
// cache operation.
type Session struct {
	OwnerID string
}

// Cache mirrors one owner's records. Entries change only after the API
// confirms a mutation; reads never block on the network.
type Cache struct {
	api    API
	logger *log.Logger

	// mu guards owner, gen and records.
	mu      sync.RWMutex
	owner   string
	gen     uint64
	records []core.FinancialRecord

	// mutate serialises loads and mutations against the API.
	mutate sync.Mutex
	loads  singleflight.Group
}

// NewCache returns an empty cache with no active owner.
func NewCache(api API, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Discard()
	}
	return &Cache{api: api, logger: logger.WithComponent(log.ComponentCache)}
}

// Load makes the session's owner active and replaces the mirror with the
// owner's records. Concurrent loads for the same owner share one request.
func (c *Cache) Load(ctx context.Context, s Session) error {
	owner := strings.TrimSpace(s.OwnerID)
	if owner == "" {
		return core.NewValidationError("userId", "is required")
	}

	c.mu.Lock()
	if c.owner != owner {
		c.owner = owner
		c.gen++
		c.records = nil
	}
	gen := c.gen
	c.mu.Unlock()

	key := fmt.Sprintf("%s#%d", owner, gen)
	// The shared request outlives any single caller; the HTTP client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(key, func() (any, error) {
		c.mutate.Lock()
		defer c.mutate.Unlock()

		if !c.isCurrent(owner, gen) {
			return nil, ErrSuperseded
		}
		records, err := c.api.ListByOwner(shared, owner)
		if errors.Is(err, core.ErrNotFound) {
			records, err = nil, nil
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.owner != owner || c.gen != gen {
			return nil, ErrSuperseded
		}
		c.records = append(make([]core.FinancialRecord, 0, len(records)), records...)
		return len(records), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ErrSuperseded) {
				c.logger.DebugContext(ctx, "Load superseded", log.FieldOwnerID, owner)
			} else {
				c.logger.WarnContext(ctx, "Load failed", log.FieldOwnerID, owner, log.FieldError, res.Err)
			}
			return res.Err
		}
		c.logger.DebugContext(ctx, "Records loaded", log.FieldOwnerID, owner, log.FieldCount, res.Val, "shared", res.Shared)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add creates r for the session's owner and inserts the confirmed record.
func (c *Cache) Add(ctx context.Context, s Session, r core.FinancialRecord) (core.FinancialRecord, error) {
	gen, err := c.begin(s)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	defer c.mutate.Unlock()

	r.ID = ""
	r.OwnerID = s.OwnerID
	created, err := c.api.Create(ctx, r)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("add record: %w", err)
	}
	c.apply(gen, func() { c.upsert(created) })
	return created, nil
}

// Modify sends patch for id and replaces the entry with the confirmed record.
func (c *Cache) Modify(ctx context.Context, s Session, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	gen, err := c.begin(s)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	defer c.mutate.Unlock()

	updated, err := c.api.Update(ctx, id, patch)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("modify record %s: %w", id, err)
	}
	c.apply(gen, func() { c.upsert(updated) })
	return updated, nil
}

// Remove deletes id and drops the entry once the API confirms. A not-found
// answer also drops the entry, and the error is still returned.
func (c *Cache) Remove(ctx context.Context, s Session, id string) error {
	gen, err := c.begin(s)
	if err != nil {
		return err
	}
	defer c.mutate.Unlock()

	err = c.api.Delete(ctx, id)
	if err == nil || errors.Is(err, core.ErrNotFound) {
		c.apply(gen, func() { c.drop(id) })
	}
	if err != nil {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	return nil
}

// begin checks the session and takes the mutation lock. On success the
// caller must release c.mutate.
func (c *Cache) begin(s Session) (uint64, error) {
	c.mu.RLock()
	owner, gen := c.owner, c.gen
	c.mu.RUnlock()
	if owner == "" || s.OwnerID != owner {
		return 0, ErrOwnerMismatch
	}

	c.mutate.Lock()
	if !c.isCurrent(owner, gen) {
		c.mutate.Unlock()
		return 0, ErrOwnerMismatch
	}
	return gen, nil
}

func (c *Cache) isCurrent(owner string, gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner == owner && c.gen == gen
}

// apply runs fn under the write lock unless the owner changed since gen.
// A confirmed result for a previous owner is returned to the caller but
// not mirrored.
func (c *Cache) apply(gen uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		fn()
	}
}

// upsert must be called with c.mu held.
func (c *Cache) upsert(r core.FinancialRecord) {
	if r.OwnerID != c.owner {
		return
	}
	for i := range c.records {
		if c.records[i].ID == r.ID {
			c.records[i] = r
			return
		}
	}
	c.records = append(c.records, r)
}

// drop must be called with c.mu held.
func (c *Cache) drop(id string) {
	for i := range c.records {
		if c.records[i].ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return
		}
	}
}

// Records returns a copy of the mirrored records.
func (c *Cache) Records() []core.FinancialRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.FinancialRecord(nil), c.records...)
}

// Get returns the mirrored record with the given id.
func (c *Cache) Get(id string) (core.FinancialRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.FinancialRecord{}, false
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Owner returns the active owner, or "" when none.
func (c *Cache) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Total is the sum of every mirrored amount.
func (c *Cache) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Total(c.records)
}

func (c *Cache) Summary() core.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Summarize(c.records)
}

// Clear ends the session: the mirror is emptied and no owner is active.
// In-flight loads and mutations will not be applied.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = ""
	c.gen++
	c.records = nil
}
