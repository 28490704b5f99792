package memory

import (
	"context"
	"sync"

	"pocketflow/internal/core"
	"pocketflow/internal/sheets"
)

// Mirror is an in-process RecordMirror. The worker uses it when no
// spreadsheet is configured; tests use it to observe mirrored rows.
type Mirror struct {
	mu    sync.Mutex
	rows  map[string][]string
	order []string
}

var _ sheets.RecordMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[string][]string)}
}

func (m *Mirror) Upsert(_ context.Context, r core.FinancialRecord) error {
	if r.ID == "" {
		return core.NewValidationError("id", "is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.rows[r.ID] = sheets.Row(r)
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored rows in first-write order, header first.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, 0, len(m.order)+1)
	out = append(out, append([]string(nil), sheets.Header...))
	for _, id := range m.order {
		out = append(out, append([]string(nil), m.rows[id]...))
	}
	return out
}
