package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"pnljournal/internal/core"
	"pnljournal/internal/sheets"
)

// Mirror is an in-process EntryMirror used when no spreadsheet is configured
// and in tests.
type Mirror struct {
	mu   sync.Mutex
	rows map[string]core.Entry // "user|date" -> entry
	refs map[string]int
	next int
}

var (
	_ sheets.EntryMirror = (*Mirror)(nil)
	_ sheets.EntryReader = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{rows: map[string]core.Entry{}, refs: map[string]int{}}
}

func rowKey(userID string, date core.Date) string {
	return userID + "|" + date.Key()
}

// UpsertEntry stores the entry and returns a stable synthetic row reference.
func (m *Mirror) UpsertEntry(_ context.Context, e core.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rowKey(e.UserID, e.Date)
	ref, ok := m.refs[k]
	if !ok {
		m.next++
		ref = m.next
		m.refs[k] = ref
	}
	m.rows[k] = e
	return fmt.Sprintf("mem:%d", ref), nil
}

func (m *Mirror) DeleteEntry(_ context.Context, userID string, date core.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rowKey(userID, date)
	delete(m.rows, k)
	delete(m.refs, k)
	return nil
}

// Rows returns a copy of the mirrored entries ordered by user then date.
func (m *Mirror) Rows() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.rows))
	for k := range m.rows {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)
	out := make([]core.Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.rows[k])
	}
	return out
}

// ListEntries returns the mirrored entries dated in year.
func (m *Mirror) ListEntries(_ context.Context, year int) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range m.Rows() {
		if e.Date.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}
