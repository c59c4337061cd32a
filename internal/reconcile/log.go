package reconcile

import (
	"sort"
	"strings"

	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Result tags written to log rows.
const (
	ResultOK                = "ok"
	ResultCachedSkip        = "cached_skip"
	ResultMissingInContacts = "missing_in_contacts"
)

func SkipResult(reason string) string { return "skip:" + reason }

func FailResult(message string) string { return "fail:" + message }

// Log is a keyed sheet with one row per key. Row 1 is the header.
type Log struct {
	table  sheets.Table
	keyCol int
	index  map[string]int

	updates     map[int][]interface{}
	updateOrder []int
	appends     [][]interface{}
	appendIndex map[string]int
}

// Entry is one persisted log row.
type Entry struct {
	Key string
	Row int
}

// Load indexes the key column of t from row 2 down.
func Load(t sheets.Table, keyCol int) *Log {
	l := &Log{
		table:       t,
		keyCol:      keyCol,
		index:       map[string]int{},
		updates:     map[int][]interface{}{},
		appendIndex: map[string]int{},
	}
	last := t.LastRow()
	for r := 2; r <= last; r++ {
		k := normalizeKey(t.Cell(r, keyCol).Display)
		if k == "" {
			continue
		}
		if _, dup := l.index[k]; !dup {
			l.index[k] = r
		}
	}
	log.Debug().Str("sheet", t.Title()).Int("entries", len(l.index)).Msg("Loaded reconciliation log")
	return l
}

func (l *Log) Table() sheets.Table { return l.table }

// Has reports whether key is persisted or queued for append.
func (l *Log) Has(key string) bool {
	k := normalizeKey(key)
	if _, ok := l.index[k]; ok {
		return true
	}
	_, ok := l.appendIndex[k]
	return ok
}

// Row returns the persisted row of key.
func (l *Log) Row(key string) (int, bool) {
	r, ok := l.index[normalizeKey(key)]
	return r, ok
}

// Upsert queues values for key: an update when the key is persisted, else
// an append. A key queued for append twice keeps a single row.
func (l *Log) Upsert(key string, values []interface{}) {
	k := normalizeKey(key)
	if k == "" {
		return
	}
	if row, ok := l.index[k]; ok {
		if _, queued := l.updates[row]; !queued {
			l.updateOrder = append(l.updateOrder, row)
		}
		l.updates[row] = values
		return
	}
	if i, ok := l.appendIndex[k]; ok {
		l.appends[i] = values
		return
	}
	l.appendIndex[k] = len(l.appends)
	l.appends = append(l.appends, values)
}

// Put writes values for key to the table immediately.
func (l *Log) Put(key string, values []interface{}) {
	k := normalizeKey(key)
	if k == "" {
		return
	}
	if row, ok := l.index[k]; ok {
		l.table.UpdateRow(row, values)
		return
	}
	row := l.table.LastRow() + 1
	l.table.AppendRows([][]interface{}{values})
	l.index[k] = row
}

// Pending returns the number of queued updates and appends.
func (l *Log) Pending() (updates, appends int) {
	return len(l.updates), len(l.appends)
}

// Commit applies queued updates, then all queued appends in one call.
func (l *Log) Commit() (updated, appended int) {
	for _, row := range l.updateOrder {
		l.table.UpdateRow(row, l.updates[row])
	}
	updated = len(l.updateOrder)

	if len(l.appends) > 0 {
		start := l.table.LastRow() + 1
		l.table.AppendRows(l.appends)
		for k, i := range l.appendIndex {
			l.index[k] = start + i
		}
	}
	appended = len(l.appends)

	log.Debug().
		Str("sheet", l.table.Title()).
		Int("updated", updated).
		Int("appended", appended).
		Msg("Committed reconciliation log")

	l.updates = map[int][]interface{}{}
	l.updateOrder = nil
	l.appends = nil
	l.appendIndex = map[string]int{}
	return updated, appended
}

// Entries lists persisted rows in row order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, 0, len(l.index))
	for k, r := range l.index {
		out = append(out, Entry{Key: k, Row: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

func (l *Log) Len() int { return len(l.index) }

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}
