package reconcile

import (
	"testing"

	"homestyle_sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactLog() *sheets.Grid {
	return sheets.NewGridFromValues("연락처_log", [][]interface{}{
		{"PHONE", "NAME", "RESULT"},
		{"010-1111-2222", "김님", "ok"},
		{" 010-3333-4444 ", "이님", "ok"},
	})
}

func TestLoadIndexesKeys(t *testing.T) {
	l := Load(contactLog(), 1)

	row, ok := l.Row("010-1111-2222")
	require.True(t, ok)
	assert.Equal(t, 2, row)

	row, ok = l.Row("010-3333-4444")
	require.True(t, ok, "keys are trimmed")
	assert.Equal(t, 3, row)

	assert.False(t, l.Has("010-9999-9999"))
	assert.Equal(t, 2, l.Len())
}

func TestUpsertUpdatesThenAppendsOnce(t *testing.T) {
	g := contactLog()
	l := Load(g, 1)

	l.Upsert("010-1111-2222", []interface{}{"010-1111-2222", "김님", ResultCachedSkip})
	l.Upsert("010-5555-6666", []interface{}{"010-5555-6666", "박님", ResultOK})
	l.Upsert("010-7777-8888", []interface{}{"010-7777-8888", "최님", FailResult("boom")})

	assert.True(t, l.Has("010-5555-6666"), "pending appends count as present")
	updates, appends := l.Pending()
	assert.Equal(t, 1, updates)
	assert.Equal(t, 2, appends)

	updated, appended := l.Commit()
	assert.Equal(t, 1, updated)
	assert.Equal(t, 2, appended)

	assert.Equal(t, ResultCachedSkip, g.Cell(2, 3).Display)
	assert.Equal(t, "010-5555-6666", g.Cell(4, 1).Display)
	assert.Equal(t, "fail:boom", g.Cell(5, 3).Display)

	start, rows := g.PendingAppends()
	assert.Equal(t, 4, start)
	assert.Len(t, rows, 2, "all new rows go out in one append")

	row, ok := l.Row("010-7777-8888")
	require.True(t, ok)
	assert.Equal(t, 5, row)
}

func TestUpsertSameNewKeyKeepsOneRow(t *testing.T) {
	g := contactLog()
	l := Load(g, 1)

	l.Upsert("010-5555-6666", []interface{}{"010-5555-6666", "박님", ResultOK})
	l.Upsert("010-5555-6666", []interface{}{"010-5555-6666", "박님", ResultCachedSkip})

	_, appended := l.Commit()
	assert.Equal(t, 1, appended)
	assert.Equal(t, ResultCachedSkip, g.Cell(4, 3).Display)
	assert.Equal(t, 4, g.LastRow())
}

func TestRepeatedRunsDoNotDuplicate(t *testing.T) {
	g := contactLog()
	for run := 0; run < 3; run++ {
		l := Load(g, 1)
		l.Upsert("010-5555-6666", []interface{}{"010-5555-6666", "박님", ResultOK})
		l.Commit()
	}
	assert.Equal(t, 4, g.LastRow())
}

func TestPutWritesImmediately(t *testing.T) {
	g := sheets.NewGridFromValues("cache", [][]interface{}{{"FOLDER_ID", "HAS_FILES"}})
	l := Load(g, 1)

	l.Put("abc", []interface{}{"abc", true})
	l.Put("abc", []interface{}{"abc", false})
	l.Put("def", []interface{}{"def", true})

	assert.Equal(t, 3, g.LastRow())
	assert.Equal(t, "FALSE", g.Cell(2, 2).Display)
	assert.Equal(t, "def", g.Cell(3, 1).Display)
}

func TestEntriesInRowOrder(t *testing.T) {
	l := Load(contactLog(), 1)
	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Key: "010-1111-2222", Row: 2}, entries[0])
	assert.Equal(t, Entry{Key: "010-3333-4444", Row: 3}, entries[1])
}

func TestUpsertIgnoresEmptyKey(t *testing.T) {
	l := Load(contactLog(), 1)
	l.Upsert("  ", []interface{}{"", "x"})
	_, appends := l.Pending()
	assert.Zero(t, appends)
}
