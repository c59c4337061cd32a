package processing

import (
	"context"
	"testing"
	"time"

	"homestyle_sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	driveRunSheet = "드라이브_run_log"
	folderLink    = "https://drive.google.com/drive/folders/abc"
	priorColor    = "#00ff00"
)

func driveFixture(status string) *sheets.Grid {
	g := sheets.NewGrid(mainSheet)
	seedProject(g, 4, "1", "멱살반 김철수님", status)
	seed(g, 5, 18, "메인")
	g.Seed(5, 19, sheets.Cell{Display: folderLink, Background: priorColor})
	return g
}

func runLogRow(g *sheets.Grid, row int) []string {
	out := make([]string, 0, len(RunLogHeaders))
	for col := 1; col <= len(RunLogHeaders); col++ {
		out = append(out, g.Cell(row, col).Display)
	}
	return out
}

func TestCheckDriveFilesColorsAndCaches(t *testing.T) {
	g := driveFixture("진행")
	store := newFakeStorage()
	store.hasFiles["abc"] = true
	book := sheets.NewMemoryWorkbook(g)

	res, err := newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)

	assert.Equal(t, "업데이트 1 / 스킵 0 / 오류 0", res.Summary)
	assert.Equal(t, "#ffff00", g.Cell(5, 19).Background)
	assert.Equal(t, []string{"abc"}, store.checks)

	runLog := book.Grid(driveRunSheet)
	require.NotNil(t, runLog)
	row := runLogRow(runLog, 2)
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, []string{"4", "진행", folderLink, DriveUpdated, "HAS_FILES / SCAN"}, row[2:])

	res, err = newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, "업데이트 1 / 스킵 0 / 오류 0", res.Summary)
	assert.Len(t, store.checks, 1, "a fresh cache entry avoids the live check")
	assert.Equal(t, "HAS_FILES / CACHE", runLog.Cell(3, 7).Display)

	cache := book.Grid("드라이브_check_log")
	assert.Equal(t, 2, cache.LastRow(), "one cache row per folder")
}

func TestCheckDriveFilesForceAndStaleBypassCache(t *testing.T) {
	book := sheets.NewMemoryWorkbook(driveFixture("진행"))
	store := newFakeStorage()

	_, err := newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)

	_, err = newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, true)
	require.NoError(t, err)
	assert.Len(t, store.checks, 2)

	later := func() time.Time { return testNow.Add(7 * time.Hour) }
	_, err = newTestRunner(testConfig(), book, WithStorage(store), WithClock(later)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)
	assert.Len(t, store.checks, 3)
}

func TestCheckDriveFilesErrorPreservesColor(t *testing.T) {
	g := driveFixture("진행")
	store := newFakeStorage()
	store.checkErrs["abc"] = errBoom
	book := sheets.NewMemoryWorkbook(g)

	before := g.Cell(5, 19).Background
	res, err := newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)

	assert.Equal(t, "업데이트 0 / 스킵 0 / 오류 1", res.Summary)
	assert.Equal(t, before, g.Cell(5, 19).Background)
	assert.Empty(t, g.PendingValues())
	assert.Equal(t, DriveError, book.Grid(driveRunSheet).Cell(2, 6).Display)
	assert.Equal(t, "boom", book.Grid(driveRunSheet).Cell(2, 7).Display)
}

func TestCheckDriveFilesStatusGate(t *testing.T) {
	book := sheets.NewMemoryWorkbook(driveFixture("완료"))
	store := newFakeStorage()

	res, err := newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, "업데이트 0 / 스킵 1 / 오류 0", res.Summary)
	assert.Equal(t, DriveSkipStatus, book.Grid(driveRunSheet).Cell(2, 6).Display)
	assert.Empty(t, store.checks)

	res, err = newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), true, false)
	require.NoError(t, err)
	assert.Equal(t, "업데이트 1 / 스킵 0 / 오류 0", res.Summary)
	assert.Equal(t, "#ffffff", book.Grid(mainSheet).Cell(5, 19).Background)
}

func TestCheckDriveFilesLinkProblems(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(g *sheets.Grid)
		result  string
		row     int
		col     int
		color   string
		summary string
	}{
		{
			name: "no link",
			setup: func(g *sheets.Grid) {
				g.Seed(5, 19, sheets.Cell{})
			},
			result:  DriveSkipNoURL,
			summary: "업데이트 0 / 스킵 1 / 오류 0",
		},
		{
			name: "legacy marker with foreign link",
			setup: func(g *sheets.Grid) {
				g.Seed(5, 19, sheets.Cell{})
				seed(g, 4, 10, "[폴더]")
				g.Seed(4, 11, sheets.Cell{Display: "https://example.com/x", Background: priorColor})
			},
			result:  DriveSkipBadURL,
			row:     4,
			col:     11,
			color:   "#ffffff",
			summary: "업데이트 0 / 스킵 0 / 오류 0",
		},
		{
			name: "provider link without id",
			setup: func(g *sheets.Grid) {
				g.Seed(5, 19, sheets.Cell{Display: "https://drive.google.com/drive/my-drive", Background: priorColor})
			},
			result:  DriveSkipNoID,
			row:     5,
			col:     19,
			color:   priorColor,
			summary: "업데이트 0 / 스킵 0 / 오류 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := driveFixture("진행")
			tt.setup(g)
			book := sheets.NewMemoryWorkbook(g)
			store := newFakeStorage()

			res, err := newTestRunner(testConfig(), book, WithStorage(store)).CheckDriveFiles(context.Background(), false, false)
			require.NoError(t, err)

			assert.Equal(t, tt.summary, res.Summary)
			assert.Empty(t, store.checks)
			assert.Equal(t, tt.result, book.Grid(driveRunSheet).Cell(2, 6).Display)
			if tt.row > 0 {
				assert.Equal(t, tt.color, g.Cell(tt.row, tt.col).Background)
			}
		})
	}
}

func TestFindFolderURLCellPrefersLabelledRow(t *testing.T) {
	g := sheets.NewGrid(mainSheet)
	seedProject(g, 4, "1", "멱살반 김철수님", "진행")
	seed(g, 7, 19, "https://drive.google.com/drive/folders/unlabelled")
	seed(g, 8, 18, "After")
	g.Seed(8, 19, sheets.Cell{Display: "After", Hyperlink: "https://drive.google.com/drive/folders/after"})

	r := newTestRunner(testConfig(), sheets.NewMemoryWorkbook(g))
	b := r.model.Block(g, 4, 9)

	link, ok := findFolderURLCell(b, g.LastRow())
	require.True(t, ok)
	assert.Equal(t, linkCell{row: 8, col: 19, url: "https://drive.google.com/drive/folders/after"}, link)
}
