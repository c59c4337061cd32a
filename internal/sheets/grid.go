package sheets

import (
	"sort"
	"time"
)

// Grid is an in-memory Table snapshot that records every write so it can be
// replayed against the backing spreadsheet in a few bulk calls.
type Grid struct {
	title   string
	sheetID int64
	loc     *time.Location
	rows    [][]Cell
	hidden  map[int]bool

	cleared     bool
	values      map[CellRef]interface{}
	backgrounds map[CellRef]string
	visibility  map[int]bool
	appendStart int
	appends     [][]interface{}
}

// NewGrid returns an empty grid.
func NewGrid(title string) *Grid {
	g := &Grid{title: title, loc: time.UTC, hidden: map[int]bool{}}
	g.resetPending()
	return g
}

// NewGridFromValues builds a grid whose snapshot holds the given rows
// starting at row 1. Nothing is queued for flushing.
func NewGridFromValues(title string, rows [][]interface{}) *Grid {
	g := NewGrid(title)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			g.Seed(r+1, c+1, Cell{Display: DisplayOf(v), Raw: v})
		}
	}
	return g
}

func (g *Grid) Title() string { return g.title }

func (g *Grid) Location() *time.Location { return g.loc }

// SetLocation sets the time zone of the snapshot. A nil loc means UTC.
func (g *Grid) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	g.loc = loc
}

// inLocation moves time values into the grid's zone.
func (g *Grid) inLocation(value interface{}) interface{} {
	if t, ok := value.(time.Time); ok {
		return t.In(g.loc)
	}
	return value
}

// SheetID is the spreadsheet-internal id of the tab.
func (g *Grid) SheetID() int64 { return g.sheetID }

// Seed places a cell in the snapshot without queueing a write.
func (g *Grid) Seed(row, col int, cell Cell) {
	g.ensure(row, col)
	g.rows[row-1][col-1] = cell
}

// SeedHidden marks a row hidden in the snapshot without queueing a write.
func (g *Grid) SeedHidden(row int) {
	g.hidden[row] = true
}

func (g *Grid) Cell(row, col int) Cell {
	if row < 1 || col < 1 || row > len(g.rows) || col > len(g.rows[row-1]) {
		return Cell{}
	}
	return g.rows[row-1][col-1]
}

func (g *Grid) SetValue(row, col int, value interface{}) {
	if row < 1 || col < 1 {
		return
	}
	value = g.inLocation(value)
	g.ensure(row, col)
	cell := g.rows[row-1][col-1]
	cell.Display = DisplayOf(value)
	cell.Raw = value
	g.rows[row-1][col-1] = cell
	g.values[CellRef{row, col}] = value
}

func (g *Grid) SetBackground(row, col int, color string) {
	if row < 1 || col < 1 {
		return
	}
	g.ensure(row, col)
	g.rows[row-1][col-1].Background = color
	g.backgrounds[CellRef{row, col}] = color
}

func (g *Grid) UpdateRow(row int, values []interface{}) {
	for i, v := range values {
		g.SetValue(row, i+1, v)
	}
}

// AppendRows places rows after the last occupied row. Consecutive calls
// extend the same append run.
func (g *Grid) AppendRows(rows [][]interface{}) {
	if len(rows) == 0 {
		return
	}
	next := g.LastRow() + 1
	if len(g.appends) > 0 {
		next = g.appendStart + len(g.appends)
	} else {
		g.appendStart = next
	}
	for i, row := range rows {
		for c, v := range row {
			v = g.inLocation(v)
			g.ensure(next+i, c+1)
			g.rows[next+i-1][c] = Cell{Display: DisplayOf(v), Raw: v}
		}
		g.appends = append(g.appends, row)
	}
}

// LastRow is the last row holding a non-empty display value, or 0.
func (g *Grid) LastRow() int {
	for r := len(g.rows); r >= 1; r-- {
		for _, cell := range g.rows[r-1] {
			if !cell.IsEmpty() {
				return r
			}
		}
	}
	if len(g.appends) > 0 {
		return g.appendStart + len(g.appends) - 1
	}
	return 0
}

// LastColumn is the widest column holding a non-empty display value, or 0.
func (g *Grid) LastColumn() int {
	last := 0
	for _, row := range g.rows {
		for c := len(row); c > last; c-- {
			if !row[c-1].IsEmpty() {
				last = c
				break
			}
		}
	}
	return last
}

func (g *Grid) HideRows(start, count int) {
	g.setHidden(start, count, true)
}

func (g *Grid) ShowRows(start, count int) {
	g.setHidden(start, count, false)
}

func (g *Grid) IsRowHidden(row int) bool {
	return g.hidden[row]
}

// Clear empties the snapshot and drops queued cell writes.
func (g *Grid) Clear() {
	g.rows = nil
	g.cleared = true
	g.values = map[CellRef]interface{}{}
	g.backgrounds = map[CellRef]string{}
	g.appends = nil
	g.appendStart = 0
}

// Dirty reports whether anything is waiting to be flushed.
func (g *Grid) Dirty() bool {
	return g.cleared || len(g.values) > 0 || len(g.backgrounds) > 0 ||
		len(g.visibility) > 0 || len(g.appends) > 0
}

// PendingValues returns queued cell writes ordered by row then column.
func (g *Grid) PendingValues() []CellRef {
	refs := make([]CellRef, 0, len(g.values))
	for ref := range g.values {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs
}

// PendingAppends returns the queued append run and its first row.
func (g *Grid) PendingAppends() (int, [][]interface{}) {
	return g.appendStart, g.appends
}

func (g *Grid) setHidden(start, count int, hidden bool) {
	for r := start; r < start+count; r++ {
		if r < 1 {
			continue
		}
		if hidden {
			g.hidden[r] = true
		} else {
			delete(g.hidden, r)
		}
		g.visibility[r] = hidden
	}
}

func (g *Grid) ensure(row, col int) {
	for len(g.rows) < row {
		g.rows = append(g.rows, nil)
	}
	if len(g.rows[row-1]) < col {
		grown := make([]Cell, col)
		copy(grown, g.rows[row-1])
		g.rows[row-1] = grown
	}
}

func (g *Grid) resetPending() {
	g.cleared = false
	g.values = map[CellRef]interface{}{}
	g.backgrounds = map[CellRef]string{}
	g.visibility = map[int]bool{}
	g.appends = nil
	g.appendStart = 0
}

func sortRefs(refs []CellRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			return refs[i].Row < refs[j].Row
		}
		return refs[i].Col < refs[j].Col
	})
}

// rowRuns groups cell refs into runs of adjacent columns on the same row.
func rowRuns(refs []CellRef) [][]CellRef {
	var runs [][]CellRef
	for _, ref := range refs {
		n := len(runs)
		if n > 0 {
			last := runs[n-1][len(runs[n-1])-1]
			if last.Row == ref.Row && last.Col+1 == ref.Col {
				runs[n-1] = append(runs[n-1], ref)
				continue
			}
		}
		runs = append(runs, []CellRef{ref})
	}
	return runs
}

// rowSpans groups rows sharing the same visibility into [start,end) spans.
func rowSpans(changes map[int]bool) []rowSpan {
	rows := make([]int, 0, len(changes))
	for r := range changes {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	var spans []rowSpan
	for _, r := range rows {
		n := len(spans)
		if n > 0 && spans[n-1].end == r && spans[n-1].hidden == changes[r] {
			spans[n-1].end = r + 1
			continue
		}
		spans = append(spans, rowSpan{start: r, end: r + 1, hidden: changes[r]})
	}
	return spans
}

type rowSpan struct {
	start, end int
	hidden     bool
}
