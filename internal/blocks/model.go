package blocks

import (
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Model computes block boundaries over a table and resolves field offsets.
type Model struct {
	FirstRow       int
	FixedHeight    int // 0 means auto-detect
	DefaultHeight  int
	DetectWindow   int
	MinDelta       int
	MaxDelta       int
	StopAfterEmpty int
	Layout         config.Layout
	Names          NameRules
}

func NewModel(cfg config.Config) Model {
	return Model{
		FirstRow:       cfg.Scan.StartRow,
		FixedHeight:    cfg.Scan.BlockHeight,
		DefaultHeight:  cfg.Scan.DefaultBlockHeight,
		DetectWindow:   cfg.Scan.DetectWindow,
		MinDelta:       cfg.Scan.MinDelta,
		MaxDelta:       cfg.Scan.MaxDelta,
		StopAfterEmpty: cfg.Scan.StopAfterEmpty,
		Layout:         cfg.Layout,
		Names:          NewNameRules(cfg.Names),
	}
}

// Height returns the fixed block height, or detects it from the spacing of
// valid project names.
func (m Model) Height(t sheets.Table) int {
	if m.FixedHeight > 0 {
		return m.FixedHeight
	}
	h := m.detectHeight(t)
	log.Debug().Str("sheet", t.Title()).Int("height", h).Msg("Detected block height")
	return h
}

func (m Model) detectHeight(t sheets.Table) int {
	name := m.Layout[config.FieldName]
	last := t.LastRow()
	window := m.DetectWindow
	if window <= 0 {
		window = 500
	}
	end := min(last, m.FirstRow+window-1)

	var starts []int
	for r := m.FirstRow; r <= end; r++ {
		if m.Names.IsValid(t.Cell(r, name.Col).Display) {
			starts = append(starts, r)
		}
	}
	if len(starts) < 2 {
		return m.DefaultHeight
	}

	freq := map[int]int{}
	var order []int
	for i := 1; i < len(starts); i++ {
		d := starts[i] - starts[i-1]
		if d < m.MinDelta || d > m.MaxDelta {
			continue
		}
		if freq[d] == 0 {
			order = append(order, d)
		}
		freq[d]++
	}

	best, bestCount := m.DefaultHeight, 0
	for _, d := range order {
		if freq[d] > bestCount {
			best, bestCount = d, freq[d]
		}
	}
	return best
}

// BlockStart rounds row down to its block boundary. ok is false when row
// precedes the first block.
func (m Model) BlockStart(row, height int) (int, bool) {
	if row < m.FirstRow || height <= 0 {
		return 0, false
	}
	return m.FirstRow + (row-m.FirstRow)/height*height, true
}

// Block returns the block starting at start.
func (m Model) Block(t sheets.Table, start, height int) Block {
	return Block{Start: start, Height: height, table: t, layout: m.Layout}
}

// Block is one project record: Height rows beginning at Start.
type Block struct {
	Start  int
	Height int
	table  sheets.Table
	layout config.Layout
}

func (b Block) Table() sheets.Table { return b.table }

// Pos returns the absolute position of a field.
func (b Block) Pos(f config.Field) (row, col int) {
	off := b.layout[f]
	return b.Start + off.Row, off.Col
}

func (b Block) Cell(f config.Field) sheets.Cell {
	return b.table.Cell(b.Pos(f))
}

// Text returns the trimmed display value of a field.
func (b Block) Text(f config.Field) string {
	return b.Cell(f).Text()
}

func (b Block) Set(f config.Field, value interface{}) {
	row, col := b.Pos(f)
	b.table.SetValue(row, col, value)
}

// End is the last row of the block.
func (b Block) End() int {
	return b.Start + b.Height - 1
}

// Label is the "<no> <name>" identifier used in failure lists.
func (b Block) Label() string {
	no := b.Text(config.FieldNo)
	name := b.Text(config.FieldName)
	if no == "" {
		return name
	}
	return no + " " + name
}
