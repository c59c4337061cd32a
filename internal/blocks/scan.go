package blocks

import (
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Scan walks blocks in ascending row order and stops for good once
// StopAfterEmpty consecutive blocks have both identity fields empty. Create
// one per operation.
type Scan struct {
	model     Model
	table     sheets.Table
	height    int
	lastRow   int
	next      int
	streak    int
	threshold int
	stopped   bool
	visited   int
}

// NewScan resolves the block height and last row of t and positions the
// scan at the first configured row.
func (m Model) NewScan(t sheets.Table) *Scan {
	threshold := m.StopAfterEmpty
	if threshold <= 0 {
		threshold = 3
	}
	return &Scan{
		model:     m,
		table:     t,
		height:    m.Height(t),
		lastRow:   t.LastRow(),
		next:      m.FirstRow,
		threshold: threshold,
	}
}

// Height is the block height used by this scan.
func (s *Scan) Height() int { return s.height }

// LastRow is the last occupied row when the scan started.
func (s *Scan) LastRow() int { return s.lastRow }

// Empty reports whether the table has no rows at or after the first block.
func (s *Scan) Empty() bool { return s.lastRow < s.model.FirstRow }

// Stopped reports whether the empty-streak threshold was reached.
func (s *Scan) Stopped() bool { return s.stopped }

// Visited counts blocks handed to the caller.
func (s *Scan) Visited() int { return s.visited }

// Next returns the next block. The stop check runs before the block is
// returned, so the block that completes the streak is never handed out.
func (s *Scan) Next() (Block, bool) {
	if s.stopped || s.next > s.lastRow {
		return Block{}, false
	}

	b := s.model.Block(s.table, s.next, s.height)
	s.next += s.height

	if b.Text(config.FieldNo) == "" && b.Text(config.FieldName) == "" {
		s.streak++
	} else {
		s.streak = 0
	}
	if s.streak >= s.threshold {
		s.stopped = true
		log.Debug().
			Str("sheet", s.table.Title()).
			Int("row", b.Start).
			Int("empty_blocks", s.streak).
			Msg("Stopping scan after consecutive empty blocks")
		return Block{}, false
	}

	s.visited++
	return b, true
}
