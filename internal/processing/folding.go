package processing

import (
	"context"
	"fmt"
	"sort"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Row spans below a block's header row that folding works on.
const (
	foldLastOffset    = 7
	foldSettingOffset = 4
)

type interval struct {
	start, end int
}

// ToggleFolding expands every block when any block is folded, and
// otherwise folds blocks by their status cell.
func (r *Runner) ToggleFolding(ctx context.Context) (Result, error) {
	t := r.startTally(OpFold)

	main, err := r.book.Table(ctx, r.cfg.Sheets.Main)
	if err != nil {
		return Result{Operation: OpFold}, fmt.Errorf("open main sheet: %w", err)
	}
	if r.model.NewScan(main).Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	if r.anyFolded(main) {
		shown := r.expandAll(main)
		t.counts["expanded"] = shown
		return r.finish(t, Result{Summary: fmt.Sprintf("펼치기 완료 (%d 블록)", shown)}, true), nil
	}

	folded := r.foldByStatus(main)
	t.counts["folded"] = folded
	return r.finish(t, Result{Summary: fmt.Sprintf("접기 완료 (%d 블록)", folded)}, true), nil
}

// validBlocks runs a fresh scan and yields blocks with a valid name.
func (r *Runner) validBlocks(t sheets.Table, fn func(b blocks.Block, lastRow int) bool) {
	scan := r.model.NewScan(t)
	for {
		b, ok := scan.Next()
		if !ok {
			return
		}
		if !r.model.Names.IsValid(b.Cell(config.FieldName).Display) {
			continue
		}
		if !fn(b, scan.LastRow()) {
			return
		}
	}
}

func (r *Runner) anyFolded(t sheets.Table) bool {
	folded := false
	r.validBlocks(t, func(b blocks.Block, lastRow int) bool {
		for row := b.Start + 1; row <= min(b.Start+foldLastOffset, lastRow); row++ {
			if t.IsRowHidden(row) {
				folded = true
				return false
			}
		}
		return true
	})
	return folded
}

func (r *Runner) expandAll(t sheets.Table) int {
	var show []interval
	r.validBlocks(t, func(b blocks.Block, lastRow int) bool {
		show = appendClipped(show, b.Start+1, b.Start+foldLastOffset, lastRow)
		return true
	})
	applyIntervals(t, show, false)
	return len(show)
}

func (r *Runner) foldByStatus(t sheets.Table) int {
	var show, hide []interval
	folded := 0
	r.validBlocks(t, func(b blocks.Block, lastRow int) bool {
		show = appendClipped(show, b.Start+1, b.Start+foldLastOffset, lastRow)

		status := blocks.StatusCell(b)
		switch {
		case blocks.IsClosed(status):
			hide = appendClipped(hide, b.Start+1, b.Start+foldLastOffset, lastRow)
			folded++
		case blocks.IsSettingPhase(status):
			hide = appendClipped(hide, b.Start+1, b.Start+foldSettingOffset, lastRow)
			hide = appendClipped(hide, b.Start+foldLastOffset, b.Start+foldLastOffset, lastRow)
			folded++
		}
		return true
	})
	applyIntervals(t, show, false)
	applyIntervals(t, hide, true)
	return folded
}

func appendClipped(list []interval, start, end, lastRow int) []interval {
	end = min(end, lastRow)
	if start > end {
		return list
	}
	return append(list, interval{start, end})
}

// mergeIntervals sorts and joins overlapping or adjacent intervals.
func mergeIntervals(in []interval) []interval {
	if len(in) == 0 {
		return nil
	}
	sorted := append([]interval(nil), in...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	out := []interval{sorted[0]}
	for _, iv := range sorted[1:] {
		cur := &out[len(out)-1]
		if iv.start <= cur.end+1 {
			cur.end = max(cur.end, iv.end)
			continue
		}
		out = append(out, iv)
	}
	return out
}

func applyIntervals(t sheets.Table, list []interval, hide bool) {
	for _, iv := range mergeIntervals(list) {
		count := iv.end - iv.start + 1
		if hide {
			t.HideRows(iv.start, count)
		} else {
			t.ShowRows(iv.start, count)
		}
		log.Debug().Int("start", iv.start).Int("count", count).Bool("hide", hide).Msg("Applied row visibility")
	}
}
