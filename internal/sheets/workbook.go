package sheets

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
)

// ErrSheetNotFound is returned when a named tab does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Workbook hands out tables of one spreadsheet and flushes their writes.
type Workbook interface {
	Table(ctx context.Context, title string) (Table, error)
	EnsureTable(ctx context.Context, title string, headers []string) (Table, error)
	Titles(ctx context.Context) ([]string, error)
	Flush(ctx context.Context) error
}

// RemoteWorkbook is a Workbook over the Sheets API. Each tab is loaded once
// per run and reused by every operation.
type RemoteWorkbook struct {
	client *Client
	grids  map[string]*Grid
	order  []string
}

func NewRemoteWorkbook(client *Client) *RemoteWorkbook {
	return &RemoteWorkbook{client: client, grids: map[string]*Grid{}}
}

func (w *RemoteWorkbook) Table(ctx context.Context, title string) (Table, error) {
	if g, ok := w.grids[title]; ok {
		return g, nil
	}
	titles, err := w.Titles(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(titles, title) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	g, err := w.client.OpenTable(ctx, title)
	if err != nil {
		return nil, err
	}
	w.track(title, g)
	return g, nil
}

func (w *RemoteWorkbook) EnsureTable(ctx context.Context, title string, headers []string) (Table, error) {
	t, err := w.Table(ctx, title)
	if errors.Is(err, ErrSheetNotFound) {
		g, addErr := w.client.AddTable(ctx, title)
		if addErr != nil {
			return nil, addErr
		}
		w.track(title, g)
		t = g
	} else if err != nil {
		return nil, err
	}
	writeHeaders(t, headers)
	return t, nil
}

func (w *RemoteWorkbook) Titles(ctx context.Context) ([]string, error) {
	return w.client.Titles(ctx, w.client.SpreadsheetID())
}

// Flush writes every dirty grid, stopping at the first failure.
func (w *RemoteWorkbook) Flush(ctx context.Context) error {
	for _, title := range w.order {
		if err := w.client.Flush(ctx, w.grids[title]); err != nil {
			return err
		}
	}
	return nil
}

func (w *RemoteWorkbook) track(title string, g *Grid) {
	w.grids[title] = g
	w.order = append(w.order, title)
}

// MemoryWorkbook keeps every table in memory. Flush is a no-op that only
// counts calls.
type MemoryWorkbook struct {
	grids   map[string]*Grid
	order   []string
	Flushes int
}

func NewMemoryWorkbook(grids ...*Grid) *MemoryWorkbook {
	w := &MemoryWorkbook{grids: map[string]*Grid{}}
	for _, g := range grids {
		w.Add(g)
	}
	return w
}

func (w *MemoryWorkbook) Add(g *Grid) {
	if _, ok := w.grids[g.Title()]; !ok {
		w.order = append(w.order, g.Title())
	}
	w.grids[g.Title()] = g
}

// Grid returns the named grid or nil.
func (w *MemoryWorkbook) Grid(title string) *Grid {
	return w.grids[title]
}

func (w *MemoryWorkbook) Table(ctx context.Context, title string) (Table, error) {
	g, ok := w.grids[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	return g, nil
}

func (w *MemoryWorkbook) EnsureTable(ctx context.Context, title string, headers []string) (Table, error) {
	g, ok := w.grids[title]
	if !ok {
		g = NewGrid(title)
		w.Add(g)
	}
	writeHeaders(g, headers)
	return g, nil
}

func (w *MemoryWorkbook) Titles(ctx context.Context) ([]string, error) {
	return append([]string(nil), w.order...), nil
}

func (w *MemoryWorkbook) Flush(ctx context.Context) error {
	w.Flushes++
	return nil
}

// writeHeaders fills row 1 when it is blank.
func writeHeaders(t Table, headers []string) {
	if len(headers) == 0 {
		return
	}
	for col := 1; col <= len(headers); col++ {
		if !t.Cell(1, col).IsEmpty() {
			return
		}
	}
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	t.UpdateRow(1, values)
	log.Debug().Str("sheet", t.Title()).Strs("headers", headers).Msg("Wrote header row")
}
