package sheets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"homestyle_sync/internal/config"
	"homestyle_sync/internal/retry"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const gridFields = "properties(timeZone)," +
	"sheets(properties(sheetId,title)," +
	"data(startRow,startColumn," +
	"rowData(values(formattedValue,effectiveValue,hyperlink,textFormatRuns(format(link))," +
	"effectiveFormat(backgroundColor,numberFormat(type))))," +
	"rowMetadata(hiddenByUser)))"

// sheetsEpoch is day zero of spreadsheet date serials.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

type Client struct {
	service       *sheets.Service
	spreadsheetID string
	resilience    config.ResilienceConfig
	loc           *time.Location
}

func NewClient(ctx context.Context, credentialsFile, spreadsheetID string, resilience config.ResilienceConfig, opts ...option.ClientOption) (*Client, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
		resilience:    resilience,
	}, nil
}

// SpreadsheetID is the id of the managed spreadsheet.
func (c *Client) SpreadsheetID() string {
	return c.spreadsheetID
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := retry.WithRetry(ctx, c.resilience.SheetRead, func(ctx context.Context) (*sheets.ValueRange, error) {
		return c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

func (c *Client) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: rows,
	}

	// an append that failed after reaching the server may still have landed
	err := retry.Do(ctx, c.resilience.SheetWrite.NoRetry(), func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, range_, valueRange).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}

	return nil
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	err := retry.Do(ctx, c.resilience.SheetWrite, func(ctx context.Context) error {
		_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update range: %w", err)
	}

	return nil
}

// Titles lists the tab titles of a spreadsheet in display order.
func (c *Client) Titles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := retry.WithRetry(ctx, c.resilience.SheetRead, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.service.Spreadsheets.Get(spreadsheetID).
			Fields(googleapi.Field("sheets(properties(title))")).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

// OpenTable loads a full snapshot of one tab of the managed spreadsheet.
func (c *Client) OpenTable(ctx context.Context, title string) (*Grid, error) {
	resp, err := retry.WithRetry(ctx, c.resilience.SheetRead, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.service.Spreadsheets.Get(c.spreadsheetID).
			Ranges(quoteTitle(title)).
			IncludeGridData(true).
			Fields(googleapi.Field(gridFields)).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet %q: %w", title, err)
	}
	if len(resp.Sheets) == 0 {
		return nil, fmt.Errorf("sheet %q not found", title)
	}

	loc := zoneOf(resp)
	c.loc = loc

	sheet := resp.Sheets[0]
	grid := NewGrid(sheet.Properties.Title)
	grid.sheetID = sheet.Properties.SheetId
	grid.SetLocation(loc)

	for _, data := range sheet.Data {
		for i, rowData := range data.RowData {
			row := int(data.StartRow) + i + 1
			for j, cd := range rowData.Values {
				col := int(data.StartColumn) + j + 1
				if cell, ok := convertCell(cd, loc); ok {
					grid.Seed(row, col, cell)
				}
			}
		}
		for i, meta := range data.RowMetadata {
			if meta != nil && meta.HiddenByUser {
				grid.SeedHidden(int(data.StartRow) + i + 1)
			}
		}
	}

	log.Debug().
		Str("sheet", title).
		Int("last_row", grid.LastRow()).
		Int("last_column", grid.LastColumn()).
		Msg("Loaded sheet snapshot")

	return grid, nil
}

// location returns the spreadsheet's time zone, loading it once.
func (c *Client) location(ctx context.Context) *time.Location {
	if c.loc != nil {
		return c.loc
	}
	resp, err := retry.WithRetry(ctx, c.resilience.SheetRead, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.service.Spreadsheets.Get(c.spreadsheetID).
			Fields(googleapi.Field("properties(timeZone)")).
			Context(ctx).
			Do()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read spreadsheet time zone, using UTC")
		return time.UTC
	}
	c.loc = zoneOf(resp)
	return c.loc
}

func zoneOf(s *sheets.Spreadsheet) *time.Location {
	if s.Properties == nil || s.Properties.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Properties.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", s.Properties.TimeZone).Msg("Unknown spreadsheet time zone, using UTC")
		return time.UTC
	}
	return loc
}

// AddTable creates a new tab and returns its empty grid.
func (c *Client) AddTable(ctx context.Context, title string) (*Grid, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := retry.WithRetry(ctx, c.resilience.SheetWrite, func(ctx context.Context) (*sheets.BatchUpdateSpreadsheetResponse, error) {
		return c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet %q: %w", title, err)
	}

	grid := NewGrid(title)
	grid.SetLocation(c.location(ctx))
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		grid.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	log.Info().Str("sheet", title).Msg("Created sheet")
	return grid, nil
}

// Flush replays a grid's queued writes: clear, append run, cell values,
// then formatting and row visibility.
func (c *Client) Flush(ctx context.Context, g *Grid) error {
	if !g.Dirty() {
		return nil
	}

	if g.cleared {
		err := retry.Do(ctx, c.resilience.SheetWrite, func(ctx context.Context) error {
			_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, quoteTitle(g.title), &sheets.ClearValuesRequest{}).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to clear sheet %q: %w", g.title, err)
		}
	}

	if start, rows := g.PendingAppends(); len(rows) > 0 {
		wire := make([][]interface{}, len(rows))
		for i, row := range rows {
			wire[i] = make([]interface{}, len(row))
			for j, v := range row {
				wire[i][j] = wireValue(v, g.loc)
			}
		}
		if err := c.AppendRows(ctx, c.spreadsheetID, A1(g.title, start, 1), wire); err != nil {
			return err
		}
	}

	if refs := g.PendingValues(); len(refs) > 0 {
		var data []*sheets.ValueRange
		for _, run := range rowRuns(refs) {
			values := make([]interface{}, len(run))
			for i, ref := range run {
				values[i] = wireValue(g.values[ref], g.loc)
			}
			data = append(data, &sheets.ValueRange{
				Range:  A1(g.title, run[0].Row, run[0].Col),
				Values: [][]interface{}{values},
			})
		}
		req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: data}
		err := retry.Do(ctx, c.resilience.SheetWrite, func(ctx context.Context) error {
			_, err := c.service.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write %d cells to %q: %w", len(refs), g.title, err)
		}
	}

	if requests := formatRequests(g); len(requests) > 0 {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
		err := retry.Do(ctx, c.resilience.SheetWrite, func(ctx context.Context) error {
			_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to format sheet %q: %w", g.title, err)
		}
	}

	log.Debug().
		Str("sheet", g.title).
		Int("cells", len(g.values)).
		Int("appended", len(g.appends)).
		Int("backgrounds", len(g.backgrounds)).
		Int("visibility", len(g.visibility)).
		Msg("Flushed sheet")

	g.resetPending()
	return nil
}

func formatRequests(g *Grid) []*sheets.Request {
	var requests []*sheets.Request

	refs := make([]CellRef, 0, len(g.backgrounds))
	for ref := range g.backgrounds {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	for _, ref := range refs {
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          g.sheetID,
					StartRowIndex:    int64(ref.Row - 1),
					EndRowIndex:      int64(ref.Row),
					StartColumnIndex: int64(ref.Col - 1),
					EndColumnIndex:   int64(ref.Col),
					ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{BackgroundColor: parseColor(g.backgrounds[ref])},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}

	for _, span := range rowSpans(g.visibility) {
		requests = append(requests, &sheets.Request{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:         g.sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(span.start - 1),
					EndIndex:        int64(span.end - 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
				Properties: &sheets.DimensionProperties{
					HiddenByUser:    span.hidden,
					ForceSendFields: []string{"HiddenByUser"},
				},
				Fields: "hiddenByUser",
			},
		})
	}
	return requests
}

func convertCell(cd *sheets.CellData, loc *time.Location) (Cell, bool) {
	if cd == nil {
		return Cell{}, false
	}
	cell := Cell{Display: cd.FormattedValue, Hyperlink: cd.Hyperlink, Background: DefaultBackground}

	if cell.Hyperlink == "" {
		for _, run := range cd.TextFormatRuns {
			if run.Format != nil && run.Format.Link != nil && run.Format.Link.Uri != "" {
				cell.Hyperlink = run.Format.Link.Uri
				break
			}
		}
	}

	if ev := cd.EffectiveValue; ev != nil {
		switch {
		case ev.StringValue != nil:
			cell.Raw = *ev.StringValue
		case ev.NumberValue != nil:
			cell.Raw = *ev.NumberValue
			if f := cd.EffectiveFormat; f != nil && f.NumberFormat != nil {
				switch f.NumberFormat.Type {
				case "DATE", "DATE_TIME":
					cell.Raw = serialToTime(*ev.NumberValue, loc)
				}
			}
		case ev.BoolValue != nil:
			cell.Raw = *ev.BoolValue
		}
	}

	if f := cd.EffectiveFormat; f != nil && f.BackgroundColor != nil {
		cell.Background = formatColor(f.BackgroundColor)
	}
	return cell, true
}

func serialToTime(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	t := sheetsEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func formatColor(c *sheets.Color) string {
	to := func(v float64) int { return int(math.Round(v * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to(c.Red), to(c.Green), to(c.Blue))
}

func parseColor(hex string) *sheets.Color {
	h := strings.TrimPrefix(strings.ToLower(hex), "#")
	if len(h) != 6 {
		h = "ffffff"
	}
	channel := func(s string) float64 {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 1
		}
		return float64(v) / 255
	}
	return &sheets.Color{
		Red:   channel(h[0:2]),
		Green: channel(h[2:4]),
		Blue:  channel(h[4:6]),
	}
}
