package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBackground is the background a cell reports when none is set.
const DefaultBackground = "#ffffff"

// Cell is one snapshot cell. Raw holds string, float64, bool or time.Time.
type Cell struct {
	Display    string
	Raw        interface{}
	Hyperlink  string
	Background string
}

// Text returns the trimmed display value.
func (c Cell) Text() string {
	return strings.TrimSpace(c.Display)
}

func (c Cell) IsEmpty() bool {
	return c.Text() == ""
}

// Time returns the raw value when the cell holds a native date.
func (c Cell) Time() (time.Time, bool) {
	t, ok := c.Raw.(time.Time)
	return t, ok
}

// Table is row/column addressed access to one named sheet. Rows and
// columns are 1-based. Writes apply to the in-memory snapshot immediately
// and reach the backing spreadsheet on Flush.
type Table interface {
	Title() string
	Cell(row, col int) Cell
	SetValue(row, col int, value interface{})
	SetBackground(row, col int, color string)
	UpdateRow(row int, values []interface{})
	AppendRows(rows [][]interface{})
	LastRow() int
	LastColumn() int
	HideRows(start, count int)
	ShowRows(start, count int)
	IsRowHidden(row int) bool
	Clear()
	// Location is the spreadsheet's time zone. Dates read from the table
	// are in it and written times are converted to it.
	Location() *time.Location
}

// CellRef addresses one cell.
type CellRef struct {
	Row int
	Col int
}

// ColumnLetter converts a 1-based column index to A1 notation letters.
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// A1 returns a quoted A1 reference such as 'Sheet 1'!B4.
func A1(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnLetter(col), row)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// DisplayOf renders a value the way the in-memory grid shows it.
func DisplayOf(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// wireValue converts a value for a USER_ENTERED write. Times are written as
// wall-clock text in loc, which the spreadsheet parses in its own zone.
func wireValue(value interface{}, loc *time.Location) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.In(loc).Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
