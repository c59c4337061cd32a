package blocks

import (
	"strings"

	"homestyle_sync/internal/config"
	"homestyle_sync/internal/sheets"
)

const (
	StatusCancelled       = "취소"
	StatusDone            = "완료"
	StatusSettingDoneWait = "세팅완료(에비대기)"
	StatusWaiting         = "대기"
	StatusSettingWait     = "세팅 대기"
	StatusExcelWork       = "엑셀 작업"
	StatusDesignWork      = "디자인 작업"
	StatusMeasureWait     = "실측대기"
	StatusInProgress      = "진행"
)

const (
	maxStatusScanColumns = 220
	maxNameScanColumns   = 40
)

// rankedStatuses is the search order of the row scan. Rank wins over
// column position.
var rankedStatuses = []string{
	StatusCancelled,
	StatusDone,
	StatusSettingDoneWait,
	StatusWaiting,
	StatusSettingWait,
	StatusExcelWork,
	StatusDesignWork,
	StatusMeasureWait,
	StatusInProgress,
}

// StatusCell reads the block's fixed status cell.
func StatusCell(b Block) string {
	return b.Text(config.FieldStatus)
}

// StatusInRow scans the whole header row for the best-ranked exact status
// keyword.
func StatusInRow(t sheets.Table, row int) string {
	cols := min(t.LastColumn(), maxStatusScanColumns)
	present := make(map[string]bool, cols)
	for c := 1; c <= cols; c++ {
		if v := t.Cell(row, c).Text(); v != "" {
			present[v] = true
		}
	}
	for _, s := range rankedStatuses {
		if present[s] {
			return s
		}
	}
	return ""
}

// HeaderStatus prefers the fixed cell and falls back to the row scan when
// the cell is blank.
func HeaderStatus(b Block) string {
	if s := StatusCell(b); s != "" {
		return s
	}
	return StatusInRow(b.table, b.Start)
}

func IsClosed(status string) bool {
	s := strings.TrimSpace(status)
	return s == StatusDone || s == StatusCancelled
}

// IsClosedBlock checks the fixed cell first, then the ranked row scan.
func IsClosedBlock(b Block) bool {
	if IsClosed(StatusCell(b)) {
		return true
	}
	return IsClosed(StatusInRow(b.table, b.Start))
}

// IsActiveForExternalCheck is the reduced status set for the cheap drive
// check mode.
func IsActiveForExternalCheck(status string) bool {
	switch status {
	case StatusInProgress, StatusMeasureWait, StatusDesignWork, StatusExcelWork, StatusSettingWait:
		return true
	}
	return false
}

// IsInactiveForDB lists statuses excluded from the active-only DB sync.
func IsInactiveForDB(status string) bool {
	switch strings.TrimSpace(status) {
	case StatusDone, StatusCancelled, StatusWaiting, StatusSettingWait, StatusSettingDoneWait:
		return true
	}
	return false
}

// IsSettingPhase matches 세팅 대기 and 세팅완료(에비대기) ignoring whitespace.
func IsSettingPhase(status string) bool {
	n := strings.Join(strings.Fields(status), "")
	return n == "세팅대기" || n == "세팅완료(에비대기)"
}

// ProjectNameInRow finds a project name anywhere in the header row: the
// first cell mentioning 멱살 or 스타일, else the first non-empty cell.
func ProjectNameInRow(t sheets.Table, row int) string {
	cols := min(t.LastColumn(), maxNameScanColumns)
	first := ""
	for c := 1; c <= cols; c++ {
		s := t.Cell(row, c).Text()
		if s == "" {
			continue
		}
		if strings.Contains(s, "멱살") || strings.Contains(s, "스타일") {
			return s
		}
		if first == "" {
			first = s
		}
	}
	return first
}
