package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homestyle_sync/internal/config"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

const (
	calendarDayLayout = "01/02"
	calendarNoRows    = "금주 일정 없음"
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// GenerateWeeklyCalendar rebuilds the calendar sheet with one row per
// project that has a dated task in the current Sunday-to-Saturday week.
func (r *Runner) GenerateWeeklyCalendar(ctx context.Context) (Result, error) {
	t := r.startTally(OpCalendar)

	src, err := r.book.Table(ctx, r.cfg.Sheets.Main)
	if err != nil {
		return Result{Operation: OpCalendar}, fmt.Errorf("open main sheet: %w", err)
	}
	cal, err := r.book.EnsureTable(ctx, r.cfg.Sheets.Calendar, nil)
	if err != nil {
		return Result{Operation: OpCalendar}, fmt.Errorf("open calendar sheet: %w", err)
	}
	cal.Clear()

	height := r.model.Height(src)
	lastRow := src.LastRow()
	if lastRow < r.model.FirstRow {
		return r.finish(t, Result{Summary: noData, Sheet: cal.Title()}, true), nil
	}

	weekStart := startOfDay(r.sheetNow(src))
	weekStart = weekStart.AddDate(0, 0, -int(weekStart.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 6)

	cal.SetValue(1, 1, fmt.Sprintf("📅 금주 일정표 (일요일 시작)  %s ~ %s",
		weekStart.Format(calendarDayLayout), weekEnd.Format(calendarDayLayout)))
	header := []interface{}{"프로젝트"}
	for i, name := range weekdayNames {
		header = append(header, fmt.Sprintf("%s (%s)", weekStart.AddDate(0, 0, i).Format(calendarDayLayout), name))
	}
	cal.UpdateRow(2, header)

	nameCol := r.cfg.Layout[config.FieldName].Col
	next := 3
	for start := r.model.FirstRow; start <= lastRow; start += height {
		pname := src.Cell(start, nameCol).Text()
		if !r.model.Names.IsValid(pname) {
			continue
		}

		days, ok := r.weekTasks(src, start, height, weekStart)
		if !ok {
			continue
		}
		line := []interface{}{pname}
		for _, items := range days {
			line = append(line, strings.Join(items, "\n"))
		}
		cal.UpdateRow(next, line)
		next++
		t.add(metrics.OutcomeSuccess)
	}

	if next == 3 {
		cal.SetValue(3, 1, calendarNoRows)
	}
	log.Info().Str("sheet", cal.Title()).Int("projects", next-3).Msg("Rebuilt weekly calendar")

	summary := fmt.Sprintf("금주 일정 %d건", t.n(metrics.OutcomeSuccess))
	if next == 3 {
		summary = calendarNoRows
	}
	return r.finish(t, Result{Summary: summary, Sheet: cal.Title()}, true), nil
}

// weekTasks groups a block's dated task labels by day of the week.
func (r *Runner) weekTasks(src sheets.Table, start, height int, weekStart time.Time) ([7][]string, bool) {
	var days [7][]string
	found := false
	for _, tc := range r.cfg.CalendarTasks {
		for row := start; row < start+height; row++ {
			label := src.Cell(row, tc.LabelCol).Text()
			d, ok := src.Cell(row, tc.DateCol).Time()
			if label == "" || !ok {
				continue
			}
			idx := dayIndex(weekStart, d)
			if idx < 0 || idx > 6 {
				continue
			}
			if tc.Prefix != "" && !strings.HasPrefix(label, tc.Prefix) {
				label = tc.Prefix + label
			}
			days[idx] = append(days[idx], label)
			found = true
		}
	}
	return days, found
}

// dayIndex counts calendar days from weekStart to d.
func dayIndex(weekStart, d time.Time) int {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	base := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(base).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
