package processing

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/dbmirror"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/reconcile"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// DBHeaders is the header row of the project DB sheet.
var DBHeaders = []string{
	"KEY", "NO", "프로젝트명", "상태",
	"주소", "지도URL",
	"메인폴더", "Before폴더", "시공폴더", "After폴더", "물품리스트",
	"실측_예정", "실측_완료",
	"상담_예정", "상담_완료",
	"디자인_예정", "디자인_완료",
	"엑셀작업_예정", "엑셀작업_완료",
	"세팅_예정", "세팅_완료",
	"UPDATED_AT",
}

const (
	dbKeySeparator   = "|"
	dbSheetMaxLength = 90
	stageDateLayout  = "01/02"
)

// stageKeywords matches row labels to stages; order follows dbmirror.Stage*.
var stageKeywords = [dbmirror.StageCount][]string{
	dbmirror.StageMeasure: {"실측"},
	dbmirror.StageConsult: {"상담", "줌", "미팅", "zoom"},
	dbmirror.StageDesign:  {"디자인"},
	dbmirror.StageExcel:   {"엑셀", "excel"},
	dbmirror.StageSetting: {"세팅", "세팅일자"},
}

var invalidSheetChars = regexp.MustCompile(`[\\/?*\[\]:]`)

// SyncDB flattens every eligible block into one keyed row of the DB sheet
// and mirrors the rows into the project store when one is configured.
func (r *Runner) SyncDB(ctx context.Context, includeAll bool) (Result, error) {
	t := r.startTally(OpDB)

	main, scan, err := r.mainScan(ctx)
	if err != nil {
		return Result{Operation: OpDB}, err
	}
	if scan.Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	name, err := r.dbSheetName(ctx, r.sheetNow(main))
	if err != nil {
		return Result{Operation: OpDB}, err
	}
	dbTable, err := r.book.EnsureTable(ctx, name, DBHeaders)
	if err != nil {
		return Result{Operation: OpDB}, fmt.Errorf("open db sheet: %w", err)
	}
	db := reconcile.Load(dbTable, 1)

	var projects []dbmirror.Project
	for {
		b, ok := scan.Next()
		if !ok {
			break
		}
		if !r.model.Names.IsValid(b.Cell(config.FieldName).Display) {
			continue
		}
		status := blocks.HeaderStatus(b)
		if !includeAll && blocks.IsInactiveForDB(status) {
			log.Debug().Int("row", b.Start).Str("status", status).Msg("Skipping inactive project")
			continue
		}

		p := r.flattenProject(b, status)
		if db.Has(p.Key) {
			t.add(metrics.OutcomeSuccess)
		} else {
			t.add(outcomeCreated)
		}
		db.Upsert(p.Key, projectRow(p))
		projects = append(projects, p)
	}

	updated, appended := db.Commit()
	log.Info().Str("sheet", name).Int("updated", updated).Int("appended", appended).Msg("Synced project DB")

	if r.store != nil && len(projects) > 0 {
		if err := r.store.UpsertProjects(ctx, projects); err != nil {
			Warning{Operation: OpDB, Step: "sqlite mirror", Err: err}.Log()
		}
	}

	summary := fmt.Sprintf("업데이트 %d / 신규 %d", updated, appended)
	return r.finish(t, Result{Summary: summary, Sheet: name}, true), nil
}

// flattenProject assembles the DB record of one block.
func (r *Runner) flattenProject(b blocks.Block, status string) dbmirror.Project {
	no := b.Text(config.FieldNo)
	name := b.Text(config.FieldName)
	p := dbmirror.Project{
		Key:       no + dbKeySeparator + name,
		No:        no,
		Name:      name,
		Status:    status,
		Address:   addressLine(b),
		MapURL:    b.Text(config.FieldMap),
		FileURL:   cellURL(b.Cell(config.FieldFile)),
		Stages:    collectStages(b),
		UpdatedAt: r.now(),
	}
	row, col := b.Pos(config.FieldFolderURL)
	for i := range p.Folders {
		p.Folders[i] = cellURL(b.Table().Cell(row+1+i, col))
	}
	return p
}

// collectStages takes, per stage, the dates of the first matching label row
// that holds a date. Later matches of a filled stage are ignored.
func collectStages(b blocks.Block) [dbmirror.StageCount]dbmirror.StagePair {
	var out [dbmirror.StageCount]dbmirror.StagePair
	t := b.Table()
	labelRow, labelCol := b.Pos(config.FieldStageLabel)
	_, planCol := b.Pos(config.FieldPlanDate)
	_, doneCol := b.Pos(config.FieldDoneDate)

	for i := 0; i < b.Height; i++ {
		row := labelRow + i
		label := normalizeLabel(t.Cell(row, labelCol).Text())
		if label == "" {
			continue
		}
		for s, keywords := range stageKeywords {
			if out[s].Plan != "" || out[s].Done != "" {
				continue
			}
			if !matchesAny(label, keywords) {
				continue
			}
			out[s] = dbmirror.StagePair{
				Plan: stageDate(t.Cell(row, planCol)),
				Done: stageDate(t.Cell(row, doneCol)),
			}
		}
	}
	return out
}

func matchesAny(label string, keywords []string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool {
		return strings.Contains(label, normalizeLabel(k))
	})
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func stageDate(c sheets.Cell) string {
	if t, ok := c.Time(); ok {
		return t.Format(stageDateLayout)
	}
	return c.Text()
}

func projectRow(p dbmirror.Project) []interface{} {
	row := []interface{}{p.Key, p.No, p.Name, p.Status, p.Address, p.MapURL}
	for _, f := range p.Folders {
		row = append(row, f)
	}
	row = append(row, p.FileURL)
	for _, s := range p.Stages {
		row = append(row, s.Plan, s.Done)
	}
	return append(row, p.UpdatedAt)
}

// dbSheetName picks the configured DB sheet, else the newest existing
// DB_<main>_ sheet, else a fresh dated name that does not collide.
func (r *Runner) dbSheetName(ctx context.Context, now time.Time) (string, error) {
	if name := strings.TrimSpace(r.cfg.Sheets.DB); name != "" {
		return name, nil
	}
	titles, err := r.book.Titles(ctx)
	if err != nil {
		return "", fmt.Errorf("list sheets: %w", err)
	}

	prefix := sanitizeSheetName("DB_" + r.cfg.Sheets.Main + "_")
	var existing []string
	for _, title := range titles {
		if strings.HasPrefix(title, prefix) {
			existing = append(existing, title)
		}
	}
	if len(existing) > 0 {
		slices.Sort(existing)
		return existing[len(existing)-1], nil
	}

	base := sanitizeSheetName("DB_" + r.cfg.Sheets.Main + "_" + now.Format("20060102"))
	name := base
	for n := 2; slices.Contains(titles, name); n++ {
		name = sanitizeSheetName(fmt.Sprintf("%s (%d)", base, n))
	}
	return name, nil
}

func sanitizeSheetName(name string) string {
	s := invalidSheetChars.ReplaceAllString(name, "_")
	s = collapseSpaces(s)
	if r := []rune(s); len(r) > dbSheetMaxLength {
		s = strings.TrimSpace(string(r[:dbSheetMaxLength]))
	}
	if s == "" {
		return "DB"
	}
	return s
}
