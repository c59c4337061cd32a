package processing

import (
	"context"
	"fmt"
	"time"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/drive"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/reconcile"

	"github.com/rs/zerolog/log"
)

// RunLogHeaders is the header row of the drive check run log.
var RunLogHeaders = []string{"RUN_ID", "TIME", "BLOCK_ROW", "STATUS", "URL", "RESULT", "DETAILS"}

// Drive check run log results.
const (
	DriveSkipStatus = "SKIP_STATUS"
	DriveSkipNoURL  = "SKIP_NO_URL"
	DriveSkipBadURL = "SKIP_BAD_URL"
	DriveSkipNoID   = "SKIP_NO_ID"
	DriveUpdated    = "UPDATED"
	DriveError      = "ERROR"
)

const (
	folderMarker      = "[폴더]"
	maxLinkScanColumn = 220

	sourceScan  = "SCAN"
	sourceCache = "CACHE"
)

// CheckDriveFiles colours each block's folder link cell by whether the
// folder holds real files. Without includeAll only active projects are
// checked; force bypasses the cache.
func (r *Runner) CheckDriveFiles(ctx context.Context, includeAll, force bool) (Result, error) {
	t := r.startTally(OpDriveCheck)

	if r.storage == nil {
		return r.finish(t, Result{Summary: "드라이브 서비스 미설정"}, false), nil
	}

	main, scan, err := r.mainScan(ctx)
	if err != nil {
		return Result{Operation: OpDriveCheck}, err
	}
	if scan.Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	cache, err := r.openDriveCache(ctx)
	if err != nil {
		return Result{Operation: OpDriveCheck}, err
	}
	runLog, err := r.book.EnsureTable(ctx, r.cfg.Sheets.DriveRun, RunLogHeaders)
	if err != nil {
		return Result{Operation: OpDriveCheck}, fmt.Errorf("open drive run log: %w", err)
	}

	run := &driveRun{id: r.newRunID(), now: r.now}
	opts := r.cfg.Drive

	for {
		b, ok := scan.Next()
		if !ok {
			break
		}
		if !r.model.Names.IsValid(blocks.ProjectNameInRow(main, b.Start)) {
			continue
		}

		status := blocks.StatusInRow(main, b.Start)
		if !includeAll && !blocks.IsActiveForExternalCheck(status) {
			t.skip(b, "inactive_status")
			run.add(b.Start, status, "", DriveSkipStatus, "진행만 대상 아님")
			continue
		}

		link, found := findFolderURLCell(b, scan.LastRow())
		if !found {
			t.skip(b, "no_url")
			run.add(b.Start, status, "", DriveSkipNoURL, "R/S에서 링크를 찾지 못함")
			continue
		}

		if !drive.IsProviderURL(link.url) {
			main.SetBackground(link.row, link.col, opts.ClearColor)
			run.add(b.Start, status, link.url, DriveSkipBadURL, "drive URL 아님")
			continue
		}
		folderID, err := drive.FolderID(link.url)
		if err != nil {
			// the folder cannot be checked, so the link keeps its colour
			t.fail(b, fmt.Sprintf("Row %d: 폴더 ID 추출 실패", b.Start), err)
			run.add(b.Start, status, link.url, DriveSkipNoID, "폴더 ID 추출 실패")
			continue
		}

		hasFiles, source, err := r.folderHasFiles(ctx, cache, folderID, force)
		if err != nil {
			// the link cell keeps whatever colour it had
			t.add(metrics.OutcomeFail)
			t.failed = append(t.failed, fmt.Sprintf("Row %d: %v", b.Start, err))
			log.Warn().Err(err).Int("row", b.Start).Str("folder_id", folderID).Msg("Drive check failed")
			run.add(b.Start, status, link.url, DriveError, err.Error())
			continue
		}

		color := opts.ClearColor
		details := "NO_FILES"
		if hasFiles {
			color = opts.HasFilesColor
			details = "HAS_FILES"
		}
		main.SetBackground(link.row, link.col, color)
		t.add(metrics.OutcomeSuccess)
		if source == sourceCache {
			t.add(metrics.OutcomeCached)
		}
		run.add(b.Start, status, link.url, DriveUpdated, details+" / "+source)
		log.Info().Int("row", b.Start).Str("folder_id", folderID).Bool("has_files", hasFiles).Str("source", source).Msg("Checked drive folder")
	}

	if len(run.rows) > 0 {
		runLog.AppendRows(run.rows)
	}

	summary := fmt.Sprintf("업데이트 %d / 스킵 %d / 오류 %d",
		t.n(metrics.OutcomeSuccess), t.n(metrics.OutcomeSkip), t.n(metrics.OutcomeFail))
	return r.finish(t, Result{Summary: summary}, true), nil
}

// folderHasFiles answers from a fresh cache entry unless forced, else runs
// the live check and overwrites the entry.
func (r *Runner) folderHasFiles(ctx context.Context, cache reconcile.DriveCache, folderID string, force bool) (bool, string, error) {
	if !force {
		entry, ok, err := cache.Get(ctx, folderID)
		if err != nil {
			Warning{Operation: OpDriveCheck, Step: "drive cache lookup", Err: err}.Log()
		} else if ok && entry.Fresh(r.now(), r.cfg.Drive.CacheTTL) {
			return entry.HasFiles, sourceCache, nil
		}
	}

	r.metrics.IncCall("drive")
	hasFiles, err := r.storage.HasRealFiles(ctx, folderID)
	if err != nil {
		return false, "", err
	}
	if err := cache.Put(ctx, folderID, reconcile.CacheEntry{HasFiles: hasFiles, CheckedAt: r.now()}); err != nil {
		Warning{Operation: OpDriveCheck, Step: "drive cache write", Err: err}.Log()
	}
	return hasFiles, sourceScan, nil
}

func (r *Runner) openDriveCache(ctx context.Context) (reconcile.DriveCache, error) {
	if r.driveCache != nil {
		return r.driveCache, nil
	}
	t, err := r.book.EnsureTable(ctx, r.cfg.Sheets.DriveLog, reconcile.DriveCacheHeaders)
	if err != nil {
		return nil, fmt.Errorf("open drive cache: %w", err)
	}
	return reconcile.NewSheetDriveCache(t), nil
}

type driveRun struct {
	id   string
	now  func() time.Time
	rows [][]interface{}
}

func (d *driveRun) add(row int, status, url, result, details string) {
	d.rows = append(d.rows, []interface{}{d.id, d.now(), row, status, url, result, details})
}

// linkCell is the cell coloured by the drive check.
type linkCell struct {
	row int
	col int
	url string
}

// findFolderURLCell locates a block's folder link: a labelled row's link
// first, then any provider link in the link column, then the legacy
// [폴더] marker or any provider link in the header row.
func findFolderURLCell(b blocks.Block, lastRow int) (linkCell, bool) {
	t := b.Table()
	_, labelCol := b.Pos(config.FieldFolderLabel)
	_, urlCol := b.Pos(config.FieldFolderURL)
	end := min(lastRow, b.End())

	for row := b.Start; row <= end; row++ {
		if t.Cell(row, labelCol).Text() == "" {
			continue
		}
		if u := cellURL(t.Cell(row, urlCol)); drive.IsProviderURL(u) {
			return linkCell{row: row, col: urlCol, url: u}, true
		}
	}
	for row := b.Start; row <= end; row++ {
		if u := cellURL(t.Cell(row, urlCol)); drive.IsProviderURL(u) {
			return linkCell{row: row, col: urlCol, url: u}, true
		}
	}

	cols := min(t.LastColumn(), maxLinkScanColumn)
	for c := 1; c < cols; c++ {
		if t.Cell(b.Start, c).Text() == folderMarker {
			return linkCell{row: b.Start, col: c + 1, url: cellURL(t.Cell(b.Start, c+1))}, true
		}
	}
	for c := 1; c <= cols; c++ {
		if u := t.Cell(b.Start, c).Text(); drive.IsProviderURL(u) {
			return linkCell{row: b.Start, col: c, url: u}, true
		}
	}
	return linkCell{}, false
}
