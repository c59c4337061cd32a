package processing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/drive"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

const (
	folderLabelRows  = 4
	templateSuffix   = " 물품리스트"
	docsURLPrefix    = "https://docs.google.com/spreadsheets/d/"
	projectDateStamp = "060102"
)

var nonDigits = regexp.MustCompile(`\D`)

// CreateFolders provisions the project folder, its labelled sub-folders and
// an optional template copy for every open block. Existing links are kept
// unless force is set.
func (r *Runner) CreateFolders(ctx context.Context, force bool) (Result, error) {
	t := r.startTally(OpFolders)

	if r.storage == nil {
		return r.finish(t, Result{Summary: "드라이브 서비스 미설정"}, false), nil
	}

	_, scan, err := r.mainScan(ctx)
	if err != nil {
		return Result{Operation: OpFolders}, err
	}
	if scan.Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	r.metrics.IncCall("drive")
	rootID, err := r.storage.ParentFolderID(ctx, r.cfg.SpreadsheetID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve spreadsheet parent folder")
		return r.finish(t, Result{Summary: "상위 폴더 확인 실패: " + err.Error()}, false), nil
	}

	xref := r.loadXref(ctx)

	policy := blocks.Policy{
		blocks.SkipInvalidName(r.model.Names),
		blocks.SkipClosed(),
	}

	for {
		b, ok := scan.Next()
		if !ok {
			break
		}
		if d := policy.Evaluate(b); d.Skip {
			if d.Counted {
				t.skip(b, d.Reason)
			}
			continue
		}

		p := &projectFolder{runner: r, rootID: rootID, name: projectFolderName(b)}
		if err := r.provisionBlock(ctx, t, b, p, scan.LastRow(), force, xref); err != nil {
			t.fail(b, fmt.Sprintf("Row %d: %v", b.Start, err), err)
		}
	}

	summary := fmt.Sprintf("처리 %d / 건너뜀 %d / 실패 %d",
		t.n(metrics.OutcomeSuccess), t.n(metrics.OutcomeSkip), t.n(metrics.OutcomeFail))
	return r.finish(t, Result{Summary: summary}, true), nil
}

// provisionBlock handles the label rows and the template copy of one block.
// The first error abandons the rest of the block.
func (r *Runner) provisionBlock(ctx context.Context, t *tally, b blocks.Block, p *projectFolder, lastRow int, force bool, xref map[string]string) error {
	tbl := b.Table()
	labelRow, labelCol := b.Pos(config.FieldFolderLabel)
	_, urlCol := b.Pos(config.FieldFolderURL)

	for i := 1; i <= folderLabelRows; i++ {
		row := labelRow + i
		if row > lastRow {
			break
		}
		label := tbl.Cell(row, labelCol).Text()
		if label == "" {
			continue
		}
		if current := cellURL(tbl.Cell(row, urlCol)); !force && drive.IsProviderURL(current) {
			t.add(metrics.OutcomeSkip)
			log.Debug().Int("row", row).Str("label", label).Msg("Folder link already set")
			continue
		}

		parentID, err := p.id(ctx)
		if err != nil {
			return err
		}
		r.metrics.IncCall("drive")
		id, err := r.storage.FindOrCreateFolder(ctx, parentID, label)
		if err != nil {
			return fmt.Errorf("folder %s: %w", label, err)
		}
		tbl.SetValue(row, urlCol, drive.FolderURL(id))
		t.add(metrics.OutcomeSuccess)
		t.success = append(t.success, b.Label()+" / "+label)
		log.Info().Int("row", row).Str("project", b.Label()).Str("folder", label).Msg("Linked folder")
	}

	if r.cfg.Folders.TemplateFileID == "" {
		return nil
	}
	return r.provisionTemplate(ctx, b, p, force, xref)
}

func (r *Runner) provisionTemplate(ctx context.Context, b blocks.Block, p *projectFolder, force bool, xref map[string]string) error {
	if !force && strings.Contains(cellURL(b.Cell(config.FieldFile)), docsURLPrefix) {
		return nil
	}

	parentID, err := p.id(ctx)
	if err != nil {
		return err
	}
	name := p.name + templateSuffix

	r.metrics.IncCall("drive")
	fileID, found, err := r.storage.FindFile(ctx, parentID, name)
	if err != nil {
		return fmt.Errorf("find template copy: %w", err)
	}
	copied := false
	if !found || force {
		r.metrics.IncCall("drive")
		fileID, err = r.storage.CopyFile(ctx, r.cfg.Folders.TemplateFileID, parentID, name)
		if err != nil {
			return fmt.Errorf("copy template: %w", err)
		}
		copied = true
	}
	b.Set(config.FieldFile, docsURLPrefix+fileID)

	if copied {
		r.stampTemplate(ctx, b, fileID, xref)
	}
	log.Info().Int("row", b.Start).Str("file", name).Bool("copied", copied).Msg("Linked item list")
	return nil
}

// stampTemplate writes the cross-reference value into the new copy.
func (r *Runner) stampTemplate(ctx context.Context, b blocks.Block, fileID string, xref map[string]string) {
	value, ok := xref[b.Text(config.FieldNo)]
	if !ok || r.stamper == nil {
		return
	}
	r.metrics.IncCall("sheets")
	if err := r.stamper.UpdateRange(ctx, fileID, r.cfg.Folders.StampCell, [][]interface{}{{value}}); err != nil {
		Warning{Operation: OpFolders, Row: b.Start, Step: "template stamp", Err: err}.Log()
	}
}

// loadXref reads the cross-reference sheet: project number in column A,
// value in column B.
func (r *Runner) loadXref(ctx context.Context) map[string]string {
	out := map[string]string{}
	if r.cfg.Sheets.Xref == "" || r.cfg.Folders.TemplateFileID == "" {
		return out
	}
	t, err := r.book.Table(ctx, r.cfg.Sheets.Xref)
	if err != nil {
		Warning{Operation: OpFolders, Step: "load cross-reference", Err: err}.Log()
		return out
	}
	for row := 1; row <= t.LastRow(); row++ {
		key := t.Cell(row, 1).Text()
		if key == "" {
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = t.Cell(row, 2).Text()
		}
	}
	return out
}

// projectFolder resolves "<yyMMdd> <name>" inside the root on first use.
type projectFolder struct {
	runner   *Runner
	rootID   string
	name     string
	folderID string
}

func (p *projectFolder) id(ctx context.Context) (string, error) {
	if p.folderID != "" {
		return p.folderID, nil
	}
	p.runner.metrics.IncCall("drive")
	id, err := p.runner.storage.FindOrCreateFolder(ctx, p.rootID, p.name)
	if err != nil {
		return "", fmt.Errorf("project folder %s: %w", p.name, err)
	}
	p.folderID = id
	return id, nil
}

func projectFolderName(b blocks.Block) string {
	name := b.Text(config.FieldName)
	prefix := datePrefix(b.Cell(config.FieldProjectDate))
	if prefix == "" {
		return name
	}
	return prefix + " " + name
}

// datePrefix renders a project date as yyMMdd when it can be derived.
func datePrefix(c sheets.Cell) string {
	if t, ok := c.Time(); ok {
		return t.Format(projectDateStamp)
	}
	text := c.Text()
	digits := nonDigits.ReplaceAllString(text, "")
	switch len(digits) {
	case 8:
		return digits[2:]
	case 6:
		return digits
	}
	return text
}
