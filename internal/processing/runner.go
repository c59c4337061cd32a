package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/contacts"
	"homestyle_sync/internal/dbmirror"
	"homestyle_sync/internal/geocode"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/reconcile"
	"homestyle_sync/internal/sheets"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Operation names used in logs, metrics and notifications.
const (
	OpAddress       = "address"
	OpContacts      = "contacts"
	OpContactsAudit = "contacts_audit"
	OpFolders       = "folders"
	OpDB            = "db"
	OpDriveCheck    = "drive_check"
	OpCalendar      = "calendar"
	OpFold          = "fold"
	OpDiagnose      = "diagnose"
	OpMaster        = "master"
)

const noData = "데이터 없음"

// Geocoder resolves a base address.
type Geocoder interface {
	HasKey() bool
	Search(ctx context.Context, query string) (geocode.Result, error)
}

// Storage is the folder/file provider.
type Storage interface {
	ParentFolderID(ctx context.Context, fileID string) (string, error)
	FindOrCreateFolder(ctx context.Context, parentID, name string) (string, error)
	FindFile(ctx context.Context, parentID, name string) (string, bool, error)
	CopyFile(ctx context.Context, srcID, parentID, name string) (string, error)
	HasRealFiles(ctx context.Context, folderID string) (bool, error)
}

// Directory is the contact address book.
type Directory interface {
	Probe(ctx context.Context) contacts.Capability
	LookupByPhone(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, c contacts.Contact) (contacts.Created, error)
}

// ProjectStore mirrors DB sync rows outside the spreadsheet.
type ProjectStore interface {
	UpsertProjects(ctx context.Context, projects []dbmirror.Project) error
}

// Stamper writes a range of another spreadsheet, such as a copied template.
type Stamper interface {
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
}

// Result is the end-of-run report of one operation.
type Result struct {
	Operation   string
	Summary     string
	FailedList  []string
	SuccessList []string
	Sheet       string
}

// Warning is a failed best-effort step. It is logged and never escalated.
type Warning struct {
	Operation string
	Row       int
	Step      string
	Err       error
}

func (w Warning) Log() {
	log.Warn().
		Err(w.Err).
		Str("operation", w.Operation).
		Int("row", w.Row).
		Str("step", w.Step).
		Msg("Best-effort step failed")
}

// Runner executes batch operations against one workbook.
type Runner struct {
	cfg        config.Config
	model      blocks.Model
	book       sheets.Workbook
	geocoder   Geocoder
	storage    Storage
	directory  Directory
	driveCache reconcile.DriveCache
	store      ProjectStore
	stamper    Stamper
	metrics    *metrics.Metrics
	now        func() time.Time
	newRunID   func() string
}

type Option func(*Runner)

func WithGeocoder(g Geocoder) Option { return func(r *Runner) { r.geocoder = g } }

func WithStorage(s Storage) Option { return func(r *Runner) { r.storage = s } }

func WithDirectory(d Directory) Option { return func(r *Runner) { r.directory = d } }

// WithDriveCache replaces the sheet-backed drive cache.
func WithDriveCache(c reconcile.DriveCache) Option { return func(r *Runner) { r.driveCache = c } }

func WithProjectStore(s ProjectStore) Option { return func(r *Runner) { r.store = s } }

func WithStamper(s Stamper) Option { return func(r *Runner) { r.stamper = s } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func WithRunID(f func() string) Option { return func(r *Runner) { r.newRunID = f } }

func NewRunner(cfg config.Config, book sheets.Workbook, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		model:    blocks.NewModel(cfg),
		book:     book,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// mainScan opens the managed sheet and starts a fresh scan over it.
func (r *Runner) mainScan(ctx context.Context) (sheets.Table, *blocks.Scan, error) {
	t, err := r.book.Table(ctx, r.cfg.Sheets.Main)
	if err != nil {
		return nil, nil, fmt.Errorf("open main sheet: %w", err)
	}
	return t, r.model.NewScan(t), nil
}

// sheetNow is the current time in the spreadsheet's zone, so calendar
// days match the dates users see.
func (r *Runner) sheetNow(t sheets.Table) time.Time {
	return r.now().In(t.Location())
}

// tally accumulates per-block outcomes of one operation.
type tally struct {
	op      string
	started time.Time
	counts  map[string]int
	failed  []string
	success []string
}

func (r *Runner) startTally(op string) *tally {
	log.Debug().Str("operation", op).Msg("Starting batch operation")
	return &tally{op: op, started: r.now(), counts: map[string]int{}}
}

func (t *tally) add(outcome string) { t.counts[outcome]++ }

func (t *tally) n(outcome string) int { return t.counts[outcome] }

func (t *tally) skip(b blocks.Block, reason string) {
	t.add(metrics.OutcomeSkip)
	log.Debug().Str("operation", t.op).Int("row", b.Start).Str("reason", reason).Msg("Skipping block")
}

func (t *tally) fail(b blocks.Block, entry string, err error) {
	t.add(metrics.OutcomeFail)
	t.failed = append(t.failed, entry)
	log.Warn().Err(err).Str("operation", t.op).Int("row", b.Start).Str("project", b.Label()).Msg("Block failed")
}

// finish records metrics and logs the final counts.
func (r *Runner) finish(t *tally, res Result, ok bool) Result {
	res.Operation = t.op
	if res.FailedList == nil {
		res.FailedList = t.failed
	}
	if res.SuccessList == nil {
		res.SuccessList = t.success
	}
	for outcome, n := range t.counts {
		r.metrics.AddBlocks(t.op, outcome, n)
	}
	r.metrics.ObserveRun(t.op, r.now().Sub(t.started), ok)

	ev := log.Info().Str("operation", t.op)
	for outcome, n := range t.counts {
		ev = ev.Int(outcome, n)
	}
	ev.Str("summary", res.Summary).Msg("Finished batch operation")
	return res
}

// cellURL prefers a cell's hyperlink over its display text.
func cellURL(c sheets.Cell) string {
	if c.Hyperlink != "" {
		return strings.TrimSpace(c.Hyperlink)
	}
	return c.Text()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// addressLine joins the address and address-extra fields.
func addressLine(b blocks.Block) string {
	return collapseSpaces(b.Text(config.FieldAddress) + " " + b.Text(config.FieldAddressExtra))
}
