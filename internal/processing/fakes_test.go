package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homestyle_sync/internal/config"
	"homestyle_sync/internal/contacts"
	"homestyle_sync/internal/dbmirror"
	"homestyle_sync/internal/geocode"
	"homestyle_sync/internal/sheets"
)

const mainSheet = "통합관리시트"

var testNow = time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SpreadsheetID = "sheet-id"
	cfg.Kakao.APIKey = "kakao-key"
	return cfg
}

func newTestRunner(cfg config.Config, book sheets.Workbook, opts ...Option) *Runner {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithRunID(func() string { return "run-1" }),
	}
	return NewRunner(cfg, book, append(base, opts...)...)
}

// seedProject writes the header row of a block: number, name and status.
func seedProject(g *sheets.Grid, start int, no, name, status string) {
	seed(g, start, 2, no)
	seed(g, start, 3, name)
	seed(g, start, 7, status)
}

func seed(g *sheets.Grid, row, col int, display string) {
	if display == "" {
		return
	}
	g.Seed(row, col, sheets.Cell{Display: display, Raw: display})
}

func seedDate(g *sheets.Grid, row, col int, t time.Time) {
	g.Seed(row, col, sheets.Cell{Display: t.Format("2006-01-02"), Raw: t})
}

type fakeGeocoder struct {
	key     bool
	results map[string]geocode.Result
	errs    map[string]error
	queries []string
}

func (f *fakeGeocoder) HasKey() bool { return f.key }

func (f *fakeGeocoder) Search(ctx context.Context, query string) (geocode.Result, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return geocode.Result{}, err
	}
	if res, ok := f.results[query]; ok {
		return res, nil
	}
	return geocode.Result{}, geocode.ErrNotFound
}

type fakeStorage struct {
	parent    string
	parentErr error
	folders   map[string]string // parent/name -> id
	files     map[string]string // parent/name -> id
	hasFiles  map[string]bool
	checkErrs map[string]error
	createErr error

	nextID  int
	created []string
	copies  []string
	checks  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		parent:    "root",
		folders:   map[string]string{},
		files:     map[string]string{},
		hasFiles:  map[string]bool{},
		checkErrs: map[string]error{},
	}
}

func (f *fakeStorage) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeStorage) ParentFolderID(ctx context.Context, fileID string) (string, error) {
	return f.parent, f.parentErr
}

func (f *fakeStorage) FindOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	key := parentID + "/" + name
	if id, ok := f.folders[key]; ok {
		return id, nil
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.id("folder")
	f.folders[key] = id
	f.created = append(f.created, key)
	return id, nil
}

func (f *fakeStorage) FindFile(ctx context.Context, parentID, name string) (string, bool, error) {
	id, ok := f.files[parentID+"/"+name]
	return id, ok, nil
}

func (f *fakeStorage) CopyFile(ctx context.Context, srcID, parentID, name string) (string, error) {
	id := f.id("file")
	f.files[parentID+"/"+name] = id
	f.copies = append(f.copies, parentID+"/"+name)
	return id, nil
}

func (f *fakeStorage) HasRealFiles(ctx context.Context, folderID string) (bool, error) {
	f.checks = append(f.checks, folderID)
	if err, ok := f.checkErrs[folderID]; ok {
		return false, err
	}
	return f.hasFiles[folderID], nil
}

type fakeDirectory struct {
	capability contacts.Capability
	phones     map[string]bool
	lookupErrs map[string]error
	created    []contacts.Contact
	lookups    int
}

func newFakeDirectory(existing ...string) *fakeDirectory {
	d := &fakeDirectory{
		capability: contacts.Available(),
		phones:     map[string]bool{},
		lookupErrs: map[string]error{},
	}
	for _, p := range existing {
		d.phones[p] = true
	}
	return d
}

func (f *fakeDirectory) Probe(ctx context.Context) contacts.Capability { return f.capability }

func (f *fakeDirectory) LookupByPhone(ctx context.Context, phone string) (bool, error) {
	f.lookups++
	if err, ok := f.lookupErrs[phone]; ok {
		return false, err
	}
	return f.phones[phone], nil
}

func (f *fakeDirectory) Create(ctx context.Context, c contacts.Contact) (contacts.Created, error) {
	f.created = append(f.created, c)
	f.phones[c.Phone] = true
	return contacts.Created{ResourceName: "people/c" + c.Phone}, nil
}

type fakeStore struct {
	upserts [][]dbmirror.Project
	err     error
}

func (f *fakeStore) UpsertProjects(ctx context.Context, projects []dbmirror.Project) error {
	f.upserts = append(f.upserts, projects)
	return f.err
}

type stampCall struct {
	spreadsheetID string
	range_        string
	values        [][]interface{}
}

type fakeStamper struct {
	calls []stampCall
	err   error
}

func (f *fakeStamper) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	f.calls = append(f.calls, stampCall{spreadsheetID, range_, values})
	return f.err
}

var errBoom = errors.New("boom")
