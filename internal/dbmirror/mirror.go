package dbmirror

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Stage indexes of Project.Stages.
const (
	StageMeasure = iota
	StageConsult
	StageDesign
	StageExcel
	StageSetting
	StageCount
)

// StagePair is the first plan/done date pair found for a stage.
type StagePair struct {
	Plan string
	Done string
}

// Project is one flattened project block.
type Project struct {
	Key       string
	No        string
	Name      string
	Status    string
	Address   string
	MapURL    string
	Folders   [4]string // main, before, build, after
	FileURL   string
	Stages    [StageCount]StagePair
	UpdatedAt time.Time
}

// Mirror keeps a SQLite copy of the project DB sheet.
type Mirror struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS project_db (
	key TEXT PRIMARY KEY,
	no TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	map_url TEXT NOT NULL DEFAULT '',
	folder_main TEXT NOT NULL DEFAULT '',
	folder_before TEXT NOT NULL DEFAULT '',
	folder_build TEXT NOT NULL DEFAULT '',
	folder_after TEXT NOT NULL DEFAULT '',
	item_list TEXT NOT NULL DEFAULT '',
	measure_plan TEXT NOT NULL DEFAULT '',
	measure_done TEXT NOT NULL DEFAULT '',
	consult_plan TEXT NOT NULL DEFAULT '',
	consult_done TEXT NOT NULL DEFAULT '',
	design_plan TEXT NOT NULL DEFAULT '',
	design_done TEXT NOT NULL DEFAULT '',
	excel_plan TEXT NOT NULL DEFAULT '',
	excel_done TEXT NOT NULL DEFAULT '',
	setting_plan TEXT NOT NULL DEFAULT '',
	setting_done TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_project_db_status ON project_db(status);
`

const upsertSQL = `
INSERT INTO project_db (
	key, no, name, status, address, map_url,
	folder_main, folder_before, folder_build, folder_after, item_list,
	measure_plan, measure_done, consult_plan, consult_done, design_plan, design_done,
	excel_plan, excel_done, setting_plan, setting_done, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	no = excluded.no,
	name = excluded.name,
	status = excluded.status,
	address = excluded.address,
	map_url = excluded.map_url,
	folder_main = excluded.folder_main,
	folder_before = excluded.folder_before,
	folder_build = excluded.folder_build,
	folder_after = excluded.folder_after,
	item_list = excluded.item_list,
	measure_plan = excluded.measure_plan,
	measure_done = excluded.measure_done,
	consult_plan = excluded.consult_plan,
	consult_done = excluded.consult_done,
	design_plan = excluded.design_plan,
	design_done = excluded.design_done,
	excel_plan = excluded.excel_plan,
	excel_done = excluded.excel_done,
	setting_plan = excluded.setting_plan,
	setting_done = excluded.setting_done,
	updated_at = excluded.updated_at
`

// Open creates the database file and schema when missing.
func Open(path string) (*Mirror, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Opened project DB mirror")
	return &Mirror{db: db, path: path}, nil
}

// UpsertProjects writes all projects in one transaction.
func (m *Mirror) UpsertProjects(ctx context.Context, projects []Project) error {
	if len(projects) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		args := []interface{}{p.Key, p.No, p.Name, p.Status, p.Address, p.MapURL}
		for _, f := range p.Folders {
			args = append(args, f)
		}
		args = append(args, p.FileURL)
		for _, s := range p.Stages {
			args = append(args, s.Plan, s.Done)
		}
		args = append(args, p.UpdatedAt.UTC())

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert project %q: %w", p.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Int("projects", len(projects)).Str("path", m.path).Msg("Mirrored projects to SQLite")
	return nil
}

// Get loads one project by key.
func (m *Mirror) Get(ctx context.Context, key string) (Project, bool, error) {
	var p Project
	dest := []interface{}{&p.Key, &p.No, &p.Name, &p.Status, &p.Address, &p.MapURL}
	for i := range p.Folders {
		dest = append(dest, &p.Folders[i])
	}
	dest = append(dest, &p.FileURL)
	for i := range p.Stages {
		dest = append(dest, &p.Stages[i].Plan, &p.Stages[i].Done)
	}
	dest = append(dest, &p.UpdatedAt)

	err := m.db.QueryRowContext(ctx, `
		SELECT key, no, name, status, address, map_url,
			folder_main, folder_before, folder_build, folder_after, item_list,
			measure_plan, measure_done, consult_plan, consult_done, design_plan, design_done,
			excel_plan, excel_done, setting_plan, setting_done, updated_at
		FROM project_db WHERE key = ?`, key).Scan(dest...)
	if err == sql.ErrNoRows {
		return Project{}, false, nil
	}
	if err != nil {
		return Project{}, false, fmt.Errorf("get project %q: %w", key, err)
	}
	return p, true, nil
}

// Count returns the number of mirrored projects.
func (m *Mirror) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_db`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

func (m *Mirror) Close() error {
	return m.db.Close()
}
