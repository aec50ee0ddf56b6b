package symbols

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	domainerrors "nscope/internal/core/errors"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/locate"
	"nscope/internal/engine/symbol"
)

const sqliteDriverName = "sqlite"

// Record is one persisted declaration.
type Record struct {
	Symbol    string
	Kind      string
	Namespace string
	Path      string
	Offset    int64
	Line      int
	Column    int
}

// Store persists the declarations of indexed source files per project and
// answers symbol lookups from them.
type Store struct {
	db         *sql.DB
	projectKey string
	lookupStmt *sql.Stmt

	cacheMu sync.RWMutex
	// cacheGen advances on every commit; lookups that raced a commit do
	// not populate the cache.
	cacheGen    uint64
	lookupCache map[string][]Record
}

var _ locate.Locator = (*Store)(nil)

func Open(path, projectKey string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("symbol store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create symbol store directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol store %q: %w", cleanPath, err)
	}
	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = "default"
	}

	lookupStmt, err := db.Prepare(`SELECT
  qualified_name,
  kind,
  namespace,
  file_path,
  byte_offset,
  line_number,
  column_number
FROM declarations
WHERE project_key = ? AND canonical_name = ?
ORDER BY file_path, byte_offset`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare lookup stmt: %w", err)
	}

	return &Store{
		db:          db,
		projectKey:  key,
		lookupStmt:  lookupStmt,
		lookupCache: make(map[string][]Record),
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lookupStmt != nil {
		_ = s.lookupStmt.Close()
	}
	return s.db.Close()
}

func (s *Store) ProjectKey() string {
	return s.projectKey
}

func (s *Store) clearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	s.lookupCache = make(map[string][]Record)
}

// RecordsFromContexts flattens the declarations extracted from one file.
func RecordsFromContexts(path string, contexts extractor.ParsedContexts) []Record {
	var out []Record
	for _, parsed := range contexts {
		ns := parsed.Context.PrimaryNamespace().String()
		for _, decl := range parsed.Declarations {
			out = append(out, Record{
				Symbol:    decl.Symbol.String(),
				Kind:      decl.Kind.String(),
				Namespace: ns,
				Path:      path,
				Offset:    int64(decl.Offset),
				Line:      decl.Position.Line,
				Column:    decl.Position.Column,
			})
		}
	}
	return out
}

type Batch struct {
	tx    *sql.Tx
	store *Store
}

func (s *Store) BeginBatch() (*Batch, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Batch{tx: tx, store: s}, nil
}

// UpsertFile replaces every declaration recorded for path. Lookups see the
// change once the batch commits.
func (b *Batch) UpsertFile(path string, records []Record) error {
	if err := deletePath(b.tx, b.store.projectKey, path); err != nil {
		return err
	}
	if err := insertRecords(b.tx, b.store.projectKey, path, records); err != nil {
		return err
	}
	return nil
}

func (b *Batch) DeleteFile(path string) error {
	if err := deletePath(b.tx, b.store.projectKey, path); err != nil {
		return err
	}
	return nil
}

// PruneToPaths drops every file not in paths.
func (b *Batch) PruneToPaths(paths []string) error {
	if len(paths) == 0 {
		if _, err := b.tx.Exec(`DELETE FROM declarations WHERE project_key = ?`, b.store.projectKey); err != nil {
			return fmt.Errorf("clear declarations for empty path set: %w", err)
		}
	} else {
		if err := loadTempPaths(b.tx, b.store.projectKey, paths); err != nil {
			return err
		}
		if _, err := b.tx.Exec(`DELETE FROM declarations WHERE project_key = ? AND file_path NOT IN (SELECT file_path FROM current_paths WHERE project_key = ?)`, b.store.projectKey, b.store.projectKey); err != nil {
			return fmt.Errorf("delete stale declarations: %w", err)
		}
	}
	return nil
}

func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.store.clearCache()
	return nil
}

func (b *Batch) Rollback() error {
	return b.tx.Rollback()
}

// UpsertFile replaces the declarations of one file in its own transaction.
func (s *Store) UpsertFile(path string, records []Record) error {
	batch, err := s.BeginBatch()
	if err != nil {
		return err
	}
	if err := batch.UpsertFile(path, records); err != nil {
		_ = batch.Rollback()
		return err
	}
	return batch.Commit()
}

func (s *Store) DeleteFile(path string) error {
	batch, err := s.BeginBatch()
	if err != nil {
		return err
	}
	if err := batch.DeleteFile(path); err != nil {
		_ = batch.Rollback()
		return err
	}
	return batch.Commit()
}

// Lookup returns every declaration of name. Names compare case-insensitively.
func (s *Store) Lookup(name string) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	key := canonicalName(name)

	s.cacheMu.RLock()
	if res, ok := s.lookupCache[key]; ok {
		s.cacheMu.RUnlock()
		return res, nil
	}
	gen := s.cacheGen
	s.cacheMu.RUnlock()

	rows, err := s.lookupStmt.Query(s.projectKey, key)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Symbol, &rec.Kind, &rec.Namespace, &rec.Path, &rec.Offset, &rec.Line, &rec.Column); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}

	s.cacheMu.Lock()
	if s.cacheGen == gen {
		s.lookupCache[key] = out
	}
	s.cacheMu.Unlock()
	return out, nil
}

// Locate returns the first recorded declaration of name.
func (s *Store) Locate(_ context.Context, name symbol.Symbol) (locate.Location, error) {
	records, err := s.Lookup(name.String())
	if err != nil {
		return locate.Location{}, err
	}
	if len(records) == 0 {
		return locate.Location{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "symbol is not indexed"), domainerrors.CtxSymbol, name.String())
	}
	return locate.Location{Path: records[0].Path, Offset: records[0].Offset}, nil
}

// Run is one completed index pass.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Files        int
	Declarations int
}

// StartRun records the start of an index pass and returns its ID.
func (s *Store) StartRun(startedAt time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO index_runs (run_id, project_key, started_at) VALUES (?, ?, ?)`,
		id, s.projectKey, startedAt.UTC().Unix()); err != nil {
		return "", fmt.Errorf("start index run: %w", err)
	}
	return id, nil
}

func (s *Store) FinishRun(id string, finishedAt time.Time, files, declarations int) error {
	res, err := s.db.Exec(`UPDATE index_runs SET finished_at = ?, files = ?, declarations = ? WHERE run_id = ? AND project_key = ?`,
		finishedAt.UTC().Unix(), files, declarations, id, s.projectKey)
	if err != nil {
		return fmt.Errorf("finish index run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish index run %q: %w", id, sql.ErrNoRows)
	}
	return nil
}

// LatestRun returns the most recently finished run, or nil.
func (s *Store) LatestRun() (*Run, error) {
	var (
		run               Run
		started, finished int64
	)
	err := s.db.QueryRow(`SELECT run_id, started_at, finished_at, files, declarations
FROM index_runs
WHERE project_key = ? AND finished_at IS NOT NULL
ORDER BY finished_at DESC, started_at DESC
LIMIT 1`, s.projectKey).Scan(&run.ID, &started, &finished, &run.Files, &run.Declarations)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0).UTC()
	run.FinishedAt = time.Unix(finished, 0).UTC()
	return &run, nil
}

func migrateSchema(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= 1 {
		return nil
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS declarations (
  project_key TEXT NOT NULL,
  qualified_name TEXT NOT NULL,
  canonical_name TEXT NOT NULL,
  kind TEXT NOT NULL,
  namespace TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL,
  byte_offset INTEGER NOT NULL DEFAULT 0,
  line_number INTEGER NOT NULL DEFAULT 0,
  column_number INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (project_key, file_path, qualified_name, kind)
);
CREATE INDEX IF NOT EXISTS idx_declarations_project_canonical ON declarations(project_key, canonical_name);
CREATE INDEX IF NOT EXISTS idx_declarations_project_file ON declarations(project_key, file_path);

CREATE TABLE IF NOT EXISTS index_runs (
  run_id TEXT PRIMARY KEY,
  project_key TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  finished_at INTEGER,
  files INTEGER NOT NULL DEFAULT 0,
  declarations INTEGER NOT NULL DEFAULT 0
);

PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create v1 schema: %w", err)
	}
	return nil
}

func loadTempPaths(tx *sql.Tx, projectKey string, paths []string) error {
	if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS current_paths (
  project_key TEXT NOT NULL,
  file_path TEXT NOT NULL,
  PRIMARY KEY (project_key, file_path)
)`); err != nil {
		return fmt.Errorf("create temp paths table: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM current_paths WHERE project_key = ?`, projectKey); err != nil {
		return fmt.Errorf("clear temp paths table: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO current_paths (project_key, file_path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare temp path insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range paths {
		if _, err := stmt.Exec(projectKey, p); err != nil {
			return fmt.Errorf("insert temp path: %w", err)
		}
	}
	return nil
}

func deletePath(tx *sql.Tx, projectKey, path string) error {
	if _, err := tx.Exec(`DELETE FROM declarations WHERE project_key = ? AND file_path = ?`, projectKey, path); err != nil {
		return fmt.Errorf("delete declarations for path %q: %w", path, err)
	}
	return nil
}

func insertRecords(tx *sql.Tx, projectKey, path string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO declarations (
  project_key, qualified_name, canonical_name, kind, namespace, file_path, byte_offset, line_number, column_number
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare declaration insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.Exec(projectKey, rec.Symbol, canonicalName(rec.Symbol), rec.Kind, rec.Namespace, path, rec.Offset, rec.Line, rec.Column); err != nil {
			return fmt.Errorf("insert declaration %q: %w", rec.Symbol, err)
		}
	}
	return nil
}

// canonicalName folds case and guarantees a leading separator.
func canonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, symbol.Separator) {
		name = symbol.Separator + name
	}
	return name
}
