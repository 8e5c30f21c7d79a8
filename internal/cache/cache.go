// Package cache implements the Analysis Cache (C9): an on-disk,
// transactional store keyed by file content hash that lets a re-run of
// audit/clean skip re-parsing and re-walking files that have not changed,
// down to a whole-project fast path when nothing in the tree changed at
// all.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_metadata (
	file_path    TEXT PRIMARY KEY,
	mtime        INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	content_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS file_entities (
	file_path     TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	entities_json TEXT NOT NULL,
	PRIMARY KEY (file_path, content_hash)
);
CREATE TABLE IF NOT EXISTS file_candidate_refs (
	file_path       TEXT NOT NULL,
	content_hash    TEXT NOT NULL,
	candidates_json TEXT NOT NULL,
	PRIMARY KEY (file_path, content_hash)
);
CREATE TABLE IF NOT EXISTS file_dependencies (
	file_path    TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	targets_json TEXT NOT NULL,
	PRIMARY KEY (file_path, content_hash)
);
CREATE TABLE IF NOT EXISTS project_results (
	project_hash      TEXT PRIMARY KEY,
	dead_symbols_json TEXT NOT NULL,
	orphans_json      TEXT NOT NULL
);
`

// Store is the Analysis Cache's connection. A single *sql.DB serializes
// writers through SQLite's own locking; busy_timeout absorbs writer
// contention instead of surfacing SQLITE_BUSY to the caller.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at
// <projectRoot>/.janitor_cache/analysis.db.
func Open(projectRoot string) (*Store, error) {
	dir := filepath.Join(projectRoot, ".janitor_cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dsn := filepath.Join(dir, "analysis.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashContent returns the hex-encoded SHA-256 hash of content, the content
// hash used throughout the cache's row keys.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileMetadata is the fast mtime+size pre-check row for one file.
type FileMetadata struct {
	MTime       int64
	Size        int64
	ContentHash string
}

// GetFileMetadata returns the stored metadata for path, or ok=false if no
// row exists.
func (s *Store) GetFileMetadata(path string) (FileMetadata, bool, error) {
	var m FileMetadata
	row := s.db.QueryRow(`SELECT mtime, size, content_hash FROM file_metadata WHERE file_path = ?`, path)
	err := row.Scan(&m.MTime, &m.Size, &m.ContentHash)
	if err == sql.ErrNoRows {
		return FileMetadata{}, false, nil
	}
	if err != nil {
		return FileMetadata{}, false, fmt.Errorf("read file metadata: %w", err)
	}
	return m, true, nil
}

// PutFileMetadata upserts the metadata row for path.
func (s *Store) PutFileMetadata(path string, m FileMetadata) error {
	_, err := s.db.Exec(`
		INSERT INTO file_metadata (file_path, mtime, size, content_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET mtime=excluded.mtime, size=excluded.size, content_hash=excluded.content_hash
	`, path, m.MTime, m.Size, m.ContentHash)
	if err != nil {
		return fmt.Errorf("write file metadata: %w", err)
	}
	return nil
}

// IsFresh reports whether a file's on-disk mtime/size still match the
// cached metadata -- the fast pre-check that lets most files skip a content
// hash recompute entirely.
func IsFresh(cached FileMetadata, mtime, size int64) bool {
	return cached.MTime == mtime && cached.Size == size
}

// GetFileEntities returns the cached, JSON-serialised entity list for
// (path, contentHash), unmarshalled into v. ok is false on a cache miss.
func (s *Store) GetFileEntities(path, contentHash string, v interface{}) (bool, error) {
	return s.getJSON(`SELECT entities_json FROM file_entities WHERE file_path = ? AND content_hash = ?`, path, contentHash, v)
}

// PutFileEntities stores v (marshalled to JSON) as the entity list for
// (path, contentHash).
func (s *Store) PutFileEntities(path, contentHash string, v interface{}) error {
	return s.putJSON(`
		INSERT INTO file_entities (file_path, content_hash, entities_json)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path, content_hash) DO UPDATE SET entities_json=excluded.entities_json
	`, path, contentHash, v)
}

// GetFileCandidateRefs returns the cached candidate reference list -- the
// pre-resolution output of the §4.7 ingestion walk -- for (path,
// contentHash).
func (s *Store) GetFileCandidateRefs(path, contentHash string, v interface{}) (bool, error) {
	return s.getJSON(`SELECT candidates_json FROM file_candidate_refs WHERE file_path = ? AND content_hash = ?`, path, contentHash, v)
}

// PutFileCandidateRefs stores the candidate reference list for (path,
// contentHash), letting a later run replay resolution without re-parsing.
func (s *Store) PutFileCandidateRefs(path, contentHash string, v interface{}) error {
	return s.putJSON(`
		INSERT INTO file_candidate_refs (file_path, content_hash, candidates_json)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path, content_hash) DO UPDATE SET candidates_json=excluded.candidates_json
	`, path, contentHash, v)
}

// GetFileDependencies returns the cached dependency edge list (target file
// paths) for (path, contentHash).
func (s *Store) GetFileDependencies(path, contentHash string, v interface{}) (bool, error) {
	return s.getJSON(`SELECT targets_json FROM file_dependencies WHERE file_path = ? AND content_hash = ?`, path, contentHash, v)
}

// PutFileDependencies stores the dependency edge list for (path,
// contentHash).
func (s *Store) PutFileDependencies(path, contentHash string, v interface{}) error {
	return s.putJSON(`
		INSERT INTO file_dependencies (file_path, content_hash, targets_json)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path, content_hash) DO UPDATE SET targets_json=excluded.targets_json
	`, path, contentHash, v)
}

// ProjectResultHash reads only the project_hash column for a whole-project
// row with a plain SQL query, letting the Orchestrator's fast path check for
// a cache hit without deserialising the dead-symbol or orphan lists.
func (s *Store) ProjectResultHash(projectHash string) (bool, error) {
	row := s.db.QueryRow(`SELECT project_hash FROM project_results WHERE project_hash = ?`, projectHash)
	var got string
	err := row.Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read project result hash: %w", err)
	}
	return got == projectHash, nil
}

// GetProjectResult returns the whole-project cached result for
// projectHash, or ok=false on a miss.
func (s *Store) GetProjectResult(projectHash string, deadSymbols, orphans interface{}) (bool, error) {
	row := s.db.QueryRow(`SELECT dead_symbols_json, orphans_json FROM project_results WHERE project_hash = ?`, projectHash)
	var deadJSON, orphansJSON string
	err := row.Scan(&deadJSON, &orphansJSON)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read project result: %w", err)
	}
	if err := json.Unmarshal([]byte(deadJSON), deadSymbols); err != nil {
		return false, fmt.Errorf("decode cached dead symbols: %w", err)
	}
	if err := json.Unmarshal([]byte(orphansJSON), orphans); err != nil {
		return false, fmt.Errorf("decode cached orphans: %w", err)
	}
	return true, nil
}

// PutProjectResult stores the whole-project result under projectHash.
func (s *Store) PutProjectResult(projectHash string, deadSymbols, orphans interface{}) error {
	deadJSON, err := json.Marshal(deadSymbols)
	if err != nil {
		return fmt.Errorf("encode dead symbols: %w", err)
	}
	orphansJSON, err := json.Marshal(orphans)
	if err != nil {
		return fmt.Errorf("encode orphans: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO project_results (project_hash, dead_symbols_json, orphans_json)
		VALUES (?, ?, ?)
		ON CONFLICT(project_hash) DO UPDATE SET dead_symbols_json=excluded.dead_symbols_json, orphans_json=excluded.orphans_json
	`, projectHash, string(deadJSON), string(orphansJSON))
	if err != nil {
		return fmt.Errorf("write project result: %w", err)
	}
	return nil
}

// FieldFromProjectResult reads a single field out of a cached row's JSON
// column via a gjson path query, skipping a full unmarshal when the caller
// only wants one value.
func (s *Store) FieldFromProjectResult(projectHash, column, path string) (gjson.Result, bool, error) {
	allowedColumns := map[string]bool{"dead_symbols_json": true, "orphans_json": true}
	if !allowedColumns[column] {
		return gjson.Result{}, false, fmt.Errorf("unknown project_results column %q", column)
	}
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM project_results WHERE project_hash = ?`, column), projectHash)
	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return gjson.Result{}, false, nil
	}
	if err != nil {
		return gjson.Result{}, false, fmt.Errorf("read project result field: %w", err)
	}
	return gjson.Get(raw, path), true, nil
}

func (s *Store) getJSON(query, path, contentHash string, v interface{}) (bool, error) {
	row := s.db.QueryRow(query, path, contentHash)
	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache row: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode cache row: %w", err)
	}
	return true, nil
}

func (s *Store) putJSON(query, path, contentHash string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache row: %w", err)
	}
	if _, err := s.db.Exec(query, path, contentHash, string(raw)); err != nil {
		return fmt.Errorf("write cache row: %w", err)
	}
	return nil
}
