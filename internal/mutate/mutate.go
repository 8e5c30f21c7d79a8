// Package mutate implements the Safe Mutator (C10): deletes dead symbols
// from source files by splicing their byte ranges out of an in-memory
// buffer, backing up every touched file first so the whole session can be
// rolled back atomically.
package mutate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghrammr/janitor/internal/cache"
	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/pkg/types"
)

// ErrConcurrentModification is returned by DeleteSymbols when a file's
// content hash no longer matches the hash captured at analysis time.
var ErrConcurrentModification = errors.New("file changed since analysis")

// ManifestStatus is the lifecycle state of a mutation session.
type ManifestStatus string

const (
	StatusPending    ManifestStatus = "pending"
	StatusCommitted  ManifestStatus = "committed"
	StatusRolledBack ManifestStatus = "rolled-back"
)

// ManifestEntry records one backed-up file.
type ManifestEntry struct {
	Original  string    `json:"original"`
	Backup    string    `json:"backup"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Manifest is the on-disk record of a mutation session, persisted as
// <trash_root>/<session_id>/manifest.json.
type Manifest struct {
	SessionID string          `json:"session_id"`
	Status    ManifestStatus  `json:"status"`
	Entries   []ManifestEntry `json:"entries"`
}

// Session drives one clean invocation's mutation lifecycle: it owns the
// session's backup directory, exclusively, and appends to the manifest as
// files are touched. The backup directory is the single source of truth
// for rollback -- it is never deleted while the session is in progress.
type Session struct {
	trashRoot string
	sessionID string
	sessionDir string

	mu        sync.Mutex
	manifest  Manifest
	backedUp  map[string]bool // original path -> already backed up this session
}

// NewSession starts a mutation session rooted at trashRoot
// (<project_root>/.janitor_trash), minting a fresh UUID session id.
func NewSession(trashRoot string) (*Session, error) {
	id := uuid.New().String()
	dir := filepath.Join(trashRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session trash dir: %w", err)
	}

	s := &Session{
		trashRoot:  trashRoot,
		sessionID:  id,
		sessionDir: dir,
		manifest:   Manifest{SessionID: id, Status: StatusPending},
		backedUp:   make(map[string]bool),
	}
	if err := s.persistManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionID returns the session's UUID.
func (s *Session) SessionID() string {
	return s.sessionID
}

// DeleteSymbols removes every entity in entities from file, following the
// §4.10 algorithm: hash check, backup-once, descending byte-range splice,
// orphan-import sweep, atomic write.
func (s *Session) DeleteSymbols(file string, entities []types.Entity, expectedHash string, lang types.Language) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	if cache.HashContent(content) != expectedHash {
		return fmt.Errorf("%s: %w", file, ErrConcurrentModification)
	}

	if err := s.backupOnce(file, content, expectedHash); err != nil {
		return err
	}

	sorted := make([]types.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ByteRange.Start > sorted[j].ByteRange.Start
	})

	removedNames := make(map[string]bool, len(sorted))
	buf := append([]byte(nil), content...)
	for _, e := range sorted {
		start := cstutil.SnapToUTF8Boundary(buf, e.ByteRange.Start, false)
		end := cstutil.SnapToUTF8Boundary(buf, e.ByteRange.End, true)
		if start < 0 || end > len(buf) || start > end {
			continue
		}
		buf = append(buf[:start], buf[end:]...)
		removedNames[e.Name] = true
	}

	buf = sweepOrphanImports(buf, removedNames, lang)

	if err := atomicWrite(file, buf); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

func (s *Session) backupOnce(file string, content []byte, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backedUp[file] {
		return nil
	}

	relName := filepath.Base(file) + "." + cache.HashContent([]byte(file))[:12]
	backupPath := filepath.Join(s.sessionDir, relName)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if err := atomicWrite(backupPath, content); err != nil {
		return fmt.Errorf("backup %s: %w", file, err)
	}

	s.backedUp[file] = true
	s.manifest.Entries = append(s.manifest.Entries, ManifestEntry{
		Original:  file,
		Backup:    backupPath,
		Hash:      hash,
		Timestamp: time.Now(),
	})
	return s.persistManifestLocked()
}

// RestoreAll copies every backup in the manifest back to its original
// path. Restoration is idempotent and partial-success tolerant: a failure
// restoring one file does not abort restoration of the rest; all errors
// are joined and returned together.
func (s *Session) RestoreAll() error {
	s.mu.Lock()
	entries := append([]ManifestEntry(nil), s.manifest.Entries...)
	s.mu.Unlock()

	var errs []error
	for _, e := range entries {
		data, err := os.ReadFile(e.Backup)
		if err != nil {
			errs = append(errs, fmt.Errorf("read backup for %s: %w", e.Original, err))
			continue
		}
		if err := atomicWrite(e.Original, data); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", e.Original, err))
		}
	}

	s.mu.Lock()
	s.manifest.Status = StatusRolledBack
	persistErr := s.persistManifestLocked()
	s.mu.Unlock()
	if persistErr != nil {
		errs = append(errs, persistErr)
	}

	return errors.Join(errs...)
}

// Commit marks the session committed and removes its backup directory.
// Once committed, RestoreAll can no longer recover the pre-mutation state.
func (s *Session) Commit() error {
	s.mu.Lock()
	s.manifest.Status = StatusCommitted
	err := s.persistManifestLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.RemoveAll(s.sessionDir)
}

func (s *Session) persistManifest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistManifestLocked()
}

func (s *Session) persistManifestLocked() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return atomicWrite(filepath.Join(s.sessionDir, "manifest.json"), data)
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by an os.Rename, so a crash mid-write never leaves a torn file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".janitor-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
