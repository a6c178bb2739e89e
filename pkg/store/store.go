package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Sentinel errors for store failures.
var (
	// ErrLockUnavailable is returned when the lock file cannot be opened.
	ErrLockUnavailable = errors.New("store: lock file unavailable")
)

// Store reads and rewrites the shared capture config under an advisory
// file lock. The lock lives on a separate well-known file so readers of
// the config itself never block.
//
// Reads outside Update are best-effort and eventually consistent; writers
// always re-read the file fresh while holding the lock so a stale caller
// cannot clobber a sibling daemon's more recent write.
type Store struct {
	path     string
	lockPath string
}

// New creates a store for the config file at path, locking on lockPath.
func New(path, lockPath string) *Store {
	return &Store{path: path, lockPath: lockPath}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Probe verifies the store can function: the lock file must be openable
// and the config directory writable. Daemons treat a probe failure as
// fatal at startup; everything later is recovered per tick.
func (s *Store) Probe() error {
	fd, err := unix.Open(s.lockPath, unix.O_CREAT|unix.O_RDWR, 0o666)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLockUnavailable, s.lockPath, err)
	}
	unix.Close(fd)
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("store: config directory %s: %w", dir, err)
	}
	return nil
}

// Read returns the current record. It is tolerant of a missing file or a
// transient parse failure during a concurrent rewrite and returns an empty
// record in that case rather than an error.
func (s *Store) Read() *Record {
	rec := &Record{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return rec
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return &Record{}
	}
	return rec
}

// Update acquires the exclusive lock, re-reads the record fresh from disk,
// applies mutate and atomically replaces the file. The lock is released on
// every exit path. mutate runs quickly and must not sleep or spawn
// processes; the lock is only ever held for the write section.
func (s *Store) Update(mutate func(*Record)) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	rec := s.Read() // fresh, not the caller's possibly-stale copy
	mutate(rec)
	return s.writeAtomic(rec)
}

// lock takes the exclusive advisory lock, returning the release func.
func (s *Store) lock() (func(), error) {
	fd, err := unix.Open(s.lockPath, unix.O_CREAT|unix.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("store: flock %s: %w", s.lockPath, err)
	}
	return func() {
		unix.Flock(fd, unix.LOCK_UN)
		unix.Close(fd)
	}, nil
}

// writeAtomic replaces the config via temp file + rename so the capture
// process never observes a partial write.
func (s *Store) writeAtomic(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
