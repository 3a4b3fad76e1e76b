// Package custodian owns the two collaborating pieces spec.md §4.2
// describes as one component: a pure byte-splice Applicator, and a
// FileCustodian that gives the Orchestrator exclusive, crash-safe custody
// of one source file's on-disk bytes for the duration of a mutation
// session.
package custodian

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/hectane/go-acl"

	"github.com/pproenca/mutate4swift/internal/execution"
	"github.com/pproenca/mutate4swift/internal/site"
)

// Apply splices s.MutatedText into source at [s.ByteOffset,
// s.ByteOffset+s.ByteLength). It is pure: the same source and site
// always produce the same result, and an invalid range (negative
// offset, end past EOF) returns source unchanged rather than erroring,
// per spec.md §4.2. Apply never rewrites bytes outside the range.
func Apply(source []byte, s site.MutationSite) []byte {
	end := s.ByteOffset + s.ByteLength
	if s.ByteOffset < 0 || end > len(source) || end < s.ByteOffset {
		return source
	}

	mutated := make([]byte, 0, len(source)-s.ByteLength+len(s.MutatedText))
	mutated = append(mutated, source[:s.ByteOffset]...)
	mutated = append(mutated, s.MutatedText...)
	mutated = append(mutated, source[end:]...)

	return mutated
}

// backupSuffix names the sibling backup file custody is tracked through,
// per spec.md §6's "Persisted artifacts" list.
const backupSuffix = ".backup"

func backupPath(path string) string {
	return path + backupSuffix
}

// FileCustodian owns exclusive rights to mutate and restore one source
// file at a time through its `<path>.backup` sibling. It is safe for
// concurrent use across different files; operations against the same
// path serialize through a per-path lock, the generalization of the
// teacher's "one mutex per mutated file" cache to "one mutex per
// custodian path".
type FileCustodian struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// New creates a ready-to-use FileCustodian.
func New() *FileCustodian {
	return &FileCustodian{locks: make(map[string]*sync.Mutex)}
}

func (c *FileCustodian) fileLock(path string) *sync.Mutex {
	c.mu.RLock()
	lock, ok := c.locks[path]
	c.mu.RUnlock()
	if ok {
		return lock
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok = c.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[path] = lock
	}

	return lock
}

// HasStaleBackup reports whether path's backup sibling currently exists.
// A true result found before a session begins is evidence of a prior
// crash, per spec.md §4.2's crash-safety invariant.
func (c *FileCustodian) HasStaleBackup(path string) bool {
	_, err := os.Stat(backupPath(path))

	return err == nil
}

// Backup copies path's current contents to its backup sibling and
// returns them. It is idempotent per spec.md §4.7 step 5a ("backup() if
// not already backed up"): if a backup already exists, its content is
// returned unchanged rather than overwritten with the (by then already
// mutated) live file.
func (c *FileCustodian) Backup(path string) ([]byte, error) {
	lock := c.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	bp := backupPath(path)
	if existing, err := os.ReadFile(bp); err == nil {
		return existing, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &execution.IOFailure{Cause: err}
	}

	if err := atomicWrite(bp, content); err != nil {
		return nil, err
	}

	return content, nil
}

// WriteMutated atomically overwrites path with s.
func (c *FileCustodian) WriteMutated(path string, s []byte) error {
	lock := c.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	return atomicWrite(path, s)
}

// Restore copies the backup sibling back over path and removes it.
func (c *FileCustodian) Restore(path string) error {
	lock := c.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	bp := backupPath(path)

	content, err := os.ReadFile(bp)
	if err != nil {
		return &execution.BackupRestoreFailed{Path: path, Cause: err}
	}

	if err := atomicWrite(path, content); err != nil {
		return &execution.BackupRestoreFailed{Path: path, Cause: err}
	}

	if err := os.Remove(bp); err != nil {
		return &execution.BackupRestoreFailed{Path: path, Cause: err}
	}

	return nil
}

// RestoreIfNeeded restores from the backup sibling if one exists,
// reporting whether a restore occurred. It is the entry point the
// Orchestrator calls before starting a new session, so a stale backup
// left behind by a crashed prior run is always cleaned up first.
func (c *FileCustodian) RestoreIfNeeded(path string) (bool, error) {
	if !c.HasStaleBackup(path) {
		return false, nil
	}

	if err := c.Restore(path); err != nil {
		return false, err
	}

	return true, nil
}

// atomicWrite writes data to a temp file in the same directory as path,
// then renames it over path so that no external observer (the compiler,
// a file watcher) ever sees a partially-written file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".mutate4swift-*")
	if err != nil {
		return &execution.IOFailure{Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return &execution.IOFailure{Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return &execution.IOFailure{Cause: err}
	}

	if info, statErr := os.Stat(path); statErr == nil {
		// acl.Chmod applies the permission bits through the platform's
		// native ACL API on Windows and falls back to os.Chmod
		// elsewhere, so the replaced file keeps the original's mode
		// regardless of host OS.
		if err := acl.Chmod(tmpName, info.Mode()); err != nil {
			os.Remove(tmpName)

			return &execution.IOFailure{Cause: err}
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)

		return &execution.IOFailure{Cause: err}
	}

	return nil
}
