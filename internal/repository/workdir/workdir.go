// Package workdir materializes a per-worker copy of a package tree so
// the RepositoryRunner's parallel workers can mutate their own private
// Sources/ files without racing each other, per spec.md's "Workspace
// copy policy". It is grounded on the teacher's CachedDealer, adapted
// to resolve symlinks before prefix checks and to skip the top-level
// entries the policy names.
package workdir

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pproenca/mutate4swift/internal/log"
)

// excludedTopLevel are directory/file names, at the source root only,
// that are never copied into a worker's workspace: build artifacts and
// VCS metadata that a test run neither needs nor should mutate.
var excludedTopLevel = map[string]bool{
	".build":        true,
	".git":          true,
	".mutate4swift": true,
}

// Dealer hands out isolated workspace copies of one source directory,
// keyed by an arbitrary caller identifier, and guarantees their removal.
type Dealer struct {
	mu      sync.RWMutex
	cache   map[string]string
	workDir string
	srcDir  string
}

// New creates a Dealer rooted at workDir (the parent temp directory)
// that copies from srcDir.
func New(workDir, srcDir string) *Dealer {
	return &Dealer{
		cache:   make(map[string]string),
		workDir: workDir,
		srcDir:  srcDir,
	}
}

// Get returns the workspace directory for idf, copying srcDir into a
// fresh temp directory the first time idf is requested and reusing it
// on every subsequent call.
func (d *Dealer) Get(idf string) (string, error) {
	if dst, ok := d.fromCache(idf); ok {
		return dst, nil
	}

	dst, err := os.MkdirTemp(d.workDir, "wd-*")
	if err != nil {
		return "", err
	}

	root, err := filepath.EvalSymlinks(d.srcDir)
	if err != nil {
		root = d.srcDir
	}

	if err := filepath.Walk(root, d.copyTo(root, dst)); err != nil {
		return "", err
	}

	d.setCache(idf, dst)

	return dst, nil
}

// Clean removes every workspace this Dealer has handed out.
func (d *Dealer) Clean() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, v := range d.cache {
		if err := os.RemoveAll(v); err != nil {
			log.Errorf("impossible to remove temporary workspace %s: %s\n", v, err)
		}
	}
	d.cache = make(map[string]string)
}

func (d *Dealer) fromCache(idf string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dst, ok := d.cache[idf]

	return dst, ok
}

func (d *Dealer) setCache(idf, dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[idf] = dir
}

func (d *Dealer) copyTo(root, dst string) filepath.WalkFunc {
	return func(srcPath string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, srcPath)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		// excludedTopLevel only applies to entries directly under the
		// package root, so a legitimately-named "git" or "build"
		// directory nested deeper is still copied.
		if topLevel := firstSegment(rel); excludedTopLevel[topLevel] {
			if info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		return copyEntry(srcPath, filepath.Join(dst, rel), info)
	}
}

func firstSegment(rel string) string {
	for i := 0; i < len(rel); i++ {
		if rel[i] == filepath.Separator {
			return rel[:i]
		}
	}

	return rel
}

func copyEntry(srcPath, dstPath string, info fs.FileInfo) error {
	switch mode := info.Mode(); {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(srcPath)
		if err != nil {
			return err
		}

		return os.Symlink(target, dstPath)
	case mode.IsDir():
		if err := os.MkdirAll(dstPath, mode); err != nil {
			return err
		}
	case mode.IsRegular():
		return copyFile(srcPath, dstPath, mode)
	}

	return nil
}

func copyFile(srcPath, dstPath string, mode fs.FileMode) error {
	//nolint:gosec // srcPath originates from an internally-controlled walk
	s, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer s.Close()

	//nolint:gosec // dstPath is internally constructed, not user input
	d, err := os.OpenFile(dstPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer d.Close()

	_, err = io.Copy(d, s)

	return err
}
