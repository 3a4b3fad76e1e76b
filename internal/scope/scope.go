// Package scope resolves a source file to the narrowest XCTest filter
// pattern that still exercises it, via a semantic index over the
// package's build directory.
package scope

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// IndexStore is the semantic-index collaborator a Resolver talks to. In
// production this shells out to `swift build --build-tests` plus an
// index-store-db query; that process boundary is deliberately kept
// behind this narrow interface rather than implemented here.
type IndexStore interface {
	// Ensure makes sure packageRoot's index exists, triggering one build
	// if it is missing. When refresh is true it triggers one refresh
	// build regardless of whether the index already exists.
	Ensure(packageRoot string, refresh bool) error

	// LatestIndexTime returns the modification time of the most recently
	// indexed unit covering sourceFile.
	LatestIndexTime(packageRoot, sourceFile string) (time.Time, error)

	// UnitTestsForFile returns the test-target names (directory names
	// under Tests/<Target>/…) transitively exercising sourceFile. When
	// the index has no reference data for the file it falls back to the
	// symbol-reference sweep internally and still returns target names.
	UnitTestsForFile(packageRoot, sourceFile string) ([]string, error)
}

// Resolver maps a source file to its test-filter pattern, caching every
// (package, source) resolution so that index opens, refresh attempts,
// and filter computations each happen at most once per process.
type Resolver struct {
	store IndexStore
	cache sync.Map // packageRoot -> *packageState
}

// New creates a Resolver backed by store.
func New(store IndexStore) *Resolver {
	return &Resolver{store: store}
}

// packageState is the single-writer structure shared by every caller
// resolving files within the same package root.
type packageState struct {
	mu      sync.Mutex
	ensured bool
	filters map[string]*string
}

func (r *Resolver) state(packageRoot string) *packageState {
	v, _ := r.cache.LoadOrStore(packageRoot, &packageState{filters: make(map[string]*string)})

	return v.(*packageState)
}

// Resolve returns the test-filter pattern for sourceFile, or nil meaning
// "run the entire test suite". sourceModTime is the file's current
// modification time, used to detect a stale index.
func (r *Resolver) Resolve(packageRoot, sourceFile string, sourceModTime time.Time) (*string, error) {
	st := r.state(packageRoot)

	st.mu.Lock()
	defer st.mu.Unlock()

	if pattern, ok := st.filters[sourceFile]; ok {
		return pattern, nil
	}

	if !st.ensured {
		if err := r.store.Ensure(packageRoot, false); err != nil {
			return nil, err
		}
		st.ensured = true
	}

	if latest, err := r.store.LatestIndexTime(packageRoot, sourceFile); err == nil {
		if sourceModTime.After(latest) {
			if err := r.store.Ensure(packageRoot, true); err != nil {
				return nil, err
			}
		}
	}

	targets, err := r.store.UnitTestsForFile(packageRoot, sourceFile)
	if err != nil {
		return nil, err
	}

	pattern := renderPattern(targets)
	st.filters[sourceFile] = pattern

	return pattern, nil
}

// renderPattern implements spec step 6: a single target collapses to its
// bare name, N targets become the regex-escaped alternation anchored at
// the start of the fully-qualified test name.
func renderPattern(targets []string) *string {
	unique := dedupe(targets)
	if len(unique) == 0 {
		return nil
	}
	if len(unique) == 1 {
		return &unique[0]
	}

	escaped := make([]string, len(unique))
	for i, name := range unique {
		escaped[i] = regexp.QuoteMeta(name)
	}

	pattern := "^(" + strings.Join(escaped, "|") + ")\\."

	return &pattern
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))

	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		unique = append(unique, n)
	}

	sort.Strings(unique)

	return unique
}
