package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pproenca/mutate4swift/internal/orchestrator"
	"github.com/pproenca/mutate4swift/internal/repository"
	"github.com/pproenca/mutate4swift/internal/testrunner"
)

// fixedRunner always reports the same outcome, so the baseline passes
// and every mutant survives; used to drive the merge/enumeration logic
// without depending on a real Swift toolchain.
type fixedRunner struct {
	mu    sync.Mutex
	calls int
}

func (f *fixedRunner) RunTests(context.Context, string, *string, time.Duration) (testrunner.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	return testrunner.Passed, nil
}

func setupPackage(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	mustWrite(t, filepath.Join(root, "Package.swift"), "// swift-tools-version:5.9\n")
	mustMkdir(t, filepath.Join(root, "Sources", "Lib"))
	mustWrite(t, filepath.Join(root, "Sources", "Lib", "A.swift"), "let x = a + b\n")
	mustWrite(t, filepath.Join(root, "Sources", "Lib", "B.swift"), "let y = c - d\n")
	mustMkdir(t, filepath.Join(root, "Sources", "Lib", "vendor"))
	mustWrite(t, filepath.Join(root, "Sources", "Lib", "vendor", "Skip.swift"), "let z = e * f\n")

	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestRun_serialEnumeratesAndExcludesVendor(t *testing.T) {
	root := setupPackage(t)
	runner := &fixedRunner{}

	r := &repository.Runner{
		TestRunner:         runner,
		Jobs:               1,
		OrchestratorConfig: orchestrator.Config{TimeoutMultiplier: 3},
	}

	report, err := r.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := report.FilesAnalyzed(); got != 2 {
		t.Fatalf("FilesAnalyzed() = %d, want 2 (vendor/ excluded)", got)
	}

	for _, fr := range report.FileReports {
		if filepath.Base(filepath.Dir(fr.SourceFile)) == "vendor" {
			t.Fatalf("vendor file leaked into the report: %s", fr.SourceFile)
		}
	}

	if _, err := os.Stat(filepath.Join(root, ".mutate4swift", "worktrees")); !os.IsNotExist(err) {
		t.Fatal("worktrees directory was not cleaned up")
	}
}

func TestRun_serialResultsSortedBySourcePath(t *testing.T) {
	root := setupPackage(t)
	runner := &fixedRunner{}

	r := &repository.Runner{
		TestRunner:         runner,
		Jobs:               1,
		OrchestratorConfig: orchestrator.Config{TimeoutMultiplier: 3},
	}

	report, err := r.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := 1; i < len(report.FileReports); i++ {
		if report.FileReports[i-1].SourceFile > report.FileReports[i].SourceFile {
			t.Fatalf("file reports not sorted: %q before %q", report.FileReports[i-1].SourceFile, report.FileReports[i].SourceFile)
		}
	}
}

func TestRun_parallelStaticMergesAllFiles(t *testing.T) {
	root := setupPackage(t)
	runner := &fixedRunner{}

	r := &repository.Runner{
		TestRunner:         runner,
		Jobs:               2,
		Scheduler:          repository.Static,
		OrchestratorConfig: orchestrator.Config{TimeoutMultiplier: 3},
	}

	report, err := r.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := report.FilesAnalyzed(); got != 2 {
		t.Fatalf("FilesAnalyzed() = %d, want 2", got)
	}
}

func TestRun_parallelDynamicMergesAllFiles(t *testing.T) {
	root := setupPackage(t)
	runner := &fixedRunner{}

	r := &repository.Runner{
		TestRunner:         runner,
		Jobs:               2,
		Scheduler:          repository.Dynamic,
		OrchestratorConfig: orchestrator.Config{TimeoutMultiplier: 3},
	}

	report, err := r.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := report.FilesAnalyzed(); got != 2 {
		t.Fatalf("FilesAnalyzed() = %d, want 2", got)
	}
}
