package workdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pproenca/mutate4swift/internal/repository/workdir"
)

func setupSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()

	mustWrite(t, filepath.Join(src, "Package.swift"), "// swift-tools-version:5.9\n")
	mustMkdir(t, filepath.Join(src, "Sources", "Lib"))
	mustWrite(t, filepath.Join(src, "Sources", "Lib", "Widget.swift"), "struct Widget {}\n")
	mustMkdir(t, filepath.Join(src, ".build"))
	mustWrite(t, filepath.Join(src, ".build", "artifact.o"), "binary")
	mustMkdir(t, filepath.Join(src, ".git"))
	mustWrite(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main\n")

	return src
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

func TestGet_copiesSourceExcludingBuildArtifacts(t *testing.T) {
	src := setupSource(t)
	workRoot := t.TempDir()

	d := workdir.New(workRoot, src)

	dst, err := d.Get("worker-0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "Sources", "Lib", "Widget.swift")); err != nil {
		t.Fatalf("expected Widget.swift copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, ".build")); !os.IsNotExist(err) {
		t.Fatal(".build should not have been copied")
	}
	if _, err := os.Stat(filepath.Join(dst, ".git")); !os.IsNotExist(err) {
		t.Fatal(".git should not have been copied")
	}
}

func TestGet_isCachedByIdentifier(t *testing.T) {
	src := setupSource(t)
	workRoot := t.TempDir()
	d := workdir.New(workRoot, src)

	first, err := d.Get("worker-0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := d.Get("worker-0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if first != second {
		t.Fatalf("Get() returned different dirs for the same identifier: %q vs %q", first, second)
	}
}

func TestClean_removesAllWorkspaces(t *testing.T) {
	src := setupSource(t)
	workRoot := t.TempDir()
	d := workdir.New(workRoot, src)

	dst, err := d.Get("worker-0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	d.Clean()

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("Clean() did not remove the workspace directory")
	}
}
