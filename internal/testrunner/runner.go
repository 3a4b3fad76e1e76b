// Package testrunner adapts external build/test backends (SwiftPM,
// xcodebuild, llvm-cov) behind the narrow capability interfaces the
// Orchestrator dispatches against, per spec.md §6.
package testrunner

import (
	"context"
	"time"

	"github.com/pproenca/mutate4swift/internal/execution"
)

// Outcome is the classification of one test/build invocation.
type Outcome string

const (
	Passed     Outcome = "passed"
	Failed     Outcome = "failed"
	NoTests    Outcome = "noTests"
	TimedOut   Outcome = "timeout"
	BuildError Outcome = "buildError"
)

// TestRunner is the capability the Orchestrator always has available.
type TestRunner interface {
	// RunTests builds and runs the package's tests, optionally narrowed
	// by filter, bounded by timeout.
	RunTests(ctx context.Context, packagePath string, filter *string, timeout time.Duration) (Outcome, error)
}

// Builder is an optional capability, detected by type assertion, that
// enables build-first adaptive mode: a compile-only pass with no test
// execution.
type Builder interface {
	RunBuild(ctx context.Context, packagePath string, timeout time.Duration) (Outcome, error)
}

// TestRunnerWithoutBuild is the companion optional capability to
// Builder: it runs tests against an already-built binary without
// triggering a fresh build.
type TestRunnerWithoutBuild interface {
	RunTestsWithoutBuild(ctx context.Context, packagePath string, filter *string, timeout time.Duration) (Outcome, error)
}

// CoverageProvider resolves the set of covered lines for one source
// file. Errors are recoverable: a caller treats them as "coverage
// unavailable" and keeps every candidate site.
type CoverageProvider interface {
	CoveredLines(filePath, packagePath string) (map[int]bool, error)
}

// baselineTimeout is the fixed ceiling for a baseline run, per spec.md
// §4.7 step 2.
const baselineTimeout = 600 * time.Second

// RunBaseline runs runner's full test suite once with the fixed
// baseline timeout and returns its duration. A non-passed outcome
// surfaces as ErrBaselineTestsFailed, or NoTestsExecuted when the
// backend reports zero tests ran.
func RunBaseline(ctx context.Context, runner TestRunner, packagePath string, filter *string) (time.Duration, error) {
	start := time.Now()

	outcome, err := runner.RunTests(ctx, packagePath, filter, baselineTimeout)
	if err != nil {
		return 0, err
	}

	switch outcome {
	case Passed:
		return time.Since(start), nil
	case NoTests:
		f := ""
		if filter != nil {
			f = *filter
		}

		return 0, &execution.NoTestsExecuted{Filter: f}
	default:
		return 0, execution.ErrBaselineTestsFailed
	}
}
