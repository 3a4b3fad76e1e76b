package testrunner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pproenca/mutate4swift/internal/execution"
	"github.com/pproenca/mutate4swift/internal/testrunner"
)

type stubRunner struct {
	outcome testrunner.Outcome
	err     error
}

func (s stubRunner) RunTests(context.Context, string, *string, time.Duration) (testrunner.Outcome, error) {
	return s.outcome, s.err
}

func TestRunBaseline_passed(t *testing.T) {
	d, err := testrunner.RunBaseline(context.Background(), stubRunner{outcome: testrunner.Passed}, "/pkg", nil)
	if err != nil {
		t.Fatalf("RunBaseline() error = %v", err)
	}
	if d < 0 {
		t.Errorf("RunBaseline() duration = %v, want >= 0", d)
	}
}

func TestRunBaseline_noTests(t *testing.T) {
	filter := "FooTests"

	_, err := testrunner.RunBaseline(context.Background(), stubRunner{outcome: testrunner.NoTests}, "/pkg", &filter)
	var noTests *execution.NoTestsExecuted
	if !errors.As(err, &noTests) {
		t.Fatalf("RunBaseline() error = %v, want *execution.NoTestsExecuted", err)
	}
	if noTests.Filter != "FooTests" {
		t.Errorf("NoTestsExecuted.Filter = %q, want FooTests", noTests.Filter)
	}
}

func TestRunBaseline_failedSurfacesBaselineError(t *testing.T) {
	_, err := testrunner.RunBaseline(context.Background(), stubRunner{outcome: testrunner.Failed}, "/pkg", nil)
	if !errors.Is(err, execution.ErrBaselineTestsFailed) {
		t.Fatalf("RunBaseline() error = %v, want ErrBaselineTestsFailed", err)
	}
}

func TestRunBaseline_propagatesRunnerError(t *testing.T) {
	boom := errors.New("boom")

	_, err := testrunner.RunBaseline(context.Background(), stubRunner{err: boom}, "/pkg", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("RunBaseline() error = %v, want %v", err, boom)
	}
}
