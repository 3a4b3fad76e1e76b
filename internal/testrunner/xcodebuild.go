package testrunner

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"
)

var xcodebuildMarkers = markers{
	zeroTests:     regexp.MustCompile(`Executed 0 tests?`),
	buildComplete: regexp.MustCompile(`\*\* BUILD SUCCEEDED \*\*`),
	buildError:    regexp.MustCompile(`\*\* BUILD FAILED \*\*`),
}

// XcodebuildRunner drives `xcodebuild test` against a project or
// workspace, the IDE-based runner alternative per spec.md §6.
type XcodebuildRunner struct {
	execContext execContext
	scheme      string
	destination string
}

// NewXcodebuildRunner creates an XcodebuildRunner for the given scheme
// and destination (e.g. "platform=iOS Simulator,name=iPhone 15").
func NewXcodebuildRunner(scheme, destination string) *XcodebuildRunner {
	return &XcodebuildRunner{
		execContext: exec.CommandContext,
		scheme:      scheme,
		destination: destination,
	}
}

// WithExecContext overrides the process starter, for tests.
func (r *XcodebuildRunner) WithExecContext(c execContext) *XcodebuildRunner {
	r.execContext = c

	return r
}

func (r *XcodebuildRunner) baseArgs(action string, filter *string) []string {
	args := []string{action, "-scheme", r.scheme, "-destination", r.destination}
	if filter != nil {
		args = append(args, fmt.Sprintf("-only-testing:%s", *filter))
	}

	return args
}

// RunTests implements TestRunner.
func (r *XcodebuildRunner) RunTests(_ context.Context, packagePath string, filter *string, timeout time.Duration) (Outcome, error) {
	result := runProcess(r.execContext, packagePath, "xcodebuild", r.baseArgs("test", filter), timeout)
	if result.err != nil {
		return Failed, result.err
	}

	return classify(result, xcodebuildMarkers), nil
}

// RunBuild implements the optional Builder capability.
func (r *XcodebuildRunner) RunBuild(_ context.Context, packagePath string, timeout time.Duration) (Outcome, error) {
	args := []string{"build-for-testing", "-scheme", r.scheme, "-destination", r.destination}

	result := runProcess(r.execContext, packagePath, "xcodebuild", args, timeout)
	if result.err != nil {
		return Failed, result.err
	}

	if result.timedOut {
		return TimedOut, nil
	}
	if result.exitErr != nil {
		return BuildError, nil
	}

	return Passed, nil
}

// RunTestsWithoutBuild implements the optional TestRunnerWithoutBuild
// capability via xcodebuild's test-without-building action.
func (r *XcodebuildRunner) RunTestsWithoutBuild(_ context.Context, packagePath string, filter *string, timeout time.Duration) (Outcome, error) {
	result := runProcess(r.execContext, packagePath, "xcodebuild", r.baseArgs("test-without-building", filter), timeout)
	if result.err != nil {
		return Failed, result.err
	}

	return classify(result, xcodebuildMarkers), nil
}
