// Package orchestrator drives spec.md §4.7's single-file mutation loop:
// baseline, discovery, per-site apply/test/classify, restore. Its
// per-run state is linear (Initialized -> Baselined -> Mutating ->
// Completed) with error transitions to Aborted, and the build-first
// adaptive flag is a monotonic latch, per spec.md §9.
package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/pproenca/mutate4swift/internal/custodian"
	"github.com/pproenca/mutate4swift/internal/discovery"
	"github.com/pproenca/mutate4swift/internal/execution"
	"github.com/pproenca/mutate4swift/internal/site"
	"github.com/pproenca/mutate4swift/internal/testrunner"
)

// DefaultTimeoutMultiplier is used when Config.TimeoutMultiplier is left
// at its zero value.
const DefaultTimeoutMultiplier = 3.0

// Config bundles the tunables spec.md §4.7 names as Orchestrator input.
type Config struct {
	TimeoutMultiplier    float64
	TimeoutRetries       int
	BuildFirstSampleSize int
	BuildFirstErrorRatio float64
	Verbose              bool
}

// state is the Orchestrator's linear per-run state machine (spec.md §9).
type state int

const (
	stateInitialized state = iota
	stateBaselined
	stateMutating
	stateCompleted
	stateAborted
)

// Logf is the diagnostic sink an Orchestrator reports verbose progress
// through, silent by default.
type Logf func(format string, args ...interface{})

// Orchestrator runs the mutation loop for one source file against one
// TestRunner backend.
type Orchestrator struct {
	runner    testrunner.TestRunner
	custodian *custodian.FileCustodian
	coverage  testrunner.CoverageProvider
	cfg       Config
	logf      Logf
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithCoverage attaches an optional CoverageProvider: sites on uncovered
// lines are dropped from the per-mutant loop before it starts. A nil
// provider (the default) keeps every discovered site.
func WithCoverage(cp testrunner.CoverageProvider) Option {
	return func(o *Orchestrator) { o.coverage = cp }
}

// WithLogger overrides the verbose progress sink.
func WithLogger(logf Logf) Option {
	return func(o *Orchestrator) { o.logf = logf }
}

// WithCustodian overrides the FileCustodian, mainly for tests that want
// to observe or pre-seed backup state.
func WithCustodian(c *custodian.FileCustodian) Option {
	return func(o *Orchestrator) { o.custodian = c }
}

// New creates an Orchestrator driving runner with cfg.
func New(runner testrunner.TestRunner, cfg Config, opts ...Option) *Orchestrator {
	if cfg.TimeoutMultiplier <= 0 {
		cfg.TimeoutMultiplier = DefaultTimeoutMultiplier
	}
	if cfg.BuildFirstSampleSize <= 0 {
		cfg.BuildFirstSampleSize = 1
	}

	o := &Orchestrator{
		runner:    runner,
		custodian: custodian.New(),
		cfg:       cfg,
		logf:      func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run executes spec.md §4.7's protocol over sourceFile. filter is the
// optional test-scope pattern; lineAllowlist, if non-nil, restricts
// discovery to the listed 1-based line numbers; baselineOverride, if
// non-nil, skips the baseline test run entirely.
func (o *Orchestrator) Run(
	ctx context.Context,
	sourceFile, packagePath string,
	filter *string,
	lineAllowlist map[int]bool,
	baselineOverride *site.BaselineResult,
) (site.MutationReport, error) {
	st := stateInitialized

	// Guarantees spec.md §4.7 step 6: on every exit path from this point
	// on, including a panic unwinding through it, a backup left behind
	// by an aborted site is restored and removed.
	defer func() {
		if o.custodian.HasStaleBackup(sourceFile) {
			if _, err := o.custodian.RestoreIfNeeded(sourceFile); err != nil {
				o.logf("%s: cleanup restore failed: %v", sourceFile, err)
			}
		}
	}()

	if _, err := o.custodian.RestoreIfNeeded(sourceFile); err != nil {
		st = stateAborted

		return site.MutationReport{}, err
	}

	baseline, err := o.resolveBaseline(ctx, packagePath, filter, baselineOverride)
	if err != nil {
		st = stateAborted

		return site.MutationReport{}, err
	}
	st = stateBaselined

	source, err := os.ReadFile(sourceFile)
	if err != nil {
		st = stateAborted

		return site.MutationReport{}, &execution.SourceFileNotFound{Path: sourceFile}
	}

	sites, err := discovery.Discover(source, sourceFile)
	if err != nil {
		st = stateAborted

		return site.MutationReport{}, err
	}

	sites = filterByLineAllowlist(sites, lineAllowlist)
	sites = o.filterByCoverage(sites, sourceFile, packagePath)

	results := make([]site.MutationResult, 0, len(sites))
	var buildFirst buildFirstLatch

	st = stateMutating
	for _, s := range sites {
		outcome := o.runOneSite(ctx, sourceFile, packagePath, filter, baseline, s, buildFirst.active())
		buildFirst.observe(outcome, o.cfg.BuildFirstSampleSize, o.cfg.BuildFirstErrorRatio)

		if buildFirst.justLatched() {
			o.logf("%s: build-error ratio exceeded in the first %d mutants, switching to build-first mode", sourceFile, o.cfg.BuildFirstSampleSize)
		}

		results = append(results, site.MutationResult{Site: s, Outcome: outcome})
	}
	st = stateCompleted
	_ = st

	return site.MutationReport{
		SourceFile:       sourceFile,
		BaselineDuration: baseline.Duration,
		Results:          results,
	}, nil
}

func (o *Orchestrator) resolveBaseline(ctx context.Context, packagePath string, filter *string, override *site.BaselineResult) (site.BaselineResult, error) {
	if override != nil {
		return *override, nil
	}

	duration, err := testrunner.RunBaseline(ctx, o.runner, packagePath, filter)
	if err != nil {
		return site.BaselineResult{}, err
	}

	return site.NewBaselineResult(duration.Seconds(), o.cfg.TimeoutMultiplier), nil
}

func filterByLineAllowlist(sites []site.MutationSite, allow map[int]bool) []site.MutationSite {
	if allow == nil {
		return sites
	}

	kept := make([]site.MutationSite, 0, len(sites))
	for _, s := range sites {
		if allow[s.Line] {
			kept = append(kept, s)
		}
	}

	return kept
}

// filterByCoverage drops sites whose line is uncovered. A CoverageProvider
// error is non-fatal: every candidate site is kept (spec.md §4.7 step 4).
func (o *Orchestrator) filterByCoverage(sites []site.MutationSite, sourceFile, packagePath string) []site.MutationSite {
	if o.coverage == nil {
		return sites
	}

	covered, err := o.coverage.CoveredLines(sourceFile, packagePath)
	if err != nil {
		return sites
	}

	kept := make([]site.MutationSite, 0, len(sites))
	for _, s := range sites {
		if covered[s.Line] {
			kept = append(kept, s)
		}
	}

	return kept
}

// runOneSite implements spec.md §4.7 step 5: apply, run, classify,
// restore, with up to cfg.TimeoutRetries retries on a timeout outcome.
// Errors from the TestRunner for this one site are caught and classified
// buildError rather than propagated, per spec.md §7's propagation policy.
func (o *Orchestrator) runOneSite(
	ctx context.Context,
	sourceFile, packagePath string,
	filter *string,
	baseline site.BaselineResult,
	s site.MutationSite,
	buildFirst bool,
) site.MutationOutcome {
	original, err := o.custodian.Backup(sourceFile)
	if err != nil {
		o.logf("%s: backup failed: %v", sourceFile, err)

		return site.BuildError
	}

	mutated := custodian.Apply(original, s)
	if err := o.custodian.WriteMutated(sourceFile, mutated); err != nil {
		o.logf("%s: write failed: %v", sourceFile, err)

		return site.BuildError
	}

	outcome := o.classifySite(ctx, packagePath, filter, baseline, buildFirst)

	if err := o.custodian.Restore(sourceFile); err != nil {
		o.logf("%s: restore failed: %v", sourceFile, err)
	}

	return outcome
}

func (o *Orchestrator) classifySite(
	ctx context.Context,
	packagePath string,
	filter *string,
	baseline site.BaselineResult,
	buildFirst bool,
) site.MutationOutcome {
	timeout := time.Duration(baseline.Timeout * float64(time.Second))

	if buildFirst {
		builder, ok := o.runner.(testrunner.Builder)
		if ok {
			result, err := builder.RunBuild(ctx, packagePath, timeout)
			if err != nil {
				return site.BuildError
			}
			if result == testrunner.BuildError {
				return site.BuildError
			}

			return o.runWithRetry(ctx, func(c context.Context, t time.Duration) (testrunner.Outcome, error) {
				if wb, ok := o.runner.(testrunner.TestRunnerWithoutBuild); ok {
					return wb.RunTestsWithoutBuild(c, packagePath, filter, t)
				}

				return o.runner.RunTests(c, packagePath, filter, t)
			}, timeout)
		}
	}

	return o.runWithRetry(ctx, func(c context.Context, t time.Duration) (testrunner.Outcome, error) {
		return o.runner.RunTests(c, packagePath, filter, t)
	}, timeout)
}

// runWithRetry runs invoke once, retrying up to cfg.TimeoutRetries times
// with the same timeout when the outcome is a timeout, per spec.md §4.7
// step 5d.
func (o *Orchestrator) runWithRetry(
	ctx context.Context,
	invoke func(context.Context, time.Duration) (testrunner.Outcome, error),
	timeout time.Duration,
) site.MutationOutcome {
	attempts := o.cfg.TimeoutRetries + 1

	var last testrunner.Outcome
	for i := 0; i < attempts; i++ {
		outcome, err := invoke(ctx, timeout)
		if err != nil {
			return site.BuildError
		}
		last = outcome
		if outcome != testrunner.TimedOut {
			break
		}
	}

	return toMutationOutcome(last)
}

func toMutationOutcome(o testrunner.Outcome) site.MutationOutcome {
	switch o {
	case testrunner.Passed:
		return site.Survived
	case testrunner.Failed:
		return site.Killed
	case testrunner.BuildError:
		return site.BuildError
	case testrunner.NoTests:
		return site.Skipped
	case testrunner.TimedOut:
		return site.Timeout
	default:
		return site.BuildError
	}
}

// buildFirstLatch tracks spec.md §4.7 step 5b's adaptive build-first
// switch: once the observed buildError ratio among the first
// sampleSize mutants exceeds the configured ratio, it stays on for the
// rest of the file's run.
type buildFirstLatch struct {
	seen       int
	buildErrs  int
	on         bool
	justTurned bool
}

func (l *buildFirstLatch) active() bool { return l.on }

func (l *buildFirstLatch) justLatched() bool {
	j := l.justTurned
	l.justTurned = false

	return j
}

func (l *buildFirstLatch) observe(outcome site.MutationOutcome, sampleSize int, ratio float64) {
	if l.on {
		return
	}
	if l.seen >= sampleSize {
		return
	}

	l.seen++
	if outcome == site.BuildError {
		l.buildErrs++
	}

	if float64(l.buildErrs) > ratio*float64(sampleSize) {
		l.on = true
		l.justTurned = true
	}
}
