// Package repository implements spec.md §4.8's RepositoryRunner: it
// enumerates a package's source files, spawns isolated worker
// workspaces, drives either a serial loop or the static/dynamic
// scheduler over the Orchestrator, and merges the results into one
// RepositoryReport.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pproenca/mutate4swift/internal/discovery"
	"github.com/pproenca/mutate4swift/internal/exclusion"
	"github.com/pproenca/mutate4swift/internal/orchestrator"
	"github.com/pproenca/mutate4swift/internal/planner"
	"github.com/pproenca/mutate4swift/internal/repository/workdir"
	"github.com/pproenca/mutate4swift/internal/scope"
	"github.com/pproenca/mutate4swift/internal/site"
	"github.com/pproenca/mutate4swift/internal/testrunner"
	"github.com/pproenca/mutate4swift/internal/workqueue"
)

// defaultExclusionRules compiles exclusion.DefaultExcludedDirs directly,
// for callers that leave Runner.Exclude unset rather than going through
// the viper-backed exclusion.New.
func defaultExclusionRules() exclusion.Rules {
	rules := make(exclusion.Rules, 0, len(exclusion.DefaultExcludedDirs))
	for _, pattern := range exclusion.DefaultExcludedDirs {
		rules = append(rules, regexp.MustCompile(pattern))
	}

	return rules
}

// Scheduler selects how a parallel run distributes workloads across
// workers, per spec.md §4.8 step 3.
type Scheduler string

const (
	// Static seeds each worker's bucket once and never rebalances.
	Static Scheduler = "static"
	// Dynamic drains buckets through the WorkQueue, letting idle
	// workers steal from a busier one.
	Dynamic Scheduler = "dynamic"
)

// worktreesDir is where per-worker workspace copies live, per spec.md
// §6's "Persisted artifacts" list.
const worktreesDir = ".mutate4swift/worktrees"

// Logf is the diagnostic sink a Runner reports progress through.
type Logf func(format string, args ...interface{})

// Runner drives a repository-wide mutation testing pass.
type Runner struct {
	TestRunner testrunner.TestRunner
	Coverage   testrunner.CoverageProvider
	Scope      *scope.Resolver
	Exclude    exclusion.Rules

	Jobs      int
	Scheduler Scheduler
	Filter    *string
	Allowlist map[string]map[int]bool

	OrchestratorConfig orchestrator.Config
	Logf               Logf
}

// Run executes spec.md §4.8's protocol against the package rooted at
// packagePath.
func (r *Runner) Run(ctx context.Context, packagePath string) (site.RepositoryReport, error) {
	logf := r.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	files, err := r.enumerate(packagePath)
	if err != nil {
		return site.RepositoryReport{}, err
	}

	workRoot := filepath.Join(packagePath, worktreesDir)
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return site.RepositoryReport{}, fmt.Errorf("creating worktree root: %w", err)
	}
	defer os.RemoveAll(workRoot)

	jobs := r.Jobs
	if jobs <= 1 {
		return r.runSerial(ctx, packagePath, workRoot, files, logf)
	}

	plan, err := r.buildPlan(files, packagePath, jobs)
	if err != nil {
		return site.RepositoryReport{}, err
	}
	if plan.JobsPlanned <= 1 {
		return r.runSerial(ctx, packagePath, workRoot, files, logf)
	}

	switch r.Scheduler {
	case Dynamic:
		return r.runDynamic(ctx, packagePath, workRoot, plan, logf)
	default:
		return r.runStatic(ctx, packagePath, workRoot, plan, logf)
	}
}

// enumerate implements spec.md §4.8 step 1: sorted *.swift paths under
// Sources/, excluding stray backup siblings and any excluded directory.
func (r *Runner) enumerate(packagePath string) ([]string, error) {
	root := filepath.Join(packagePath, "Sources")

	exclude := r.Exclude
	if exclude == nil {
		exclude = defaultExclusionRules()
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}

			return err
		}
		if info.IsDir() {
			if exclude.IsFileExcluded(info.Name()) {
				return filepath.SkipDir
			}

			return nil
		}
		if strings.HasSuffix(path, ".backup") || !strings.HasSuffix(path, ".swift") {
			return nil
		}
		if exclude.IsFileExcluded(path) {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}

func (r *Runner) buildPlan(files []string, packagePath string, jobs int) (site.StrategyPlan, error) {
	pl := planner.New()

	discoverFn := func(file string) ([]site.MutationSite, error) {
		source, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		return discovery.Discover(source, file)
	}

	var resolveFn planner.ScopeResolveFunc
	if r.Scope != nil {
		resolveFn = func(file string) (*string, error) {
			info, err := os.Stat(file)
			if err != nil {
				return nil, err
			}

			return r.Scope.Resolve(packagePath, file, info.ModTime())
		}
	}

	var coverageFn planner.CoverageFunc
	if r.Coverage != nil {
		coverageFn = func(file string) (map[int]bool, error) {
			return r.Coverage.CoveredLines(file, packagePath)
		}
	}

	return pl.Plan(files, packagePath, r.Filter, jobs, discoverFn, resolveFn, coverageFn)
}

// runSerial implements spec.md §4.8 step 2.
func (r *Runner) runSerial(ctx context.Context, packagePath, workRoot string, files []string, logf Logf) (site.RepositoryReport, error) {
	dealer := workdir.New(workRoot, packagePath)
	defer dealer.Clean()

	wsRoot, err := dealer.Get("serial")
	if err != nil {
		return site.RepositoryReport{}, err
	}

	orch := r.newOrchestrator(logf)
	baselines := map[string]site.BaselineResult{}

	var reports []site.MutationReport
	for _, file := range files {
		filter, err := r.resolveFilter(packagePath, file)
		if err != nil {
			return site.RepositoryReport{}, err
		}

		wsFile, err := workspacePath(wsRoot, packagePath, file)
		if err != nil {
			return site.RepositoryReport{}, err
		}

		allow := r.allowlistFor(file)

		scopeKey := scopeKeyOf(filter)
		baseline, hasBaseline := baselines[scopeKey]
		var override *site.BaselineResult
		if hasBaseline {
			override = &baseline
		}

		report, err := orch.Run(ctx, wsFile, wsRoot, filter, allow, override)
		if err != nil {
			return site.RepositoryReport{}, err
		}
		report.SourceFile = file

		if !hasBaseline {
			baselines[scopeKey] = site.NewBaselineResult(report.BaselineDuration, r.OrchestratorConfig.TimeoutMultiplier)
		}

		reports = append(reports, report)

		if ctx.Err() != nil {
			break
		}
	}

	return mergeReports(packagePath, reports), nil
}

// runStatic implements spec.md §4.8 step 3's static mode: every worker
// drains the bucket the Planner seeded it with, never rebalancing.
func (r *Runner) runStatic(ctx context.Context, packagePath, workRoot string, plan site.StrategyPlan, logf Logf) (site.RepositoryReport, error) {
	return r.runParallel(ctx, packagePath, workRoot, plan.JobsPlanned, logf, func(workerIndex int) []site.MutationWorkload {
		for _, b := range plan.Buckets {
			if b.WorkerIndex == workerIndex {
				return b.Workloads
			}
		}

		return nil
	})
}

// runDynamic implements spec.md §4.8 step 3's dynamic mode: each worker
// pulls from the shared WorkQueue, stealing from a busier peer per
// spec.md §4.5 once its own seeded tiers run dry.
func (r *Runner) runDynamic(ctx context.Context, packagePath, workRoot string, plan site.StrategyPlan, logf Logf) (site.RepositoryReport, error) {
	queue := workqueue.New(plan)

	var reportsMu sync.Mutex
	var reports []site.MutationReport

	var wg sync.WaitGroup
	errs := make([]error, plan.JobsPlanned)

	for w := 0; w < plan.JobsPlanned; w++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()

			dealer := workdir.New(workRoot, packagePath)
			defer dealer.Clean()

			wsRoot, err := dealer.Get(fmt.Sprintf("worker-%d", workerIndex))
			if err != nil {
				errs[workerIndex] = err

				return
			}

			orch := r.newOrchestrator(logf)
			baselines := map[string]site.BaselineResult{}
			warmed := map[string]bool{}

			for {
				if ctx.Err() != nil {
					return
				}

				workload, ok := queue.Next(workerIndex, warmed)
				if !ok {
					return
				}
				warmed[workload.ScopeKey()] = true

				report, err := r.runWorkload(ctx, orch, wsRoot, packagePath, *workload, baselines)
				if err != nil {
					errs[workerIndex] = err

					return
				}

				reportsMu.Lock()
				reports = append(reports, report)
				reportsMu.Unlock()
			}
		}(w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return site.RepositoryReport{}, err
		}
	}

	return mergeReports(packagePath, reports), nil
}

// runParallel is the shared body of the static scheduler: each worker
// has a fixed list of workloads decided up front by bucketFor.
func (r *Runner) runParallel(
	ctx context.Context,
	packagePath, workRoot string,
	jobsPlanned int,
	logf Logf,
	bucketFor func(workerIndex int) []site.MutationWorkload,
) (site.RepositoryReport, error) {
	var reportsMu sync.Mutex
	var reports []site.MutationReport

	var wg sync.WaitGroup
	errs := make([]error, jobsPlanned)

	for w := 0; w < jobsPlanned; w++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()

			dealer := workdir.New(workRoot, packagePath)
			defer dealer.Clean()

			wsRoot, err := dealer.Get(fmt.Sprintf("worker-%d", workerIndex))
			if err != nil {
				errs[workerIndex] = err

				return
			}

			orch := r.newOrchestrator(logf)
			baselines := map[string]site.BaselineResult{}

			for _, workload := range bucketFor(workerIndex) {
				if ctx.Err() != nil {
					return
				}

				report, err := r.runWorkload(ctx, orch, wsRoot, packagePath, workload, baselines)
				if err != nil {
					errs[workerIndex] = err

					return
				}

				reportsMu.Lock()
				reports = append(reports, report)
				reportsMu.Unlock()
			}
		}(w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return site.RepositoryReport{}, err
		}
	}

	return mergeReports(packagePath, reports), nil
}

// runWorkload runs one MutationWorkload against wsRoot, caching the
// worker-local baseline by scopeKey per spec.md §4.8 step 4.
func (r *Runner) runWorkload(
	ctx context.Context,
	orch *orchestrator.Orchestrator,
	wsRoot, packagePath string,
	workload site.MutationWorkload,
	baselines map[string]site.BaselineResult,
) (site.MutationReport, error) {
	wsFile, err := workspacePath(wsRoot, packagePath, workload.SourceFile)
	if err != nil {
		return site.MutationReport{}, err
	}

	scopeKey := workload.ScopeKey()
	baseline, hasBaseline := baselines[scopeKey]
	var override *site.BaselineResult
	if hasBaseline {
		override = &baseline
	}

	allow := r.allowlistFor(workload.SourceFile)

	report, err := orch.Run(ctx, wsFile, wsRoot, workload.ScopeFilter, allow, override)
	if err != nil {
		return site.MutationReport{}, err
	}
	report.SourceFile = workload.SourceFile

	if !hasBaseline {
		baselines[scopeKey] = site.NewBaselineResult(report.BaselineDuration, r.OrchestratorConfig.TimeoutMultiplier)
	}

	return report, nil
}

func (r *Runner) newOrchestrator(logf Logf) *orchestrator.Orchestrator {
	var opts []orchestrator.Option
	if r.Coverage != nil {
		opts = append(opts, orchestrator.WithCoverage(r.Coverage))
	}
	opts = append(opts, orchestrator.WithLogger(orchestrator.Logf(logf)))

	return orchestrator.New(r.TestRunner, r.OrchestratorConfig, opts...)
}

func (r *Runner) resolveFilter(packagePath, file string) (*string, error) {
	if r.Filter != nil {
		return r.Filter, nil
	}
	if r.Scope == nil {
		return nil, nil
	}

	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}

	return r.Scope.Resolve(packagePath, file, info.ModTime())
}

func (r *Runner) allowlistFor(file string) map[int]bool {
	if r.Allowlist == nil {
		return nil
	}

	return r.Allowlist[file]
}

func scopeKeyOf(filter *string) string {
	if filter == nil {
		return "__all_tests__"
	}

	return *filter
}

// workspacePath maps an original-tree path to its copy under a worker's
// workspace root.
func workspacePath(wsRoot, packagePath, file string) (string, error) {
	rel, err := filepath.Rel(packagePath, file)
	if err != nil {
		return "", err
	}

	return filepath.Join(wsRoot, rel), nil
}

// mergeReports implements spec.md §4.8 step 5: sort by source path and
// aggregate into one RepositoryReport.
func mergeReports(packagePath string, reports []site.MutationReport) site.RepositoryReport {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SourceFile < reports[j].SourceFile
	})

	return site.RepositoryReport{
		PackagePath: packagePath,
		FileReports: reports,
	}
}
