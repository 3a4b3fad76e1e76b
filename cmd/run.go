/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pproenca/mutate4swift/cmd/internal/flags"
	"github.com/pproenca/mutate4swift/internal/configuration"
	"github.com/pproenca/mutate4swift/internal/diffscope"
	"github.com/pproenca/mutate4swift/internal/execution"
	"github.com/pproenca/mutate4swift/internal/exclusion"
	"github.com/pproenca/mutate4swift/internal/log"
	"github.com/pproenca/mutate4swift/internal/orchestrator"
	"github.com/pproenca/mutate4swift/internal/packagemanifest"
	"github.com/pproenca/mutate4swift/internal/repository"
	"github.com/pproenca/mutate4swift/internal/report"
	"github.com/pproenca/mutate4swift/internal/site"
	"github.com/pproenca/mutate4swift/internal/testrunner"
	"github.com/pproenca/mutate4swift/internal/testrunner/llvmcov"
)

type runCmd struct {
	cmd *cobra.Command
}

const (
	commandName = "run"

	paramAll                     = "all"
	paramFilter                  = "filter"
	paramWorkers                 = "workers"
	paramScheduler               = "scheduler"
	paramRunner                  = "runner"
	paramXcodeScheme             = "xcode-scheme"
	paramXcodeDestination        = "xcode-destination"
	paramDiffRef                 = "diff-ref"
	paramRequireCleanTree        = "require-clean-working-tree"
	paramOutput                  = "output"
	paramFormat                  = "format"
	paramTimeoutCoefficient      = "timeout-coefficient"
	paramTimeoutRetries          = "timeout-retries"
	paramBuildFirstSampleSize    = "build-first-sample-size"
	paramBuildFirstErrorRatio    = "build-first-error-ratio"
	paramThresholdBuildErrorRate = "threshold-build-error-ratio"
	paramExcludeFiles            = "exclude-files"

	runnerSwiftPM    = "swiftpm"
	runnerXcodebuild = "xcodebuild"
)

func newRunCmd(ctx context.Context) (*runCmd, error) {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [path]", commandName),
		Args:  cobra.MaximumNArgs(1),
		Short: "Run mutation testing on a Swift package",
		Long:  longExplainer(),
		RunE:  runRun(ctx),
	}

	if err := setRunFlags(cmd); err != nil {
		return nil, err
	}

	return &runCmd{cmd: cmd}, nil
}

func longExplainer() string {
	return heredoc.Doc(`
		Seeds mutations into a Swift package's source and reruns its test suite
		for each one, reporting any mutant the tests failed to catch.

		Pass a single source file to mutate only that file, or a package path
		(or --all) to mutate every file under Sources/.
	`)
}

func setRunFlags(cmd *cobra.Command) error {
	cmd.Flags().SortFlags = false
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		name = strings.ReplaceAll(name, "_", "-")

		return pflag.NormalizedName(name)
	})

	fls := []*flags.Flag{
		{Name: paramAll, CfgKey: configuration.RunAllKey, Shorthand: "a", DefaultV: false, Usage: "mutate every source file under the package, not just the given path"},
		{Name: paramFilter, CfgKey: configuration.RunFilterKey, DefaultV: "", Usage: "override test-scope resolution with a fixed test filter"},
		{Name: paramWorkers, CfgKey: configuration.RunWorkersKey, Shorthand: "w", DefaultV: runtime.NumCPU(), Usage: "the number of parallel workers to use"},
		{Name: paramScheduler, CfgKey: configuration.RunSchedulerKey, DefaultV: string(repository.Dynamic), Usage: "scheduling mode for parallel runs: static or dynamic"},
		{Name: paramRunner, CfgKey: configuration.RunRunnerKey, DefaultV: runnerSwiftPM, Usage: "test backend: swiftpm or xcodebuild"},
		{Name: paramXcodeScheme, CfgKey: configuration.RunXcodeSchemeKey, DefaultV: "", Usage: "xcodebuild scheme (required when --runner=xcodebuild)"},
		{Name: paramXcodeDestination, CfgKey: configuration.RunXcodeDestinationKey, DefaultV: "", Usage: "xcodebuild destination (required when --runner=xcodebuild)"},
		{Name: paramDiffRef, CfgKey: configuration.RunDiffRefKey, DefaultV: "", Usage: "restrict mutation to lines changed versus this git ref"},
		{Name: paramRequireCleanTree, CfgKey: configuration.RunRequireCleanTreeKey, DefaultV: false, Usage: "abort if the working tree has uncommitted changes"},
		{Name: paramOutput, CfgKey: configuration.RunOutputKey, Shorthand: "o", DefaultV: "", Usage: "write the report to this file instead of stdout"},
		{Name: paramFormat, CfgKey: configuration.RunFormatKey, DefaultV: string(report.Text), Usage: "report format: text or json"},
		{Name: paramTimeoutCoefficient, CfgKey: configuration.RunTimeoutCoefficientKey, DefaultV: orchestrator.DefaultTimeoutMultiplier, Usage: "multiplier applied to the baseline duration to derive the per-mutant timeout"},
		{Name: paramTimeoutRetries, CfgKey: configuration.RunTimeoutRetriesKey, DefaultV: 0, Usage: "number of retries for a mutant that times out before classifying it"},
		{Name: paramBuildFirstSampleSize, CfgKey: configuration.RunBuildFirstSampleKey, DefaultV: 1, Usage: "number of mutants sampled before considering the adaptive build-first mode"},
		{Name: paramBuildFirstErrorRatio, CfgKey: configuration.RunBuildFirstRatioKey, DefaultV: float64(0), Usage: "build-error ratio in the sample above which build-first mode latches on"},
		{Name: paramThresholdBuildErrorRate, CfgKey: configuration.RunThresholdBuildErrorKey, DefaultV: float64(0), Usage: "abort with a distinguished exit code if the observed build-error ratio exceeds this value (0 disables the check)"},
		{Name: paramExcludeFiles, CfgKey: configuration.RunExcludeFilesKey, DefaultV: "", Usage: "whitespace-separated regex patterns of paths to exclude, overriding the default {generated,vendor,pods,carthage} set"},
	}

	for _, f := range fls {
		if err := flags.Set(cmd, f); err != nil {
			return err
		}
	}

	return nil
}

func runRun(ctx context.Context) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log.Infoln("Starting...")

		path, _ := os.Getwd()
		if len(args) > 0 {
			path = args[0]
		}

		if configuration.Get[bool](configuration.RunRequireCleanTreeKey) {
			if err := checkCleanWorkingTree(path); err != nil {
				return err
			}
		}

		pkg, err := packagemanifest.Init(path)
		if err != nil {
			return err
		}

		runner, err := buildTestRunner()
		if err != nil {
			return err
		}
		coverage := llvmcov.NewProvider()

		var rep site.RepositoryReport
		wg := &sync.WaitGroup{}
		wg.Add(1)
		var cancelled bool
		go runWithCancel(ctx, wg, func(c context.Context) {
			rep, err = runMutationPass(c, pkg, path, runner, coverage)
		}, func() {
			cancelled = true
		})
		wg.Wait()
		if err != nil {
			return err
		}
		if cancelled {
			return nil
		}

		return renderAndCheck(rep)
	}
}

func runMutationPass(
	ctx context.Context,
	pkg packagemanifest.Package,
	path string,
	runner testrunner.TestRunner,
	coverage testrunner.CoverageProvider,
) (site.RepositoryReport, error) {
	if !configuration.Get[bool](configuration.RunAllKey) && strings.HasSuffix(pkg.CallingDir, ".swift") {
		return runSingleFile(ctx, pkg, runner, coverage)
	}

	return runRepository(ctx, pkg, runner, coverage)
}

func runSingleFile(
	ctx context.Context,
	pkg packagemanifest.Package,
	runner testrunner.TestRunner,
	coverage testrunner.CoverageProvider,
) (site.RepositoryReport, error) {
	sourceFile := filepath.Join(pkg.Root, pkg.CallingDir)

	allow, err := diffAllowlist(sourceFile)
	if err != nil {
		return site.RepositoryReport{}, err
	}

	var filter *string
	if f := configuration.Get[string](configuration.RunFilterKey); f != "" {
		filter = &f
	}

	orch := orchestrator.New(runner, orchestratorConfig(), orchestrator.WithCoverage(coverage))

	fileReport, err := orch.Run(ctx, sourceFile, pkg.Root, filter, allow, nil)
	if err != nil {
		return site.RepositoryReport{}, err
	}

	return site.RepositoryReport{
		PackagePath: pkg.Root,
		FileReports: []site.MutationReport{fileReport},
	}, nil
}

func runRepository(
	ctx context.Context,
	pkg packagemanifest.Package,
	runner testrunner.TestRunner,
	coverage testrunner.CoverageProvider,
) (site.RepositoryReport, error) {
	exclude, err := exclusion.New()
	if err != nil {
		return site.RepositoryReport{}, err
	}

	var filter *string
	if f := configuration.Get[string](configuration.RunFilterKey); f != "" {
		filter = &f
	}

	r := &repository.Runner{
		TestRunner:         runner,
		Coverage:           coverage,
		Exclude:            exclude,
		Jobs:               configuration.Get[int](configuration.RunWorkersKey),
		Scheduler:          repository.Scheduler(configuration.Get[string](configuration.RunSchedulerKey)),
		Filter:             filter,
		OrchestratorConfig: orchestratorConfig(),
		Logf:               log.Infof,
	}

	return r.Run(ctx, pkg.Root)
}

func orchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		TimeoutMultiplier:    configuration.Get[float64](configuration.RunTimeoutCoefficientKey),
		TimeoutRetries:       configuration.Get[int](configuration.RunTimeoutRetriesKey),
		BuildFirstSampleSize: configuration.Get[int](configuration.RunBuildFirstSampleKey),
		BuildFirstErrorRatio: configuration.Get[float64](configuration.RunBuildFirstRatioKey),
	}
}

func buildTestRunner() (testrunner.TestRunner, error) {
	switch configuration.Get[string](configuration.RunRunnerKey) {
	case runnerXcodebuild:
		scheme := configuration.Get[string](configuration.RunXcodeSchemeKey)
		destination := configuration.Get[string](configuration.RunXcodeDestinationKey)
		if scheme == "" || destination == "" {
			return nil, fmt.Errorf("--%s and --%s are required when --%s=%s", paramXcodeScheme, paramXcodeDestination, paramRunner, runnerXcodebuild)
		}

		return testrunner.NewXcodebuildRunner(scheme, destination), nil
	default:
		return testrunner.NewSwiftPMRunner(), nil
	}
}

// diffAllowlist implements the --diff-ref incremental mode for a single
// source file: the orchestrator's line allowlist is built from lines
// git reports as changed since the given ref.
func diffAllowlist(sourceFile string) (map[int]bool, error) {
	diffRef := configuration.Get[string](configuration.RunDiffRefKey)
	if diffRef == "" {
		return nil, nil
	}

	diff, err := diffscope.New()
	if err != nil {
		return nil, err
	}
	if diff == nil {
		return nil, nil
	}

	if resolved, err := filepath.EvalSymlinks(sourceFile); err == nil {
		sourceFile = resolved
	}
	top, err := exec.Command("git", "-C", filepath.Dir(sourceFile), "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return nil, fmt.Errorf("locating repository root: %w", err)
	}
	relPath, err := filepath.Rel(strings.TrimSpace(string(top)), sourceFile)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, err
	}
	lineCount := strings.Count(string(content), "\n") + 1

	allow := map[int]bool{}
	for line := 1; line <= lineCount; line++ {
		if diff.IsChanged(filepath.ToSlash(relPath), line) {
			allow[line] = true
		}
	}

	return allow, nil
}

func checkCleanWorkingTree(path string) error {
	out, err := exec.Command("git", "-C", path, "status", "--porcelain").CombinedOutput()
	if err != nil {
		return fmt.Errorf("checking working tree status: %w", err)
	}
	if strings.TrimSpace(string(out)) != "" {
		return execution.NewExitErr(execution.WorkingTreeDirtyExit)
	}

	return nil
}

// renderAndCheck writes the report in the configured format and turns
// survivors, or an exceeded build-error budget, into the process's exit
// status per spec.md §6/§7.
func renderAndCheck(rep site.RepositoryReport) error {
	out := os.Stdout
	if path := configuration.Get[string](configuration.RunOutputKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if err := writeReport(f, rep); err != nil {
			return err
		}
	} else if err := writeReport(out, rep); err != nil {
		return err
	}

	if err := checkBuildErrorBudget(rep); err != nil {
		return err
	}

	if survivors(rep) > 0 {
		return fmt.Errorf("%d mutant(s) survived", survivors(rep))
	}

	return nil
}

func writeReport(w *os.File, rep site.RepositoryReport) error {
	if report.Mode(configuration.Get[string](configuration.RunFormatKey)) == report.JSON {
		return report.WriteJSON(w, rep)
	}

	_, err := fmt.Fprint(w, report.Summary(rep, 0))

	return err
}

func survivors(rep site.RepositoryReport) int {
	var n int
	for _, fr := range rep.FileReports {
		n += fr.Survived()
	}

	return n
}

func checkBuildErrorBudget(rep site.RepositoryReport) error {
	limit := configuration.Get[float64](configuration.RunThresholdBuildErrorKey)
	if limit <= 0 {
		return nil
	}

	var buildErrs, total int
	for _, fr := range rep.FileReports {
		buildErrs += fr.BuildErrors()
		total += fr.TotalMutations()
	}
	if total == 0 {
		return nil
	}

	ratio := float64(buildErrs) / float64(total)
	if ratio > limit {
		log.Errorln(&execution.BuildErrorRatioExceeded{Actual: ratio, Limit: limit})

		return execution.NewExitErr(execution.BuildErrorRatioExceededExit)
	}

	return nil
}

func runWithCancel(ctx context.Context, wg *sync.WaitGroup, runner func(c context.Context), onCancel func()) {
	c, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		log.Infof("\nShutting down gracefully...\n")
		cancel()
		onCancel()
	}()
	runner(c)
	wg.Done()
}
