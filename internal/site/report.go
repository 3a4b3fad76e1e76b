package site

import "encoding/json"

// MutationReport is the per-file outcome of running the orchestrator over
// one source file.
type MutationReport struct {
	SourceFile      string           `json:"sourceFile"`
	BaselineDuration float64         `json:"baselineDuration"`
	Results         []MutationResult `json:"results"`
}

// Killed returns the count of results classified as killed.
func (r MutationReport) Killed() int { return r.count(Killed) }

// Survived returns the count of results classified as survived.
func (r MutationReport) Survived() int { return r.count(Survived) }

// TimedOut returns the count of results classified as timeout.
func (r MutationReport) TimedOut() int { return r.count(Timeout) }

// BuildErrors returns the count of results classified as buildError.
func (r MutationReport) BuildErrors() int { return r.count(BuildError) }

// SkippedCount returns the count of results classified as skipped.
func (r MutationReport) SkippedCount() int { return r.count(Skipped) }

// TotalMutations is the number of results in the report.
func (r MutationReport) TotalMutations() int { return len(r.Results) }

// KillPercentage is (killed+timedOut) / max(1, killed+timedOut+survived) * 100.
// BuildErrors and skipped never enter the denominator. If the denominator
// is zero the result is 100.
func (r MutationReport) KillPercentage() float64 {
	killed, timedOut, survived := r.Killed(), r.TimedOut(), r.Survived()
	denom := killed + timedOut + survived
	if denom == 0 {
		return 100
	}

	return float64(killed+timedOut) / float64(denom) * 100
}

func (r MutationReport) count(o MutationOutcome) int {
	var n int
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}

	return n
}

// MarshalJSON emits the normative report keys, including the derived
// counters the wire format requires alongside the raw results.
func (r MutationReport) MarshalJSON() ([]byte, error) {
	type wire struct {
		SourceFile       string           `json:"sourceFile"`
		BaselineDuration float64          `json:"baselineDuration"`
		Results          []MutationResult `json:"results"`
		Killed           int              `json:"killed"`
		Survived         int              `json:"survived"`
		TimedOut         int              `json:"timedOut"`
		BuildErrors      int              `json:"buildErrors"`
		Skipped          int              `json:"skipped"`
		TotalMutations   int              `json:"totalMutations"`
		KillPercentage   float64          `json:"killPercentage"`
	}

	return json.Marshal(wire{
		SourceFile:       r.SourceFile,
		BaselineDuration: r.BaselineDuration,
		Results:          r.Results,
		Killed:           r.Killed(),
		Survived:         r.Survived(),
		TimedOut:         r.TimedOut(),
		BuildErrors:      r.BuildErrors(),
		Skipped:          r.SkippedCount(),
		TotalMutations:   r.TotalMutations(),
		KillPercentage:   r.KillPercentage(),
	})
}

// RepositoryReport aggregates MutationReport across an entire package.
type RepositoryReport struct {
	PackagePath string           `json:"packagePath"`
	FileReports []MutationReport `json:"fileReports"`
}

// FilesAnalyzed is the number of file reports in the repository report.
func (r RepositoryReport) FilesAnalyzed() int { return len(r.FileReports) }

// FilesWithSurvivors counts file reports with at least one survivor.
func (r RepositoryReport) FilesWithSurvivors() int {
	var n int
	for _, fr := range r.FileReports {
		if fr.Survived() > 0 {
			n++
		}
	}

	return n
}

// MarshalJSON emits the normative repository report keys, including the
// filesAnalyzed/filesWithSurvivors counters derived from fileReports.
func (r RepositoryReport) MarshalJSON() ([]byte, error) {
	type wire struct {
		PackagePath        string           `json:"packagePath"`
		FileReports        []MutationReport `json:"fileReports"`
		FilesAnalyzed      int              `json:"filesAnalyzed"`
		FilesWithSurvivors int              `json:"filesWithSurvivors"`
	}

	return json.Marshal(wire{
		PackagePath:        r.PackagePath,
		FileReports:        r.FileReports,
		FilesAnalyzed:      r.FilesAnalyzed(),
		FilesWithSurvivors: r.FilesWithSurvivors(),
	})
}

// BaselineResult is the timing envelope computed from a successful baseline
// test run: the measured duration, and the timeout allowed for subsequent
// per-mutant runs.
type BaselineResult struct {
	Duration float64
	Timeout  float64
}

// NewBaselineResult builds a BaselineResult honoring the invariant
// timeout = max(30, duration * timeoutMultiplier).
func NewBaselineResult(duration, timeoutMultiplier float64) BaselineResult {
	timeout := duration * timeoutMultiplier
	if timeout < 30 {
		timeout = 30
	}

	return BaselineResult{Duration: duration, Timeout: timeout}
}
