package planner_test

import (
	"testing"

	"github.com/pproenca/mutate4swift/internal/planner"
	"github.com/pproenca/mutate4swift/internal/site"
)

func sites(n int) []site.MutationSite {
	out := make([]site.MutationSite, n)
	for i := range out {
		out[i] = site.MutationSite{Operator: site.Arithmetic, Line: i + 1}
	}

	return out
}

func strPtr(s string) *string { return &s }

func TestPlanner_Plan_lptBalance(t *testing.T) {
	// Mirrors the worked example: four files with very uneven mutation
	// counts, two of which share a scope filter, packed across 2 workers.
	weights := map[string]int{
		"A.swift": 10,
		"B.swift": 1,
		"C.swift": 1,
		"D.swift": 8,
	}
	scopes := map[string]*string{
		"A.swift": strPtr("FooTests"),
		"B.swift": strPtr("FooTests"),
		"C.swift": nil,
		"D.swift": nil,
	}

	discover := func(f string) ([]site.MutationSite, error) {
		return sites(weights[f]), nil
	}
	resolve := func(f string) (*string, error) {
		return scopes[f], nil
	}

	p := planner.New()
	plan, err := p.Plan(
		[]string{"A.swift", "B.swift", "C.swift", "D.swift"},
		"/pkg", nil, 2,
		discover, resolve, nil,
	)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.JobsPlanned != 2 {
		t.Fatalf("JobsPlanned = %d, want 2", plan.JobsPlanned)
	}
	if got := plan.TotalCandidateMutations(); got != 20 {
		t.Fatalf("TotalCandidateMutations() = %d, want 20", got)
	}
	if len(plan.Buckets) != 2 {
		t.Fatalf("len(Buckets) = %d, want 2", len(plan.Buckets))
	}

	var assigned int
	for _, b := range plan.Buckets {
		assigned += b.TotalWeight()
	}
	if assigned != 20 {
		t.Fatalf("sum of bucket weights = %d, want 20", assigned)
	}

	// A.swift and B.swift share the FooTests scope; scope affinity should
	// keep them in the same bucket even though pure LPT would split the
	// heaviest (A, weight 10) away from the lightest (B, weight 1).
	bucketOf := make(map[string]int)
	for _, b := range plan.Buckets {
		for _, w := range b.Workloads {
			bucketOf[w.SourceFile] = b.WorkerIndex
		}
	}
	if bucketOf["A.swift"] != bucketOf["B.swift"] {
		t.Errorf("A.swift and B.swift landed in different buckets: %d vs %d", bucketOf["A.swift"], bucketOf["B.swift"])
	}

	if max := plan.MaxBucketWeight(); max > 12 {
		t.Errorf("MaxBucketWeight() = %d, bucket imbalance too large for this input", max)
	}
}

func TestPlanner_Plan_noCandidatesYieldsTrivialPlan(t *testing.T) {
	discover := func(string) ([]site.MutationSite, error) { return nil, nil }
	resolve := func(string) (*string, error) { return nil, nil }

	p := planner.New()
	plan, err := p.Plan([]string{"Empty.swift"}, "/pkg", nil, 4, discover, resolve, nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.JobsPlanned != 1 {
		t.Fatalf("JobsPlanned = %d, want 1", plan.JobsPlanned)
	}
	if len(plan.Buckets) != 1 || plan.Buckets[0].TotalWeight() != 0 {
		t.Fatalf("expected a single empty bucket, got %+v", plan.Buckets)
	}
}

func TestPlanner_Plan_jobsPlannedNeverExceedsCandidateCount(t *testing.T) {
	discover := func(f string) ([]site.MutationSite, error) { return sites(1), nil }
	resolve := func(string) (*string, error) { return nil, nil }

	p := planner.New()
	plan, err := p.Plan([]string{"A.swift", "B.swift"}, "/pkg", nil, 8, discover, resolve, nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.JobsPlanned != 2 {
		t.Fatalf("JobsPlanned = %d, want 2 (clamped to candidate count)", plan.JobsPlanned)
	}
}

func TestPlanner_Plan_filterOverrideSkipsResolve(t *testing.T) {
	resolveCalls := 0
	discover := func(f string) ([]site.MutationSite, error) { return sites(3), nil }
	resolve := func(string) (*string, error) {
		resolveCalls++

		return nil, nil
	}

	p := planner.New()
	override := strPtr("OnlyTests")
	plan, err := p.Plan([]string{"A.swift"}, "/pkg", override, 1, discover, resolve, nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if resolveCalls != 0 {
		t.Errorf("resolve called %d times, want 0 when a filter override is given", resolveCalls)
	}
	if plan.Workloads[0].ScopeFilter == nil || *plan.Workloads[0].ScopeFilter != "OnlyTests" {
		t.Errorf("ScopeFilter = %v, want OnlyTests", plan.Workloads[0].ScopeFilter)
	}
}

func TestPlanner_Plan_coverageFiltersUncoveredSites(t *testing.T) {
	discover := func(f string) ([]site.MutationSite, error) {
		return []site.MutationSite{
			{Operator: site.Arithmetic, Line: 1},
			{Operator: site.Arithmetic, Line: 2},
			{Operator: site.Arithmetic, Line: 3},
		}, nil
	}
	resolve := func(string) (*string, error) { return nil, nil }
	coverage := func(string) (map[int]bool, error) {
		return map[int]bool{2: true}, nil
	}

	p := planner.New()
	plan, err := p.Plan([]string{"A.swift"}, "/pkg", nil, 1, discover, resolve, coverage)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	w := plan.Workloads[0]
	if w.PotentialMutations != 3 {
		t.Errorf("PotentialMutations = %d, want 3", w.PotentialMutations)
	}
	if w.CandidateMutations != 1 {
		t.Errorf("CandidateMutations = %d, want 1", w.CandidateMutations)
	}
}

func TestPlanner_Plan_discoverErrorPropagates(t *testing.T) {
	discover := func(string) ([]site.MutationSite, error) {
		return nil, errBoom
	}
	resolve := func(string) (*string, error) { return nil, nil }

	p := planner.New()
	if _, err := p.Plan([]string{"A.swift"}, "/pkg", nil, 2, discover, resolve, nil); err == nil {
		t.Fatal("expected discover error to propagate")
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errBoom = sentinelError("boom")
