package site_test

import (
	"testing"

	"github.com/pproenca/mutate4swift/internal/site"
)

func TestMutationReport_KillPercentage(t *testing.T) {
	testCases := []struct {
		name    string
		results []site.MutationResult
		want    float64
	}{
		{
			name:    "no results",
			results: nil,
			want:    100,
		},
		{
			name: "all killed",
			results: []site.MutationResult{
				{Outcome: site.Killed},
				{Outcome: site.Killed},
			},
			want: 100,
		},
		{
			name: "all survived",
			results: []site.MutationResult{
				{Outcome: site.Survived},
			},
			want: 0,
		},
		{
			name: "timeout counts as kill",
			results: []site.MutationResult{
				{Outcome: site.Timeout},
				{Outcome: site.Survived},
			},
			want: 50,
		},
		{
			name: "buildError and skipped excluded from denominator",
			results: []site.MutationResult{
				{Outcome: site.Killed},
				{Outcome: site.BuildError},
				{Outcome: site.Skipped},
			},
			want: 100,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := site.MutationReport{Results: tc.results}
			if got := r.KillPercentage(); got != tc.want {
				t.Errorf("KillPercentage() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMutationReport_TotalMutations(t *testing.T) {
	r := site.MutationReport{Results: []site.MutationResult{
		{Outcome: site.Killed},
		{Outcome: site.Survived},
		{Outcome: site.Timeout},
		{Outcome: site.BuildError},
		{Outcome: site.Skipped},
	}}
	total := r.Killed() + r.Survived() + r.TimedOut() + r.BuildErrors() + r.SkippedCount()
	if total != r.TotalMutations() {
		t.Errorf("sum of counts = %d, want %d", total, r.TotalMutations())
	}
}

func TestNewBaselineResult(t *testing.T) {
	testCases := []struct {
		name              string
		duration          float64
		timeoutMultiplier float64
		wantTimeout       float64
	}{
		{name: "floor applies", duration: 1, timeoutMultiplier: 10, wantTimeout: 30},
		{name: "multiplier wins", duration: 10, timeoutMultiplier: 10, wantTimeout: 100},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := site.NewBaselineResult(tc.duration, tc.timeoutMultiplier)
			if got.Timeout != tc.wantTimeout {
				t.Errorf("Timeout = %v, want %v", got.Timeout, tc.wantTimeout)
			}
		})
	}
}

func TestMutationWorkload_ScopeKey(t *testing.T) {
	filter := "FooTests"
	withFilter := site.MutationWorkload{ScopeFilter: &filter}
	if got := withFilter.ScopeKey(); got != filter {
		t.Errorf("ScopeKey() = %q, want %q", got, filter)
	}

	withoutFilter := site.MutationWorkload{}
	if got := withoutFilter.ScopeKey(); got != site.AllTestsScope {
		t.Errorf("ScopeKey() = %q, want %q", got, site.AllTestsScope)
	}
}

func TestMutationWorkload_IsUncovered(t *testing.T) {
	w := site.MutationWorkload{PotentialMutations: 3, CandidateMutations: 0}
	if !w.IsUncovered() {
		t.Error("expected workload to be uncovered")
	}
	w.CandidateMutations = 1
	if w.IsUncovered() {
		t.Error("expected workload not to be uncovered")
	}
}
