package site

// AllTestsScope is the scopeKey used for a workload with no scope filter,
// meaning "run the entire test suite".
const AllTestsScope = "__all_tests__"

// MutationWorkload is one source file's share of a StrategyPlan: the
// candidate mutation count after the equivalence and coverage filters,
// and the test-scope filter (if any) that exercises it.
type MutationWorkload struct {
	SourceFile         string
	ScopeFilter        *string
	PotentialMutations int
	CandidateMutations int
}

// ScopeKey returns the workload's scope filter, or AllTestsScope if none
// was resolved.
func (w MutationWorkload) ScopeKey() string {
	if w.ScopeFilter == nil {
		return AllTestsScope
	}

	return *w.ScopeFilter
}

// IsUncovered reports whether the discoverer found mutation sites in this
// file but none survived the equivalence/coverage filters.
func (w MutationWorkload) IsUncovered() bool {
	return w.PotentialMutations > 0 && w.CandidateMutations == 0
}

// ExecutionBucket is one worker's ordered share of the plan.
type ExecutionBucket struct {
	WorkerIndex int
	Workloads   []MutationWorkload
}

// TotalWeight sums CandidateMutations across the bucket's workloads.
func (b ExecutionBucket) TotalWeight() int {
	var total int
	for _, w := range b.Workloads {
		total += w.CandidateMutations
	}

	return total
}

// StrategyPlan is the immutable result of the Planner: every candidate
// workload assigned to exactly one bucket.
type StrategyPlan struct {
	JobsRequested int
	JobsPlanned   int
	Workloads     []MutationWorkload
	Buckets       []ExecutionBucket
	ScopeWeights  map[string]int
}

// TotalCandidateMutations sums CandidateMutations across every workload in
// the plan, regardless of bucket assignment.
func (p StrategyPlan) TotalCandidateMutations() int {
	var total int
	for _, w := range p.Workloads {
		total += w.CandidateMutations
	}

	return total
}

// MaxBucketWeight returns the heaviest bucket's TotalWeight, or 0 for an
// empty plan.
func (p StrategyPlan) MaxBucketWeight() int {
	var max int
	for _, b := range p.Buckets {
		if w := b.TotalWeight(); w > max {
			max = w
		}
	}

	return max
}

// MaxSingleWorkloadWeight returns the single heaviest workload's
// CandidateMutations, or 0 for a plan with no workloads.
func (p StrategyPlan) MaxSingleWorkloadWeight() int {
	var max int
	for _, w := range p.Workloads {
		if w.CandidateMutations > max {
			max = w.CandidateMutations
		}
	}

	return max
}

// TheoreticalLowerBound is max(maxSingleWorkloadWeight, ceil(serialWeight/jobsPlanned)).
func (p StrategyPlan) TheoreticalLowerBound() int {
	if p.JobsPlanned == 0 {
		return p.MaxSingleWorkloadWeight()
	}
	serial := p.TotalCandidateMutations()
	ceilShare := ceilDiv(serial, p.JobsPlanned)
	if bound := p.MaxSingleWorkloadWeight(); bound > ceilShare {
		return bound
	}

	return ceilShare
}

// EstimatedSpeedupUpperBound is serialWeight / max(1, maxBucketWeight).
func (p StrategyPlan) EstimatedSpeedupUpperBound() float64 {
	denom := p.MaxBucketWeight()
	if denom < 1 {
		denom = 1
	}

	return float64(p.TotalCandidateMutations()) / float64(denom)
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}

	return q
}
