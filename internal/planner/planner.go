// Package planner turns a list of source files into a StrategyPlan: an
// LPT (Longest Processing Time first) bin-packing of mutation workloads
// across a fixed worker count, refined by scope affinity so that files
// sharing a test-filter tend to land on the same worker.
package planner

import (
	"container/heap"
	"sort"

	"github.com/pproenca/mutate4swift/internal/site"
)

// DiscoverFunc discovers every mutation site in a source file and applies
// the equivalence filter, returning the surviving sites.
type DiscoverFunc func(sourceFile string) ([]site.MutationSite, error)

// ScopeResolveFunc resolves a source file's test-filter pattern, or nil
// for "run the entire test suite".
type ScopeResolveFunc func(sourceFile string) (*string, error)

// CoverageFunc returns the set of covered lines for a source file. A
// non-nil error means coverage data is unavailable for this file, in
// which case the caller must keep every site rather than drop them.
type CoverageFunc func(sourceFile string) (coveredLines map[int]bool, err error)

// Planner computes a StrategyPlan. The zero value is not usable; build
// one with New.
type Planner struct {
	logf func(format string, args ...interface{})
}

// PlannerOption configures a Planner at construction time.
type PlannerOption func(p *Planner)

// WithLogger overrides the Planner's diagnostic sink, silent by default.
func WithLogger(logf func(format string, args ...interface{})) PlannerOption {
	return func(p *Planner) {
		p.logf = logf
	}
}

// New creates a Planner.
func New(opts ...PlannerOption) *Planner {
	p := &Planner{logf: func(string, ...interface{}) {}}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Plan implements spec.md §4.4's nine-step algorithm.
func (p *Planner) Plan(
	files []string,
	packageRoot string,
	filterOverride *string,
	jobs int,
	discover DiscoverFunc,
	resolve ScopeResolveFunc,
	coverage CoverageFunc,
) (site.StrategyPlan, error) {
	sortedFiles := append([]string(nil), files...)
	sort.Strings(sortedFiles)

	workloads := make([]site.MutationWorkload, 0, len(sortedFiles))
	scopeWeights := make(map[string]int)

	for _, file := range sortedFiles {
		sites, err := discover(file)
		if err != nil {
			return site.StrategyPlan{}, err
		}
		potential := len(sites)

		candidate := sites
		if coverage != nil {
			if covered, cerr := coverage(file); cerr == nil {
				candidate = filterCovered(sites, covered)
			}
		}

		var filter *string
		if filterOverride != nil {
			filter = filterOverride
		} else if resolve != nil {
			f, err := resolve(file)
			if err != nil {
				return site.StrategyPlan{}, err
			}
			filter = f
		}

		w := site.MutationWorkload{
			SourceFile:         file,
			ScopeFilter:        filter,
			PotentialMutations: potential,
			CandidateMutations: len(candidate),
		}
		workloads = append(workloads, w)

		if w.IsUncovered() {
			p.logf("%s: %d mutation(s) found but none survived coverage filtering", file, potential)
		}

		scopeWeights[w.ScopeKey()] += w.CandidateMutations
	}

	var candidates []site.MutationWorkload
	for _, w := range workloads {
		if w.CandidateMutations > 0 {
			candidates = append(candidates, w)
		}
	}

	if len(candidates) == 0 {
		return site.StrategyPlan{
			JobsRequested: jobs,
			JobsPlanned:   1,
			Workloads:     workloads,
			Buckets:       []site.ExecutionBucket{{WorkerIndex: 0}},
			ScopeWeights:  scopeWeights,
		}, nil
	}

	jobsPlanned := jobs
	if len(candidates) < jobsPlanned {
		jobsPlanned = len(candidates)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CandidateMutations != candidates[j].CandidateMutations {
			return candidates[i].CandidateMutations > candidates[j].CandidateMutations
		}

		return candidates[i].SourceFile < candidates[j].SourceFile
	})

	buckets := assign(candidates, jobsPlanned, scopeWeights)

	return site.StrategyPlan{
		JobsRequested: jobs,
		JobsPlanned:   jobsPlanned,
		Workloads:     workloads,
		Buckets:       buckets,
		ScopeWeights:  scopeWeights,
	}, nil
}

func filterCovered(sites []site.MutationSite, covered map[int]bool) []site.MutationSite {
	var kept []site.MutationSite
	for _, s := range sites {
		if covered[s.Line] {
			kept = append(kept, s)
		}
	}

	return kept
}

// assign performs LPT bin-packing with scope-affinity refinement (spec
// steps 7-9): the min-weight worker is found through a lazily-pruned
// priority queue of (totalWeight, workerIndex) pairs, since a worker's
// entry goes stale every time its weight changes but is cheaper to leave
// in place than to remove.
func assign(candidates []site.MutationWorkload, jobsPlanned int, scopeWeights map[string]int) []site.ExecutionBucket {
	weights := make([]int, jobsPlanned)
	buckets := make([]site.ExecutionBucket, jobsPlanned)
	for i := range buckets {
		buckets[i].WorkerIndex = i
	}

	pq := &workerHeap{}
	heap.Init(pq)
	for i := 0; i < jobsPlanned; i++ {
		heap.Push(pq, workerEntry{weight: 0, worker: i})
	}

	var totalCandidateWeight int
	for _, w := range candidates {
		totalCandidateWeight += w.CandidateMutations
	}
	targetBucketWeight := ceilDiv(totalCandidateWeight, jobsPlanned)

	primaryWorker := make(map[string]int)

	for _, w := range candidates {
		scopeKey := w.ScopeKey()
		m := peekMinWorker(pq, weights)
		chosen := m

		if primary, ok := primaryWorker[scopeKey]; ok && primary != m {
			expectedScopeShare := ceilDiv(scopeWeights[scopeKey], jobsPlanned)
			splitThreshold := maxInt(expectedScopeShare*2, minInt(targetBucketWeight, w.CandidateMutations*2))

			if weights[primary] <= weights[m]+splitThreshold {
				chosen = primary
			}
		}

		if _, ok := primaryWorker[scopeKey]; !ok {
			primaryWorker[scopeKey] = chosen
		}

		buckets[chosen].Workloads = append(buckets[chosen].Workloads, w)
		weights[chosen] += w.CandidateMutations
		heap.Push(pq, workerEntry{weight: weights[chosen], worker: chosen})
	}

	return buckets
}

type workerEntry struct {
	weight int
	worker int
}

type workerHeap []workerEntry

func (h workerHeap) Len() int { return len(h) }
func (h workerHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}

	return h[i].worker < h[j].worker
}
func (h workerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *workerHeap) Push(x any)   { *h = append(*h, x.(workerEntry)) }
func (h *workerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]

	return e
}

// peekMinWorker discards stale heap entries (ones whose recorded weight
// no longer matches the worker's current weight) until the true minimum
// surfaces, then returns it without removing it — the next push for that
// worker will supersede it.
func peekMinWorker(pq *workerHeap, weights []int) int {
	for pq.Len() > 0 {
		top := (*pq)[0]
		if top.weight == weights[top.worker] {
			return top.worker
		}
		heap.Pop(pq)
	}

	best := 0
	for i, w := range weights {
		if w < weights[best] {
			best = i
		}
	}

	return best
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
