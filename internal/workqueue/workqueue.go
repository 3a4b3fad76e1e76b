// Package workqueue implements the dynamic work-stealing scheduler that
// drives a StrategyPlan's buckets at execution time: every worker drains
// its own seeded bucket first, then steals from the most-loaded donor
// once it runs dry.
package workqueue

import (
	"sync"

	"github.com/pproenca/mutate4swift/internal/site"
)

// Metrics is a point-in-time snapshot of the queue's dispatch counters.
type Metrics struct {
	DispatchedWorkloads int
	StolenWorkloads     int
	RemainingWorkloads  int
	RemainingWeight     int
}

type workerState struct {
	workloads       []site.MutationWorkload
	remainingWeight int
}

// Queue is the actor-like object spec.md §4.5 describes: the only
// mutable scheduling state in the system. All access is serialized by
// mu.
type Queue struct {
	mu         sync.Mutex
	workers    []workerState
	scopeOwner map[string]int

	dispatched int
	stolen     int
}

// New seeds a Queue from plan's buckets, computing each scope's owner
// worker (the one holding the majority of that scope's weight) once.
func New(plan site.StrategyPlan) *Queue {
	q := &Queue{
		workers:    make([]workerState, len(plan.Buckets)),
		scopeOwner: make(map[string]int),
	}

	scopeWeightByWorker := make(map[string]map[int]int)

	for _, b := range plan.Buckets {
		workloads := make([]site.MutationWorkload, len(b.Workloads))
		copy(workloads, b.Workloads)
		q.workers[b.WorkerIndex] = workerState{
			workloads:       workloads,
			remainingWeight: b.TotalWeight(),
		}

		for _, w := range b.Workloads {
			scope := w.ScopeKey()
			if scopeWeightByWorker[scope] == nil {
				scopeWeightByWorker[scope] = make(map[int]int)
			}
			scopeWeightByWorker[scope][b.WorkerIndex] += w.CandidateMutations
		}
	}

	for scope, byWorker := range scopeWeightByWorker {
		owner, ownerWeight := 0, -1
		for idx := 0; idx < len(q.workers); idx++ {
			if w := byWorker[idx]; w > ownerWeight {
				owner, ownerWeight = idx, w
			}
		}
		q.scopeOwner[scope] = owner
	}

	return q
}

// Next implements the two-step dispatch §4.5 specifies: drain
// workerIndex's own queue first, then steal from the heaviest donor.
// warmedScopes is the set of scopes whose baseline has already run on
// workerIndex. Returns (nil, false) once no work remains anywhere.
func (q *Queue) Next(workerIndex int, warmedScopes map[string]bool) (*site.MutationWorkload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, ok := q.takeOwn(workerIndex, warmedScopes); ok {
		q.dispatched++

		return w, true
	}

	if w, ok := q.takeStolen(workerIndex, warmedScopes); ok {
		q.dispatched++
		q.stolen++

		return w, true
	}

	return nil, false
}

func (q *Queue) takeOwn(workerIndex int, warmedScopes map[string]bool) (*site.MutationWorkload, bool) {
	ws := &q.workers[workerIndex]
	if len(ws.workloads) == 0 {
		return nil, false
	}

	tier := func(w site.MutationWorkload) int {
		scope := w.ScopeKey()
		switch {
		case warmedScopes[scope]:
			return 3
		case q.scopeOwner[scope] == workerIndex:
			return 2
		default:
			return 1
		}
	}

	idx := pickBestIndex(ws.workloads, tier)
	w := ws.workloads[idx]
	ws.workloads = removeAt(ws.workloads, idx)
	ws.remainingWeight -= w.CandidateMutations

	return &w, true
}

func (q *Queue) takeStolen(thief int, warmedScopes map[string]bool) (*site.MutationWorkload, bool) {
	donor := q.pickDonor()
	if donor < 0 {
		return nil, false
	}

	ds := &q.workers[donor]

	tier := func(w site.MutationWorkload) int {
		scope := w.ScopeKey()
		owner := q.scopeOwner[scope]

		switch {
		case warmedScopes[scope]:
			return 5
		case owner == thief:
			return 4
		case owner != donor:
			return 3
		case q.countInScope(donor, scope) > 1:
			return 2
		default:
			return 1
		}
	}

	idx := pickBestIndex(ds.workloads, tier)
	w := ds.workloads[idx]
	ds.workloads = removeAt(ds.workloads, idx)
	ds.remainingWeight -= w.CandidateMutations

	return &w, true
}

func (q *Queue) pickDonor() int {
	donor := -1

	for i := range q.workers {
		if len(q.workers[i].workloads) == 0 {
			continue
		}
		if donor == -1 || betterDonor(i, q.workers[i], donor, q.workers[donor]) {
			donor = i
		}
	}

	return donor
}

func betterDonor(i int, a workerState, donor int, b workerState) bool {
	if a.remainingWeight != b.remainingWeight {
		return a.remainingWeight > b.remainingWeight
	}
	if len(a.workloads) != len(b.workloads) {
		return len(a.workloads) > len(b.workloads)
	}

	return i < donor
}

func (q *Queue) countInScope(worker int, scope string) int {
	var n int
	for _, w := range q.workers[worker].workloads {
		if w.ScopeKey() == scope {
			n++
		}
	}

	return n
}

func pickBestIndex(workloads []site.MutationWorkload, tierFn func(site.MutationWorkload) int) int {
	best := 0
	bestTier := tierFn(workloads[0])

	for i := 1; i < len(workloads); i++ {
		t := tierFn(workloads[i])
		if betterCandidate(t, workloads[i], bestTier, workloads[best]) {
			best, bestTier = i, t
		}
	}

	return best
}

func betterCandidate(tier int, w site.MutationWorkload, bestTier int, best site.MutationWorkload) bool {
	if tier != bestTier {
		return tier > bestTier
	}
	if w.CandidateMutations != best.CandidateMutations {
		return w.CandidateMutations > best.CandidateMutations
	}

	return w.SourceFile < best.SourceFile
}

func removeAt(workloads []site.MutationWorkload, idx int) []site.MutationWorkload {
	out := make([]site.MutationWorkload, 0, len(workloads)-1)
	out = append(out, workloads[:idx]...)
	out = append(out, workloads[idx+1:]...)

	return out
}

// Metrics returns a snapshot of the queue's dispatch counters.
func (q *Queue) Metrics() Metrics {
	q.mu.Lock()
	defer q.mu.Unlock()

	var remainingWorkloads, remainingWeight int
	for _, ws := range q.workers {
		remainingWorkloads += len(ws.workloads)
		remainingWeight += ws.remainingWeight
	}

	return Metrics{
		DispatchedWorkloads: q.dispatched,
		StolenWorkloads:     q.stolen,
		RemainingWorkloads:  remainingWorkloads,
		RemainingWeight:     remainingWeight,
	}
}
