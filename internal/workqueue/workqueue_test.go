package workqueue_test

import (
	"testing"

	"github.com/pproenca/mutate4swift/internal/site"
	"github.com/pproenca/mutate4swift/internal/workqueue"
)

func strPtr(s string) *string { return &s }

func testPlan() site.StrategyPlan {
	return site.StrategyPlan{
		JobsPlanned: 2,
		Buckets: []site.ExecutionBucket{
			{
				WorkerIndex: 0,
				Workloads: []site.MutationWorkload{
					{SourceFile: "A.swift", ScopeFilter: strPtr("FooTests"), CandidateMutations: 3},
					{SourceFile: "B.swift", CandidateMutations: 1},
				},
			},
			{
				WorkerIndex: 1,
				Workloads: []site.MutationWorkload{
					{SourceFile: "C.swift", ScopeFilter: strPtr("FooTests"), CandidateMutations: 1},
					{SourceFile: "D.swift", CandidateMutations: 5},
				},
			},
		},
	}
}

func TestQueue_Next_ownQueueWarmedScopeWinsTier(t *testing.T) {
	q := workqueue.New(testPlan())

	w, ok := q.Next(1, map[string]bool{"FooTests": true})
	if !ok {
		t.Fatal("Next() = false, want true")
	}
	if w.SourceFile != "C.swift" {
		t.Errorf("Next() = %s, want C.swift (warmed scope outranks scope ownership)", w.SourceFile)
	}
}

func TestQueue_Next_ownQueueOwnerTierWithoutWarming(t *testing.T) {
	q := workqueue.New(testPlan())

	w, ok := q.Next(0, nil)
	if !ok {
		t.Fatal("Next() = false, want true")
	}
	if w.SourceFile != "A.swift" {
		t.Errorf("Next() = %s, want A.swift (worker 0 owns FooTests)", w.SourceFile)
	}

	w2, ok := q.Next(0, nil)
	if !ok {
		t.Fatal("Next() = false, want true")
	}
	if w2.SourceFile != "B.swift" {
		t.Errorf("Next() = %s, want B.swift", w2.SourceFile)
	}
}

func TestQueue_Next_stealsFromHeaviestDonor(t *testing.T) {
	q := workqueue.New(testPlan())

	// Drain worker 0's own queue.
	if _, ok := q.Next(0, nil); !ok {
		t.Fatal("expected a workload")
	}
	if _, ok := q.Next(0, nil); !ok {
		t.Fatal("expected a workload")
	}

	// Worker 0 is now empty; it should steal from worker 1, whose
	// C.swift workload is owned (scope-wise) by worker 0 -- tier 4 beats
	// D.swift's tier 1.
	w, ok := q.Next(0, nil)
	if !ok {
		t.Fatal("Next() = false, want a stolen workload")
	}
	if w.SourceFile != "C.swift" {
		t.Errorf("stole %s, want C.swift", w.SourceFile)
	}

	metrics := q.Metrics()
	if metrics.StolenWorkloads != 1 {
		t.Errorf("StolenWorkloads = %d, want 1", metrics.StolenWorkloads)
	}
	if metrics.DispatchedWorkloads != 3 {
		t.Errorf("DispatchedWorkloads = %d, want 3", metrics.DispatchedWorkloads)
	}
}

func TestQueue_Next_exhaustionReturnsFalse(t *testing.T) {
	q := workqueue.New(testPlan())

	for i := 0; i < 4; i++ {
		if _, ok := q.Next(i%2, nil); !ok {
			t.Fatalf("Next() call %d returned false before the queue was drained", i)
		}
	}

	if _, ok := q.Next(0, nil); ok {
		t.Error("Next() = true after every workload was dispatched, want false")
	}

	metrics := q.Metrics()
	if metrics.RemainingWorkloads != 0 || metrics.RemainingWeight != 0 {
		t.Errorf("Metrics() = %+v, want zero remaining", metrics)
	}
	if metrics.DispatchedWorkloads != 4 {
		t.Errorf("DispatchedWorkloads = %d, want 4", metrics.DispatchedWorkloads)
	}
}

func TestQueue_Next_emptyPlanReturnsFalse(t *testing.T) {
	q := workqueue.New(site.StrategyPlan{Buckets: []site.ExecutionBucket{{WorkerIndex: 0}}})

	if _, ok := q.Next(0, nil); ok {
		t.Error("Next() on an empty plan should return false")
	}
}
