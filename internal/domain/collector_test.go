package domain

import (
	"fmt"
	"sync"
	"testing"
)

func TestCollectorRecordAndSnapshot(t *testing.T) {
	c := NewCollector()
	c.Record(CoverageEvent{Decision: "D", RuleID: "rule1"})
	c.Record(
		CoverageEvent{Decision: "D", RuleID: "rule2"},
		CoverageEvent{Decision: "D", RuleID: "rule1"}, // duplicates are kept
	)

	if c.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", c.Len())
	}
	snap := c.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected snapshot of 3, got %d", len(snap))
	}
	if snap[0].RuleID != "rule1" || snap[1].RuleID != "rule2" {
		t.Fatalf("append order not preserved: %+v", snap)
	}
}

func TestCollectorSnapshotIsDefensiveCopy(t *testing.T) {
	c := NewCollector()
	c.Record(CoverageEvent{
		Decision:   "D",
		RuleID:     "rule1",
		Parameters: map[string]Value{"age": NewNumber(25)},
	})

	snap := c.Snapshot()
	snap[0].RuleID = "mutated"
	snap[0].Parameters["age"] = NewNumber(99)

	again := c.Snapshot()
	if again[0].RuleID != "rule1" {
		t.Fatalf("snapshot mutation leaked into collector: %+v", again)
	}
	if !again[0].Parameters["age"].Equal(NewNumber(25)) {
		t.Fatalf("parameters mutated through snapshot: %v", again[0].Parameters["age"])
	}
}

func TestCollectorConcurrentRecordLosesNothing(t *testing.T) {
	c := NewCollector()
	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.Record(CoverageEvent{
					Decision: "D",
					RuleID:   fmt.Sprintf("w%d-r%d", w, i),
				})
			}
		}(w)
	}
	wg.Wait()

	if got := c.Len(); got != workers*perWorker {
		t.Fatalf("lost updates: expected %d events, got %d", workers*perWorker, got)
	}
	seen := make(map[string]bool)
	for _, ev := range c.Snapshot() {
		seen[ev.RuleID] = true
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d distinct rule ids, got %d", workers*perWorker, len(seen))
	}
}

func TestEvaluationEventMatchedRuleIDs(t *testing.T) {
	ev := EvaluationEvent{
		Decision: "D",
		Matches: []RuleMatch{
			{RuleID: "rule2"},
			{RuleID: "rule1"},
		},
	}
	ids := ev.MatchedRuleIDs()
	if len(ids) != 2 || ids[0] != "rule2" || ids[1] != "rule1" {
		t.Fatalf("expected match order preserved, got %v", ids)
	}
}
