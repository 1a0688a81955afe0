package domain

import "sync"

// OutputEntry is one named output produced by a rule.
type OutputEntry struct {
	Name  string
	Value Value
}

// RuleMatch records that a rule matched during one evaluation,
// together with the outputs it computed.
type RuleMatch struct {
	RuleID  string
	Outputs []OutputEntry
}

// EvaluationEvent is what one evaluation call observed: the decision
// key, a snapshot of the resolved inputs, and the rules left matching
// after hit-policy application. The engine returns it directly from
// the call, so no event survives past the call that produced it.
type EvaluationEvent struct {
	Decision string
	Inputs   map[string]Value
	Matches  []RuleMatch
}

// MatchedRuleIDs returns the matched rule ids in match order.
func (e EvaluationEvent) MatchedRuleIDs() []string {
	ids := make([]string, 0, len(e.Matches))
	for _, m := range e.Matches {
		ids = append(ids, m.RuleID)
	}
	return ids
}

// CoverageEvent records that a specific rule fired for a specific
// evaluation. Parameters is an independent copy of the inputs, so
// later mutation of the caller's map cannot corrupt history.
type CoverageEvent struct {
	Decision   string
	RuleID     string
	Parameters map[string]Value
}

// Collector accumulates coverage events for one test session. It is
// constructed explicitly and injected wherever recording happens;
// sessions that need isolation construct their own.
//
// Record is append-only and safe for concurrent use. The same rule may
// be recorded many times; collapsing to a covered set happens at
// report time, never here.
type Collector struct {
	mu     sync.Mutex
	events []CoverageEvent
}

func NewCollector() *Collector {
	return &Collector{}
}

// Record appends events under the collector's lock.
func (c *Collector) Record(events ...CoverageEvent) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

// Snapshot returns a defensive copy of everything recorded so far.
// Parameter maps are copied too, so writes through a snapshot cannot
// reach recorded events.
func (c *Collector) Snapshot() []CoverageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CoverageEvent, len(c.events))
	for i, e := range c.events {
		out[i] = e
		out[i].Parameters = CopyValues(e.Parameters)
	}
	return out
}

// Len reports how many events have been recorded.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
