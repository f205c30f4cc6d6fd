package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SelectorSet is an ordered list of alternative queries for one logical UI
// concept. No query is authoritative; the first one that matches wins.
type SelectorSet struct {
	Name    string
	Queries []string
}

func NewSelectorSet(name string, queries ...string) SelectorSet {
	return SelectorSet{Name: name, Queries: queries}
}

// Resolve returns the first query accepted by match. A match that panics is
// treated as a miss so probing stays non-exceptional.
func (s SelectorSet) Resolve(match func(query string) bool) (string, bool) {
	for _, q := range s.Queries {
		if safeMatch(match, q) {
			return q, true
		}
	}

	return "", false
}

func (s SelectorSet) String() string {
	return s.Name + " [" + strings.Join(s.Queries, " | ") + "]"
}

func safeMatch(match func(string) bool, query string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	return match(query)
}

type ActionOutcome string

const (
	ActionPerformed ActionOutcome = "performed"
	ActionAbsent    ActionOutcome = "absent"
)

type ScenarioStatus string

const (
	ScenarioPassed     ScenarioStatus = "passed"
	ScenarioFailed     ScenarioStatus = "failed"
	ScenarioInfraError ScenarioStatus = "infra_error"
)

type ScenarioResult struct {
	ID        uuid.UUID
	Name      string
	Tags      []string
	Worker    int
	Status    ScenarioStatus
	Code      string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

type RunSummary struct {
	RunID    uuid.UUID
	Results  []ScenarioResult
	Duration time.Duration
}

func (s RunSummary) Count(status ScenarioStatus) int {
	n := 0

	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}

	return n
}

func (s RunSummary) Passed() bool {
	return len(s.Results) == s.Count(ScenarioPassed)
}
