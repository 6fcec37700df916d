package runtest

import "time"

// Results is the summary of one run, in completion order.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

// TestResult is the classified outcome of one test.
type TestResult struct {
	Name     string
	Outcome  Outcome
	Duration time.Duration
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Outcomes returns each test's outcome by name.
func (r Results) Outcomes() map[string]Outcome {
	ret := make(map[string]Outcome, len(r.Tests))
	for _, t := range r.Tests {
		ret[t.Name] = t.Outcome
	}
	return ret
}
