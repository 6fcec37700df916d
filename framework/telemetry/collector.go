package telemetry

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/testrt/threadharness/framework/opt"
)

// TestState is everything a consumer knows about one test after reading a stream.
type TestState struct {
	Origin
	Status opt.Maybe[Result]
	Logs   []Log
}

// Finished returns true if a Status record was seen for the test.
func (s TestState) Finished() bool { return s.Status.IsDefined() }

// Failed returns true if the test finished with a Fail status.
func (s TestState) Failed() bool {
	return s.Status.IsDefined() && s.Status.Value() == ResultFail
}

// ProtocolError describes a record that breaks the Register/Status pairing rules.
type ProtocolError struct {
	Record Record
	Reason string
}

func (e ProtocolError) Error() string {
	o := e.Record.Source()
	return fmt.Sprintf("%s record for %s/%s: %s", e.Record.Kind(), o.Program, o.Function, e.Reason)
}

// Collector folds a record stream into per-test state, the way an aggregating consumer
// would. It is not safe for concurrent use.
type Collector struct {
	tests      map[Origin]*TestState
	order      []Origin
	violations []error
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{tests: make(map[Origin]*TestState)}
}

// Collect reads every record from a Decoder into a new Collector.
func Collect(d *Decoder) (*Collector, error) {
	c := NewCollector()
	for {
		r, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return c, nil
			}
			return c, err
		}
		_ = c.Add(r)
	}
}

// Add applies one record. A record that violates the protocol is still kept where that
// makes sense, and the violation is both returned and remembered.
func (c *Collector) Add(r Record) error {
	key := r.Source()
	state := c.tests[key]
	switch v := r.(type) {
	case Register:
		if state != nil {
			return c.violation(r, "duplicate registration")
		}
		c.tests[key] = &TestState{Origin: key}
		c.order = append(c.order, key)
	case Status:
		if state == nil {
			return c.violation(r, "status without registration")
		}
		if state.Status.IsDefined() {
			return c.violation(r, "duplicate status")
		}
		state.Status = opt.Some(v.Result)
	case Log:
		if state == nil {
			return c.violation(r, "log without registration")
		}
		state.Logs = append(state.Logs, v)
	}
	return nil
}

func (c *Collector) violation(r Record, reason string) error {
	err := ProtocolError{Record: r, Reason: reason}
	c.violations = append(c.violations, err)
	return err
}

// Tests returns the state of every registered test in registration order.
func (c *Collector) Tests() []TestState {
	ret := make([]TestState, 0, len(c.order))
	for _, key := range c.order {
		s := *c.tests[key]
		s.Logs = slices.Clone(s.Logs)
		ret = append(ret, s)
	}
	return ret
}

// Test returns the state of one test, if it was registered.
func (c *Collector) Test(program, function string) opt.Maybe[TestState] {
	if s, ok := c.tests[Origin{Program: program, Function: function}]; ok {
		return opt.Some(*s)
	}
	return opt.None[TestState]()
}

// Programs returns the distinct program identifiers seen, sorted.
func (c *Collector) Programs() []string {
	seen := make(map[string]struct{})
	for key := range c.tests {
		seen[key.Program] = struct{}{}
	}
	ret := maps.Keys(seen)
	slices.Sort(ret)
	return ret
}

// Pending returns registered tests that never reported a status.
func (c *Collector) Pending() []Origin {
	var ret []Origin
	for _, key := range c.order {
		if !c.tests[key].Finished() {
			ret = append(ret, key)
		}
	}
	return ret
}

// Violations returns every protocol error seen so far.
func (c *Collector) Violations() []error {
	return slices.Clone(c.violations)
}

// OK returns true if every registered test finished successfully and the stream followed
// the protocol.
func (c *Collector) OK() bool {
	if len(c.violations) != 0 {
		return false
	}
	for _, s := range c.tests {
		if !s.Finished() || s.Failed() {
			return false
		}
	}
	return true
}
