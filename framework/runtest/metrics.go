package runtest

import "time"

// Metrics receives counters about a run. All methods are called from the goroutine that
// called Run.
type Metrics interface {
	TestLaunched(name string)
	TestFinished(name string, failed bool, duration time.Duration)
	SweepCompleted(waiting int)
	JoinFailed(name string)
}

type nullMetrics struct{}

func (nullMetrics) TestLaunched(string)                       {}
func (nullMetrics) TestFinished(string, bool, time.Duration) {}
func (nullMetrics) SweepCompleted(int)                        {}
func (nullMetrics) JoinFailed(string)                         {}
