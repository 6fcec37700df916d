package runtest

import (
	"bytes"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/stretchr/testify/require"

	"github.com/testrt/threadharness/framework/helpers"
	"github.com/testrt/threadharness/framework/opt"
	"github.com/testrt/threadharness/framework/telemetry"
)

const testProgram = "./harness_test"

type runOutput struct {
	results Results
	err     error
	records []telemetry.Record
	log     *ldlogtest.MockLog
}

func (o runOutput) collect(t *testing.T) *telemetry.Collector {
	c := telemetry.NewCollector()
	for _, r := range o.records {
		require.NoError(t, c.Add(r))
	}
	return c
}

func (o runOutput) ofKind(kind telemetry.Kind) []telemetry.Record {
	var ret []telemetry.Record
	for _, r := range o.records {
		if r.Kind() == kind {
			ret = append(ret, r)
		}
	}
	return ret
}

func (o runOutput) functions(kind telemetry.Kind) []string {
	var ret []string
	for _, r := range o.ofKind(kind) {
		ret = append(ret, r.Source().Function)
	}
	return ret
}

func (o runOutput) logsFor(function string, level telemetry.Level) []string {
	var ret []string
	for _, r := range o.ofKind(telemetry.KindLog) {
		if l := r.(telemetry.Log); l.Function == function && l.Level == level {
			ret = append(ret, l.Message)
		}
	}
	return ret
}

// runCatalog runs the tests through a real Emitter and decodes what it wrote, so that
// everything the tests check has gone through the wire format.
func runCatalog(t *testing.T, tests Catalog, configure ...func(*Config)) runOutput {
	t.Helper()
	mockLog := ldlogtest.NewMockLog()
	mockLog.Loggers.SetMinLevel(ldlog.Debug)
	t.Cleanup(func() { mockLog.DumpIfTestFailed(t) })

	var buf bytes.Buffer
	config := Config{
		Program:         testProgram,
		Output:          telemetry.NewEmitter(&buf),
		Loggers:         mockLog.Loggers,
		PollIntervalMin: 50 * time.Microsecond,
		PollIntervalMax: time.Millisecond,
	}
	for _, c := range configure {
		c(&config)
	}
	out := helpers.RequireReturns(t, 10*time.Second, func() runOutput {
		results, err := Run(config, tests)
		return runOutput{results: results, err: err}
	})
	out.log = mockLog

	records, err := telemetry.ReadAll(&buf)
	require.NoError(t, err)
	out.records = records
	return out
}

func currentLine() int {
	_, _, line, _ := runtime.Caller(1)
	return line
}

func assertViaHelper(t *T, condition bool) {
	t.Helper()
	t.Assert(condition)
}

type sinkFunc func(r telemetry.Record) error

func (f sinkFunc) Emit(r telemetry.Record) error { return f(r) }

type joinStep struct {
	done bool
	err  error
}

// scriptedJoiner returns one step per TryJoin call and fails the Go test if it is polled
// past the end of its script.
type scriptedJoiner struct {
	t     *testing.T
	steps []joinStep
	calls int
}

func (j *scriptedJoiner) TryJoin() (opt.Maybe[Completion], error) {
	j.calls++
	if j.calls > len(j.steps) {
		j.t.Errorf("TryJoin called %d times, expected at most %d", j.calls, len(j.steps))
		return opt.None[Completion](), ErrAlreadyJoined
	}
	step := j.steps[j.calls-1]
	if step.err != nil {
		return opt.None[Completion](), step.err
	}
	if step.done {
		return opt.Some(Completion{}), nil
	}
	return opt.None[Completion](), nil
}

func notDone(n int) []joinStep {
	return make([]joinStep, n)
}

type recordingMetrics struct {
	launched, finished, failed, joinFailed []string
	sweeps                                 []int
	lock                                   sync.Mutex
}

func (m *recordingMetrics) TestLaunched(name string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.launched = append(m.launched, name)
}

func (m *recordingMetrics) TestFinished(name string, failed bool, _ time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.finished = append(m.finished, name)
	if failed {
		m.failed = append(m.failed, name)
	}
}

func (m *recordingMetrics) SweepCompleted(waiting int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sweeps = append(m.sweeps, waiting)
}

func (m *recordingMetrics) JoinFailed(name string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.joinFailed = append(m.joinFailed, name)
}
