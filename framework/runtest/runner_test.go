package runtest

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testrt/threadharness/framework"
	"github.com/testrt/threadharness/framework/helpers"
	"github.com/testrt/threadharness/framework/telemetry"
)

func TestRunReportsEveryTestOfTheCatalog(t *testing.T) {
	var assertionLine int
	tests := NewCatalogBuilder(0).
		Add("A", func(t *T) {}).
		Add("B", func(t *T) {}).
		Add("C", func(t *T) {
			assertionLine = currentLine() + 1
			t.Assert(1+1 == 3)
		}).
		Add("D", func(t *T) { t.Debugf("Hello %d", 2) }).
		Build()

	out := runCatalog(t, tests)
	require.NoError(t, out.err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, out.functions(telemetry.KindRegister))
	for i := 0; i < 4; i++ {
		assert.Equal(t, telemetry.KindRegister, out.records[i].Kind())
	}
	m.In(t).Assert(out.functions(telemetry.KindStatus),
		m.ItemsInAnyOrder(m.Equal("A"), m.Equal("B"), m.Equal("C"), m.Equal("D")))

	c := out.collect(t)
	assert.Empty(t, c.Pending())
	for _, name := range []string{"A", "B", "D"} {
		state := c.Test(testProgram, name).Value()
		assert.False(t, state.Failed(), name)
		assert.Empty(t, out.logsFor(name, telemetry.LevelWarning), name)
	}
	assert.True(t, c.Test(testProgram, "C").Value().Failed())

	assert.Equal(t, []string{"Assertion failed at runner_test.go:" + strconv.Itoa(assertionLine)},
		out.logsFor("C", telemetry.LevelWarning))
	assert.Equal(t, []string{"Hello 2"}, out.logsFor("D", telemetry.LevelDebug))

	for _, r := range out.records {
		assert.Equal(t, testProgram, r.Source().Program)
	}
	assert.False(t, out.results.OK())
	assert.Len(t, out.results.Tests, 4)
	if assert.Len(t, out.results.Failures, 1) {
		assert.Equal(t, "C", out.results.Failures[0].Name)
	}
}

func TestRunEmitsOneRegisterAndOneStatusPerTest(t *testing.T) {
	for _, n := range []int{0, 1, 4, 50} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			b := NewCatalogBuilder(MinStackSize)
			var names []string
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("test%d", i)
				names = append(names, name)
				b.Add(name, func(t *T) { t.Infof("running %s", t.Name()) })
			}

			out := runCatalog(t, b.Build())
			require.NoError(t, out.err)

			assert.Equal(t, names, out.functions(telemetry.KindRegister))
			assert.Equal(t, helpers.Sorted(names), helpers.Sorted(out.functions(telemetry.KindStatus)))
			assert.Len(t, out.ofKind(telemetry.KindLog), n)
			assert.Len(t, out.records, 3*n)
			assert.Empty(t, out.collect(t).Violations())
			assert.True(t, out.results.OK())
		})
	}
}

func TestRegisterRecordsPrecedeEverythingElse(t *testing.T) {
	b := NewCatalogBuilder(0)
	for i := 0; i < 20; i++ {
		b.Add(fmt.Sprintf("test%d", i), func(t *T) { t.Debugf("started") })
	}
	out := runCatalog(t, b.Build())
	require.NoError(t, out.err)

	for i, r := range out.records {
		if i < 20 {
			assert.Equal(t, telemetry.KindRegister, r.Kind())
		} else {
			assert.NotEqual(t, telemetry.KindRegister, r.Kind())
		}
	}
}

func TestRepeatedRunsProduceTheSameOutcomes(t *testing.T) {
	tests := NewCatalogBuilder(0).
		Add("passes", func(t *T) {}).
		Add("asserts", func(t *T) { t.Assert(false) }).
		Add("fails", func(t *T) { t.FailNow() }).
		Add("logs", func(t *T) { t.Warnf("just a warning") }).
		Build()

	first := runCatalog(t, tests)
	require.NoError(t, first.err)
	for i := 0; i < 5; i++ {
		again := runCatalog(t, tests)
		require.NoError(t, again.err)
		assert.Equal(t, first.results.Outcomes(), again.results.Outcomes())
		assert.Equal(t, tests.Names(), again.functions(telemetry.KindRegister))
	}

	outcomes := first.results.Outcomes()
	assert.Equal(t, Success(), outcomes["passes"])
	assert.Equal(t, Failure(failedWithoutMessage), outcomes["fails"])
	assert.Equal(t, Success(), outcomes["logs"])
	m.In(t).Assert(outcomes["asserts"].Message(), m.StringHasPrefix("Assertion failed at runner_test.go:"))
}

func TestWarningFromTestDoesNotFailIt(t *testing.T) {
	out := runCatalog(t, NewCatalogBuilder(0).Add("warns", func(t *T) { t.Warnf("careful") }).Build())
	require.NoError(t, out.err)

	assert.True(t, out.results.OK())
	assert.Equal(t, []string{"careful"}, out.logsFor("warns", telemetry.LevelWarning))
	assert.False(t, out.collect(t).Test(testProgram, "warns").Value().Failed())
}

func TestFailureMessageIsTruncatedToFitTheRecord(t *testing.T) {
	long := "this message is much longer than the sixty-four bytes that a log record can carry"
	out := runCatalog(t, NewCatalogBuilder(0).Add("long", func(t *T) { t.Require(false, "%s", long) }).Build())
	require.NoError(t, out.err)

	assert.Equal(t, Failure(long), out.results.Outcomes()["long"])
	assert.Equal(t, []string{long[:telemetry.MessageSize-1]}, out.logsFor("long", telemetry.LevelWarning))
}

func TestStartErrorPreventsAnyRegistration(t *testing.T) {
	valid := func(t *T) {}
	tooLong := "a_test_name_that_is_far_too_long_for_the_record"

	cases := []struct {
		name    string
		tests   Catalog
		index   int
		target  error
		badTest string
	}{
		{"nil entry", NewCatalogBuilder(0).Add("a", valid).Add("b", nil).Build(), 1, ErrNilEntry, "b"},
		{"empty name", NewCatalogBuilder(0).Add("", valid).Build(), 0, ErrEmptyName, ""},
		{"NUL in name", NewCatalogBuilder(0).Add("a\x00x", valid).Add("a\x00y", valid).Build(), 0, ErrInvalidName, "a\x00x"},
		{"name too long", NewCatalogBuilder(0).Add("a", valid).Add(tooLong, valid).Build(), 1, ErrNameTooLong, tooLong},
		{"duplicate", NewCatalogBuilder(0).Add("a", valid).Add("b", valid).Add("a", valid).Build(), 2, ErrDuplicateName, "a"},
		{"stack too small", NewCatalogBuilder(0).AddWithStack("a", MinStackSize-1, valid).Build(), 0, ErrInvalidStackSize, "a"},
		{"stack too large", NewCatalogBuilder(0).AddWithStack("a", MaxStackSize+1, valid).Build(), 0, ErrInvalidStackSize, "a"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			out := runCatalog(t, c.tests, func(config *Config) { config.Metrics = metrics })

			var startErr *StartError
			require.ErrorAs(t, out.err, &startErr)
			assert.Equal(t, c.index, startErr.Index)
			assert.Equal(t, c.badTest, startErr.Test)
			assert.ErrorIs(t, out.err, c.target)

			assert.Empty(t, out.records)
			assert.Empty(t, out.results.Tests)
			assert.Empty(t, metrics.launched)
			assert.True(t, out.log.HasMessageMatch(ldlog.Error, "Not starting any tests"))
		})
	}
}

func TestCatalogLargerThanThreadLimitIsNotStarted(t *testing.T) {
	limit := threadReserve() + 3
	b := NewCatalogBuilder(MinStackSize)
	for i := 0; i < 5; i++ {
		b.Add(fmt.Sprintf("test%d", i), func(t *T) {})
	}

	out := runCatalog(t, b.Build(), func(config *Config) { config.ThreadLimit = limit })

	var startErr *StartError
	require.ErrorAs(t, out.err, &startErr)
	assert.Equal(t, 3, startErr.Index)
	assert.Equal(t, "test3", startErr.Test)
	assert.ErrorIs(t, out.err, ErrThreadLimit)
	assert.Contains(t, out.err.Error(), fmt.Sprintf("only 3 of %d threads are available", limit))
	assert.Empty(t, out.records)
	assert.True(t, out.log.HasMessageMatch(ldlog.Error, `Not starting any tests: cannot start test "test3"`))
}

func TestCatalogWithinThreadLimitIsStarted(t *testing.T) {
	tests := NewCatalogBuilder(MinStackSize).
		Add("a", func(t *T) {}).
		Add("b", func(t *T) {}).
		Build()
	out := runCatalog(t, tests, func(config *Config) { config.ThreadLimit = threadReserve() + 2 })
	require.NoError(t, out.err)
	assert.Len(t, out.ofKind(telemetry.KindStatus), 2)
}

func TestThreadLimitNeverExceedsTheRuntimeLimit(t *testing.T) {
	before := runtimeThreadLimit()
	r := newRunner(Config{ThreadLimit: 1 << 30})
	assert.Equal(t, before, r.threadLimit())
	assert.Equal(t, before, runtimeThreadLimit(), "reading the limit must not change it")

	r = newRunner(Config{ThreadLimit: 50})
	assert.Equal(t, 50, r.threadLimit())
}

func TestRunRequiresAnOutput(t *testing.T) {
	_, err := Run(Config{}, NewCatalogBuilder(0).Add("a", func(t *T) {}).Build())
	assert.Equal(t, errNoOutput, err)
}

func TestOutputErrorIsReportedAfterAllTestsFinish(t *testing.T) {
	writeErr := errors.New("broken pipe")
	ran := make(chan string, 3)
	tests := NewCatalogBuilder(0).
		Add("a", func(t *T) { ran <- t.Name() }).
		Add("b", func(t *T) { ran <- t.Name(); t.Debugf("lost") }).
		Add("c", func(t *T) { ran <- t.Name() }).
		Build()

	out := runCatalog(t, tests, func(config *Config) {
		config.Output = sinkFunc(func(telemetry.Record) error { return writeErr })
	})

	assert.ErrorIs(t, out.err, writeErr)
	for i := 0; i < 3; i++ {
		helpers.RequireValue(t, ran, time.Second)
	}
	helpers.RequireNoMoreValues(t, ran, 10*time.Millisecond)
	assert.Len(t, out.results.Tests, 3)
	assert.Len(t, out.log.GetOutput(ldlog.Error), 1)
	assert.True(t, out.log.HasMessageMatch(ldlog.Warn, `Test "b" could not write all of its log records`))
}

func TestMetricsAreReported(t *testing.T) {
	metrics := &recordingMetrics{}
	tests := NewCatalogBuilder(0).
		Add("a", func(t *T) {}).
		Add("b", func(t *T) { t.FailNow() }).
		Build()

	out := runCatalog(t, tests, func(config *Config) { config.Metrics = metrics })
	require.NoError(t, out.err)

	assert.Equal(t, []string{"a", "b"}, metrics.launched)
	assert.Equal(t, []string{"a", "b"}, helpers.Sorted(metrics.finished))
	assert.Equal(t, []string{"b"}, metrics.failed)
	assert.Empty(t, metrics.joinFailed)
	if assert.NotEmpty(t, metrics.sweeps) {
		assert.Equal(t, 0, metrics.sweeps[len(metrics.sweeps)-1])
	}
}

func TestLongRunningTestDoesNotBlockOthers(t *testing.T) {
	gate := helpers.NewGate()
	tests := NewCatalogBuilder(0).
		Add("slow", func(t *T) { gate.Wait(t, 5*time.Second) }).
		Add("fast", func(t *T) {}).
		Build()

	finished := make(chan string, 2)
	logger := &finishRecorder{finished: finished}
	go func() {
		name := <-finished
		if name == "fast" {
			gate.Open()
		}
	}()

	out := runCatalog(t, tests, func(config *Config) { config.TestLogger = logger })
	require.NoError(t, out.err)
	assert.True(t, gate.IsOpen(), "slow test must only finish after fast one was reported")
	assert.Equal(t, []string{"fast", "slow"}, out.functions(telemetry.KindStatus))
	assert.Empty(t, out.logsFor("slow", telemetry.LevelWarning))
}

type finishRecorder struct {
	nullTestLogger
	finished chan<- string
}

func (f *finishRecorder) TestFinished(result TestResult, _ framework.CapturedOutput) {
	helpers.NonBlockingSend(f.finished, result.Name)
}

func TestPollIntervalDefaults(t *testing.T) {
	r := newRunner(Config{})
	assert.Equal(t, DefaultPollIntervalMin, r.config.PollIntervalMin)
	assert.Equal(t, DefaultPollIntervalMax, r.config.PollIntervalMax)

	r = newRunner(Config{PollIntervalMin: time.Second})
	assert.Equal(t, time.Second, r.config.PollIntervalMin)
	assert.Equal(t, time.Second, r.config.PollIntervalMax)

	r = newRunner(Config{PollIntervalMin: time.Millisecond, PollIntervalMax: 5 * time.Millisecond})
	assert.Equal(t, time.Millisecond, r.config.PollIntervalMin)
	assert.Equal(t, 5*time.Millisecond, r.config.PollIntervalMax)
}
