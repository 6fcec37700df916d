package runtest

import (
	"errors"

	"github.com/testrt/threadharness/framework"
	"github.com/testrt/threadharness/framework/opt"
	"github.com/testrt/threadharness/framework/telemetry"
)

// poll sweeps the running tests until every one of them has finished or failed to join.
// Each sweep visits the tests in catalog order and never blocks on any of them, so tests
// that finished together are reported in catalog order. Between sweeps it sleeps for a
// bounded, exponentially growing interval.
func (r *runner) poll(tests []running) error {
	waiting := append([]running(nil), tests...)
	interval := r.config.PollIntervalMin
	var joinErrs []error

	for len(waiting) > 0 {
		reaped := 0
		remaining := waiting[:0]
		for _, t := range waiting {
			completion, err := tryJoin(t.handle)
			if err != nil {
				reaped++
				joinErr := &JoinError{Test: t.descriptor.Name, Err: err}
				joinErrs = append(joinErrs, joinErr)
				r.config.Loggers.Errorf("%s", joinErr)
				r.config.Metrics.JoinFailed(t.descriptor.Name)
				continue
			}
			done, ok := completion.Get()
			if !ok {
				remaining = append(remaining, t)
				continue
			}
			reaped++
			r.report(t, done)
		}
		waiting = remaining
		r.config.Metrics.SweepCompleted(len(waiting))
		if len(waiting) == 0 {
			break
		}

		if reaped > 0 {
			interval = r.config.PollIntervalMin
		}
		r.sleep(interval)
		if reaped == 0 {
			interval = min(interval*2, r.config.PollIntervalMax)
		}
	}
	return errors.Join(joinErrs...)
}

func tryJoin(j Joiner) (opt.Maybe[Completion], error) {
	if j == nil {
		return opt.None[Completion](), ErrNilHandle
	}
	return j.TryJoin()
}

// report classifies a finished test and writes its Status record, followed by a Warning
// record with the failure message if it failed.
func (r *runner) report(t running, completion Completion) {
	name := t.descriptor.Name
	outcome := Classify(completion.Payload)

	status := telemetry.Status{Origin: r.origin(name), Result: telemetry.ResultSuccess}
	if outcome.Failed() {
		status.Result = telemetry.ResultFail
	}
	_ = r.emit(status)
	if outcome.Failed() {
		_ = r.emit(telemetry.Log{Origin: r.origin(name), Level: telemetry.LevelWarning, Message: outcome.Message()})
	}
	if t.scope != nil && t.scope.emitErr != nil {
		r.config.Loggers.Warnf("Test %q could not write all of its log records: %s", name, t.scope.emitErr)
	}

	result := TestResult{Name: name, Outcome: outcome, Duration: completion.Duration}
	r.results.Tests = append(r.results.Tests, result)
	if outcome.Failed() {
		r.results.Failures = append(r.results.Failures, result)
	}
	var debugOutput framework.CapturedOutput
	if t.scope != nil {
		debugOutput = t.scope.debugLogger.Output()
	}
	r.config.TestLogger.TestFinished(result, debugOutput)
	r.config.Metrics.TestFinished(name, outcome.Failed(), completion.Duration)
}
