// Package metrics exports run counters to Prometheus collectors, so that a run can leave
// behind a node_exporter textfile describing what it did.
package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/testrt/threadharness/framework/runtest"
)

// DefaultNamespace prefixes every metric name unless another namespace is given.
const DefaultNamespace = "threadharness"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// Exporter adapts runtest.Metrics to Prometheus collectors. Every series is labeled with
// the program identifier.
type Exporter struct {
	program string

	testsLaunched       *prom.CounterVec
	testsFinished       *prom.CounterVec
	testDurationSeconds *prom.HistogramVec
	joinFailures        *prom.CounterVec
	sweeps              *prom.CounterVec
	waitingTests        *prom.GaugeVec
}

var _ runtest.Metrics = (*Exporter)(nil)

// NewExporter creates and registers the collectors. Collectors that are already registered
// with reg are reused, so several exporters may share one registry.
func NewExporter(namespace, program string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.0001, 4, 10)
	}

	launchedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tests_launched_total",
		Help:      "Total number of tests started on their own thread.",
	}, []string{"program"})
	finishedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tests_finished_total",
		Help:      "Total number of tests that reported a status, by result.",
	}, []string{"program", "result"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "test_duration_seconds",
		Help:      "Time from a test's start until the poller observed its completion.",
		Buckets:   buckets,
	}, []string{"program"})
	joinFailuresVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "join_failures_total",
		Help:      "Total number of tests whose completion could not be observed.",
	}, []string{"program"})
	sweepsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "poll_sweeps_total",
		Help:      "Total number of sweeps over the running tests.",
	}, []string{"program"})
	waitingVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "waiting_tests",
		Help:      "Number of tests still running after the latest sweep.",
	}, []string{"program"})

	var err error
	if launchedVec, err = registerCollector(reg, launchedVec); err != nil {
		return nil, err
	}
	if finishedVec, err = registerCollector(reg, finishedVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if joinFailuresVec, err = registerCollector(reg, joinFailuresVec); err != nil {
		return nil, err
	}
	if sweepsVec, err = registerCollector(reg, sweepsVec); err != nil {
		return nil, err
	}
	if waitingVec, err = registerCollector(reg, waitingVec); err != nil {
		return nil, err
	}

	return &Exporter{
		program:             normalizeLabel(program, "unknown"),
		testsLaunched:       launchedVec,
		testsFinished:       finishedVec,
		testDurationSeconds: durationVec,
		joinFailures:        joinFailuresVec,
		sweeps:              sweepsVec,
		waitingTests:        waitingVec,
	}, nil
}

// TestLaunched implements runtest.Metrics.
func (m *Exporter) TestLaunched(string) {
	if m == nil {
		return
	}
	m.testsLaunched.WithLabelValues(m.program).Inc()
	m.waitingTests.WithLabelValues(m.program).Inc()
}

// TestFinished implements runtest.Metrics.
func (m *Exporter) TestFinished(_ string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.testsFinished.WithLabelValues(m.program, resultLabel(failed)).Inc()
	m.testDurationSeconds.WithLabelValues(m.program).Observe(duration.Seconds())
}

// SweepCompleted implements runtest.Metrics.
func (m *Exporter) SweepCompleted(waiting int) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(m.program).Inc()
	m.waitingTests.WithLabelValues(m.program).Set(float64(waiting))
}

// JoinFailed implements runtest.Metrics.
func (m *Exporter) JoinFailed(string) {
	if m == nil {
		return
	}
	m.joinFailures.WithLabelValues(m.program).Inc()
}

// WriteTextfile writes everything gathered from g to path in the text exposition format,
// replacing the file atomically.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func resultLabel(failed bool) string {
	if failed {
		return "fail"
	}
	return "success"
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
