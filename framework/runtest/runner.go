package runtest

import (
	"errors"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/testrt/threadharness/framework/catalog"
	"github.com/testrt/threadharness/framework/telemetry"
)

// Descriptor declares one test.
type Descriptor = catalog.Descriptor[TestFunc]

// Catalog is the ordered list of tests a program runs.
type Catalog = catalog.Catalog[TestFunc]

// NewCatalogBuilder returns a builder for a Catalog. A non-positive default stack size
// means catalog.DefaultStackSize.
func NewCatalogBuilder(defaultStackSize int) *catalog.Builder[TestFunc] {
	return catalog.NewBuilder[TestFunc](defaultStackSize)
}

// Default bounds for the delay between two sweeps of the poller.
const (
	DefaultPollIntervalMin = 100 * time.Microsecond
	DefaultPollIntervalMax = 10 * time.Millisecond
)

// Sink receives telemetry records. It is called from the goroutine that called Run and
// from every test goroutine, so implementations must be safe for concurrent use and must
// write each record as a unit. *telemetry.Emitter is the usual implementation.
type Sink interface {
	Emit(r telemetry.Record) error
}

// Config contains options for a run.
type Config struct {
	// Program is the identifier carried by every record, normally the program's argv[0].
	Program string

	// Output receives the telemetry records. It is required.
	Output Sink

	// TestLogger optionally receives status information about each test.
	TestLogger TestLogger

	// Metrics optionally receives run counters.
	Metrics Metrics

	// Loggers receives diagnostics about the harness itself.
	Loggers ldlog.Loggers

	// ThreadLimit optionally lowers the number of OS threads the process may use, which
	// otherwise is the runtime's limit (see debug.SetMaxThreads). Each test holds one thread
	// while it runs, and a catalog that could exceed the limit is not started.
	ThreadLimit int

	// PollIntervalMin and PollIntervalMax bound the delay between sweeps. The delay starts
	// at the minimum, doubles after every sweep in which no test finished, and goes back to
	// the minimum as soon as one does.
	PollIntervalMin time.Duration
	PollIntervalMax time.Duration
}

type runner struct {
	config  Config
	results Results
	emitErr error
	sleep   func(time.Duration)
}

var errNoOutput = errors.New("no telemetry output configured")

// Run launches every test of the catalog, waits for all of them to finish, and reports
// each one on the configured output.
//
// A *StartError means the catalog could not be launched and nothing was registered. A
// *JoinError (possibly several, joined) means some tests could not be observed; every other
// test was still reported. An error from the output is returned after all tests finished.
// Test failures are not errors; they are in the Results.
func Run(config Config, tests Catalog) (Results, error) {
	if config.Output == nil {
		return Results{}, errNoOutput
	}
	r := newRunner(config)
	running, err := r.launch(tests)
	if err != nil {
		return r.results, err
	}
	joinErr := r.poll(running)
	return r.results, errors.Join(joinErr, r.emitErr)
}

func newRunner(config Config) *runner {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = nullMetrics{}
	}
	if config.PollIntervalMin <= 0 {
		config.PollIntervalMin = DefaultPollIntervalMin
	}
	if config.PollIntervalMax < config.PollIntervalMin {
		config.PollIntervalMax = max(DefaultPollIntervalMax, config.PollIntervalMin)
	}
	return &runner{config: config, sleep: time.Sleep}
}

func (r *runner) origin(name string) telemetry.Origin {
	return telemetry.Origin{Program: r.config.Program, Function: name}
}

// emit writes a record from the controlling goroutine. The first failure is logged and
// kept; later records are still attempted so that the output sees as much as it can.
func (r *runner) emit(record telemetry.Record) error {
	err := r.config.Output.Emit(record)
	if err != nil && r.emitErr == nil {
		r.emitErr = err
		r.config.Loggers.Errorf("Telemetry output failed: %s", err)
	}
	return err
}
