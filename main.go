package main

import (
	"bufio"
	_ "embed" // this is required in order for go:embed to work
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/testrt/threadharness/framework/config"
	"github.com/testrt/threadharness/framework/metrics"
	"github.com/testrt/threadharness/framework/runtest"
	"github.com/testrt/threadharness/framework/telemetry"
)

// Exit statuses. Test outcomes are never reflected here; they exist only in the telemetry
// stream. Status 2 is left unused because the Go runtime exits with it on a fatal error.
const (
	exitOK                = 0
	exitReportFailure     = 1
	exitStartFailure      = 3
	exitSchedulingFailure = 4
	exitTelemetryFailure  = 5
	exitBadArguments      = 6
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	var params commandParams
	if !params.Read(os.Args, os.Stderr) {
		os.Exit(exitBadArguments)
	}
	os.Exit(run(params, os.Stdout, os.Stderr))
}

// run executes the sample catalog, writing telemetry to out and everything meant for people
// to errOut, and returns the exit status.
func run(params commandParams, out, errOut io.Writer) int {
	settings, err := params.settings()
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %s\n", err)
		return exitBadArguments
	}
	loggers := newLoggers(settings, errOut)
	if settings.Verbose {
		loggers.Infof("threadharness v%s", strings.TrimSpace(versionString))
	}

	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			loggers.Error(err)
			return exitBadArguments
		}
	}

	all := sampleCatalog(settings.DefaultStackSize)
	tests := params.filters.Apply(all)
	if settings.Verbose {
		runtest.PrintFilterDescription(errOut, params.filters, all.Len(), tests.Len())
	}

	var testLoggers runtest.MultiTestLogger
	if settings.Verbose {
		testLoggers = append(testLoggers, &runtest.ConsoleTestLogger{
			Out:                  errOut,
			DebugOutputOnFailure: params.debug || params.debugAll,
			DebugOutputOnSuccess: params.debugAll,
		})
	}
	var junitLogger *runtest.JUnitTestLogger
	if settings.JUnitFile != "" {
		junitLogger = runtest.NewJUnitTestLogger(settings.JUnitFile, settings.Program, params.filters)
		testLoggers = append(testLoggers, junitLogger)
	}

	var registry *prom.Registry
	var exporter runtest.Metrics
	if settings.MetricsFile != "" {
		registry = prom.NewRegistry()
		e, err := metrics.NewExporter(metrics.DefaultNamespace, settings.Program, registry, metrics.ExporterOptions{})
		if err != nil {
			loggers.Errorf("Cannot set up metrics: %s", err)
			return exitBadArguments
		}
		exporter = e
	}

	results, runErr := runtest.Run(runtest.Config{
		Program:         settings.Program,
		Output:          telemetry.NewEmitter(out),
		TestLogger:      testLoggers,
		Metrics:         exporter,
		Loggers:         loggers,
		ThreadLimit:     settings.ThreadLimit,
		PollIntervalMin: settings.PollIntervalMin,
		PollIntervalMax: settings.PollIntervalMax,
	}, tests)

	status := exitStatus(runErr)
	if status == exitStartFailure {
		// written directly so that it is seen even when harness logging is turned off
		_, _ = fmt.Fprintf(errOut, "Error: %s\n", runErr)
		return status
	}
	if settings.Verbose {
		runtest.PrintResults(errOut, results)
	}

	if reportErr := writeReports(params, settings, junitLogger, registry, results); reportErr != nil {
		loggers.Error(reportErr)
		if status == exitOK {
			status = exitReportFailure
		}
	}
	return status
}

func exitStatus(err error) int {
	var startErr *runtest.StartError
	var joinErr *runtest.JoinError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &startErr):
		return exitStartFailure
	case errors.As(err, &joinErr):
		return exitSchedulingFailure
	default:
		return exitTelemetryFailure
	}
}

func newLoggers(settings config.Config, errOut io.Writer) ldlog.Loggers {
	loggers := ldlog.NewDefaultLoggers()
	loggers.SetBaseLogger(log.New(errOut, "[threadharness] ", log.LstdFlags))
	level, _ := settings.MinLogLevel() // already validated
	loggers.SetMinLevel(level)
	return loggers
}

func writeReports(
	params commandParams,
	settings config.Config,
	junitLogger *runtest.JUnitTestLogger,
	registry *prom.Registry,
	results runtest.Results,
) error {
	var errs []error
	if junitLogger != nil {
		if err := junitLogger.EndLog(); err != nil {
			errs = append(errs, fmt.Errorf("error writing JUnit file: %w", err))
		}
	}
	if registry != nil {
		if err := metrics.WriteTextfile(settings.MetricsFile, registry); err != nil {
			errs = append(errs, err)
		}
	}
	if params.recordFailures != "" {
		if err := recordFailures(params.recordFailures, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func recordFailures(path string, results runtest.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create failures file: %w", err)
	}
	for _, test := range results.Failures {
		_, _ = fmt.Fprintln(f, test.Name)
	}
	return f.Close()
}

// loadSuppressions reads the -skip-from file; every line is the exact name of a test
// that should not run.
func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Ignore blank lines
		if line == "" {
			continue
		}
		escaped := "^" + regexp.QuoteMeta(line) + "$"
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}
