package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/testrt/threadharness/framework/config"
	"github.com/testrt/threadharness/framework/runtest"
)

type commandParams struct {
	programName    string
	configFile     string
	overrides      config.Config
	filters        runtest.RegexFilters
	debug          bool
	debugAll       bool
	skipFile       string
	recordFailures string
}

// Read parses the command line. The program identifier defaults to args[0], the name the
// program was invoked with.
func (c *commandParams) Read(args []string, errOut io.Writer) bool {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&c.configFile, "config", "", "read settings from a .yaml, .yml or .toml file")
	fs.StringVar(&c.overrides.Program, "program", "", "program identifier written in every record (default: the invocation name)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.skipFile, "skip-from", "", "file listing names of tests not to run, one per line")
	fs.BoolVar(&c.overrides.Verbose, "v", false, "print test progress to standard error")
	fs.BoolVar(&c.debug, "debug", false, "show captured debug output for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "show captured debug output for all tests, and harness debug logging")
	fs.StringVar(&c.overrides.JUnitFile, "junit", "", "write JUnit XML output to the specified path")
	fs.StringVar(&c.overrides.MetricsFile, "metrics", "", "write a Prometheus textfile of harness counters to the specified path")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write names of failed tests to the specified path")
	fs.DurationVar(&c.overrides.PollIntervalMin, "poll-min", 0, fmt.Sprintf("shortest delay between polls (default %s)", runtest.DefaultPollIntervalMin))
	fs.DurationVar(&c.overrides.PollIntervalMax, "poll-max", 0, fmt.Sprintf("longest delay between polls (default %s)", runtest.DefaultPollIntervalMax))
	fs.IntVar(&c.overrides.DefaultStackSize, "stack-size", 0, "stack size in bytes for tests that do not request one")
	fs.IntVar(&c.overrides.ThreadLimit, "thread-limit", 0, "maximum number of OS threads, if lower than the runtime's limit")

	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	if fs.NArg() != 0 {
		_, _ = fmt.Fprintf(errOut, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return false
	}
	c.programName = args[0]
	return true
}

// settings combines the config file, if any, with the command line; the command line wins.
func (c *commandParams) settings() (config.Config, error) {
	var fromFile config.Config
	if c.configFile != "" {
		var err error
		if fromFile, err = config.Load(c.configFile); err != nil {
			return config.Config{}, err
		}
	}
	ret := fromFile.Merge(c.overrides)
	if ret.Program == "" {
		ret.Program = c.programName
	}
	if c.debugAll {
		ret.LogLevel = "debug"
	}
	if err := ret.Validate(); err != nil {
		return config.Config{}, err
	}
	return ret, nil
}
