// Command telemetrydump decodes a captured telemetry stream and prints what happened to
// each test.
//
//	threadharness | telemetrydump
//	telemetrydump -json captured.bin
//
// It exits with status 1 if any test failed or never finished, or if the stream is
// malformed, and with status 2 for bad arguments.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/testrt/threadharness/framework/report"
	"github.com/testrt/threadharness/framework/telemetry"
)

type commandParams struct {
	json     bool
	showLogs bool
	noColor  bool
	input    string
}

func (c *commandParams) Read(args []string, errOut io.Writer) bool {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.BoolVar(&c.json, "json", false, "print a JSON document instead of a table")
	fs.BoolVar(&c.showLogs, "logs", false, "show every log record in the table")
	fs.BoolVar(&c.noColor, "no-color", false, "do not color the status column")
	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	switch fs.NArg() {
	case 0:
	case 1:
		c.input = fs.Arg(0)
	default:
		_, _ = fmt.Fprintln(errOut, "at most one input file may be given")
		fs.Usage()
		return false
	}
	return true
}

func main() {
	var params commandParams
	if !params.Read(os.Args, os.Stderr) {
		os.Exit(2)
	}
	os.Exit(run(params, os.Stdin, os.Stdout, os.Stderr))
}

func run(params commandParams, stdin io.Reader, out, errOut io.Writer) int {
	in := stdin
	if params.input != "" && params.input != "-" {
		f, err := os.Open(params.input)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %s\n", err)
			return 2
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	c, decodeErr := telemetry.Collect(telemetry.NewDecoder(in))

	if params.json {
		if err := report.WriteJSON(out, c); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %s\n", err)
			return 1
		}
	} else {
		report.WriteTable(out, c, report.TableOptions{
			Color:    !params.noColor && !color.NoColor,
			ShowLogs: params.showLogs,
		})
	}

	if decodeErr != nil {
		_, _ = fmt.Fprintf(errOut, "Error: malformed stream after %d tests: %s\n", len(c.Tests()), decodeErr)
		return 1
	}
	if !report.Summarize(c).OK() {
		return 1
	}
	return 0
}
