// Package report renders a collected telemetry stream for people (a table) or for other
// tools (a JSON document).
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/testrt/threadharness/framework/telemetry"
)

const statusPending = "Pending"

var statusSuccessColor = color.New(color.FgGreen)  //nolint:gochecknoglobals
var statusFailColor = color.New(color.FgRed)       //nolint:gochecknoglobals
var statusPendingColor = color.New(color.FgYellow) //nolint:gochecknoglobals

// Summary counts the tests of a stream by state.
type Summary struct {
	Total      int
	Passed     int
	Failed     int
	Pending    int
	Violations int
}

// OK returns true if every test passed and the stream followed the protocol.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Pending == 0 && s.Violations == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tests: %d passed, %d failed, %d pending; %d protocol violations",
		s.Total, s.Passed, s.Failed, s.Pending, s.Violations)
}

// Summarize counts the tests a Collector has seen.
func Summarize(c *telemetry.Collector) Summary {
	s := Summary{Violations: len(c.Violations())}
	for _, t := range c.Tests() {
		s.Total++
		switch {
		case !t.Finished():
			s.Pending++
		case t.Failed():
			s.Failed++
		default:
			s.Passed++
		}
	}
	return s
}

// TableOptions controls table rendering.
type TableOptions struct {
	// Color enables colored status cells.
	Color bool
	// ShowLogs adds a row for every Log record under its test.
	ShowLogs bool
}

// WriteTable renders every test of the stream, in registration order, followed by any
// protocol violations.
func WriteTable(w io.Writer, c *telemetry.Collector, opts TableOptions) {
	summary := Summarize(c)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Telemetry (%s)", summary)
	t.AppendHeader(table.Row{"Program", "Test", "Status", "Logs", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Program", AutoMerge: true},
		{Name: "Logs", Align: text.AlignRight},
		{Name: "Message", WidthMax: 64, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, test := range c.Tests() {
		t.AppendRow(table.Row{
			test.Program,
			test.Function,
			statusString(test, opts.Color),
			len(test.Logs),
			failureMessage(test),
		})
		if opts.ShowLogs {
			for _, l := range test.Logs {
				t.AppendRow(table.Row{test.Program, "", "", l.Level.String(), l.Message})
			}
		}
	}
	t.AppendFooter(table.Row{"TOTAL", summary.Total, "", "", ""})
	t.Render()

	for _, v := range c.Violations() {
		_, _ = fmt.Fprintf(w, "protocol violation: %s\n", v)
	}
}

// WriteJSON writes the stream as one JSON document.
func WriteJSON(w io.Writer, c *telemetry.Collector) error {
	summary := Summarize(c)
	jw := jwriter.NewWriter()
	obj := jw.Object()
	obj.Name("ok").Bool(summary.OK())

	counts := obj.Name("summary").Object()
	counts.Name("total").Int(summary.Total)
	counts.Name("passed").Int(summary.Passed)
	counts.Name("failed").Int(summary.Failed)
	counts.Name("pending").Int(summary.Pending)
	counts.End()

	tests := obj.Name("tests").Array()
	for _, test := range c.Tests() {
		testObj := tests.Object()
		testObj.Name("program").String(test.Program)
		testObj.Name("function").String(test.Function)
		testObj.Name("status").String(statusString(test, false))
		logs := testObj.Name("logs").Array()
		for _, l := range test.Logs {
			logObj := logs.Object()
			logObj.Name("level").String(l.Level.String())
			logObj.Name("message").String(l.Message)
			logObj.End()
		}
		logs.End()
		testObj.End()
	}
	tests.End()

	violations := obj.Name("violations").Array()
	for _, v := range c.Violations() {
		violations.String(v.Error())
	}
	violations.End()
	obj.End()

	if err := jw.Error(); err != nil {
		return err
	}
	data := append(jw.Bytes(), '\n')
	_, err := w.Write(data)
	return err
}

func statusString(test telemetry.TestState, colored bool) string {
	var status string
	var c *color.Color
	switch {
	case !test.Finished():
		status, c = statusPending, statusPendingColor
	case test.Failed():
		status, c = test.Status.Value().String(), statusFailColor
	default:
		status, c = test.Status.Value().String(), statusSuccessColor
	}
	if colored {
		return c.Sprint(status)
	}
	return status
}

// failureMessage returns the message of the last Warning logged for a failed test, which
// is the one the harness writes with the failure.
func failureMessage(test telemetry.TestState) string {
	if !test.Failed() {
		return ""
	}
	for i := len(test.Logs) - 1; i >= 0; i-- {
		if test.Logs[i].Level == telemetry.LevelWarning {
			return test.Logs[i].Message
		}
	}
	return ""
}
