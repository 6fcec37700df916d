package runtest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/testrt/threadharness/framework"
)

// JUnitTestLogger collects the outcome of every test and writes them as a single JUnit
// test suite when EndLog is called.
type JUnitTestLogger struct {
	filePath string
	program  string
	filters  RegexFilters
	names    []string // this slice preserves the order that the tests were started in
	tests    map[string]jUnitTestStatus
	lock     sync.Mutex
}

type jUnitTestStatus struct {
	errors   []string
	failure  string
	failed   bool
	finished bool
	output   string
	duration time.Duration
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Errors     int                `xml:"errors,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName   xml.Name         `xml:"testcase"`
	Classname string           `xml:"classname,attr"`
	Name      string           `xml:"name,attr"`
	Time      string           `xml:"time,attr"`
	Failure   *jUnitXMLFailure `xml:"failure,omitempty"`
	Error     *jUnitXMLFailure `xml:"error,omitempty"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr,omitempty"`
	Contents string `xml:",chardata"`
}

func NewJUnitTestLogger(filePath string, program string, filters RegexFilters) *JUnitTestLogger {
	return &JUnitTestLogger{
		filePath: filePath,
		program:  program,
		filters:  filters,
		tests:    make(map[string]jUnitTestStatus),
	}
}

func (j *JUnitTestLogger) TestStarted(name string) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.names = append(j.names, name)
	j.tests[name] = jUnitTestStatus{}
}

func (j *JUnitTestLogger) TestError(name string, err error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[name]
	status.errors = append(status.errors, err.Error())
	j.tests[name] = status
}

func (j *JUnitTestLogger) TestFinished(result TestResult, debugOutput framework.CapturedOutput) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[result.Name]
	status.finished = true
	status.failed = result.Outcome.Failed()
	status.failure = result.Outcome.Message()
	status.output = debugOutput.ToString("")
	status.duration = result.Duration
	j.tests[result.Name] = status
}

// EndLog writes the report file. A test that was started but never finished is reported as
// an error rather than a failure, since its outcome is unknown.
func (j *JUnitTestLogger) EndLog() error {
	j.lock.Lock()
	defer j.lock.Unlock()

	suite := jUnitXMLTestSuite{
		Name: fmt.Sprintf("Thread harness: %s", j.program),
		Properties: []jUnitXMLProperty{
			{Name: "tests.program", Value: j.program},
			{Name: "tests.filter.mustMatch", Value: j.filters.MustMatch.String()},
			{Name: "tests.filter.mustNotMatch", Value: j.filters.MustNotMatch.String()},
		},
	}
	totalDuration := time.Duration(0)
	for _, name := range j.names {
		status := j.tests[name]
		suite.Tests++
		totalDuration += status.duration

		testCase := jUnitXMLTestCase{
			Classname: j.program,
			Name:      name,
			Time:      jUnitDurationString(status.duration),
		}
		switch {
		case !status.finished:
			suite.Errors++
			testCase.Error = &jUnitXMLFailure{Message: "test did not report an outcome"}
		case status.failed:
			suite.Failures++
			messages := append([]string(nil), status.errors...)
			if len(messages) == 0 || messages[len(messages)-1] != status.failure {
				messages = append(messages, status.failure)
			}
			testCase.Failure = &jUnitXMLFailure{
				Message:  strings.Join(messages, "\n"),
				Contents: status.output,
			}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}
	suite.Time = jUnitDurationString(totalDuration)

	bytes, err := xml.MarshalIndent(jUnitXMLDocument{Suites: []jUnitXMLTestSuite{suite}}, "", "  ")
	if err != nil {
		return err
	}
	bytes = append(bytes, '\n')

	return os.WriteFile(j.filePath, bytes, 0644) //nolint:gosec
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
