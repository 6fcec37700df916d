package runtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testrt/threadharness/framework/opt"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, Success(), Classify(opt.None[string]()))
	assert.Equal(t, Failure("Assertion failed at x.go:10"), Classify(opt.Some("Assertion failed at x.go:10")))

	empty := Classify(opt.Some(""))
	assert.True(t, empty.Failed())
	assert.Equal(t, "", empty.Message())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Success", Success().String())
	assert.Equal(t, "Failure(oops)", Failure("oops").String())
	assert.False(t, Success().Failed())
	assert.Equal(t, "", Success().Message())
}

func TestResultsOutcomes(t *testing.T) {
	r := Results{Tests: []TestResult{{Name: "a", Outcome: Success()}, {Name: "b", Outcome: Failure("x")}}}
	assert.True(t, r.OK())
	assert.Equal(t, map[string]Outcome{"a": Success(), "b": Failure("x")}, r.Outcomes())

	r.Failures = r.Tests[1:]
	assert.False(t, r.OK())
}
