package telemetry

import (
	"bytes"
	"testing"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorPairsRecords(t *testing.T) {
	a := Origin{Program: "p", Function: "a"}
	b := Origin{Program: "p", Function: "b"}
	data := encodeAll(t,
		Register{Origin: a},
		Register{Origin: b},
		Log{Origin: b, Level: LevelWarning, Message: "Assertion failed at x.go:10"},
		Status{Origin: b, Result: ResultFail},
		Status{Origin: a, Result: ResultSuccess},
	)

	c, err := Collect(NewDecoder(bytes.NewReader(data)))
	require.NoError(t, err)

	tests := c.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, a, tests[0].Origin)
	assert.False(t, tests[0].Failed())
	assert.Equal(t, b, tests[1].Origin)
	assert.True(t, tests[1].Failed())
	require.Len(t, tests[1].Logs, 1)
	m.In(t).Assert(tests[1].Logs[0].Message, m.StringHasPrefix("Assertion failed at "))

	assert.Len(t, c.Violations(), 0)
	assert.Len(t, c.Pending(), 0)
	assert.False(t, c.OK())
	assert.Equal(t, []string{"p"}, c.Programs())
}

func TestCollectorReportsViolations(t *testing.T) {
	a := Origin{Program: "p", Function: "a"}
	c := NewCollector()

	assert.Error(t, c.Add(Status{Origin: a}))
	assert.Error(t, c.Add(Log{Origin: a}))
	assert.NoError(t, c.Add(Register{Origin: a}))
	assert.Error(t, c.Add(Register{Origin: a}))
	assert.NoError(t, c.Add(Status{Origin: a}))
	err := c.Add(Status{Origin: a})
	require.Error(t, err)
	assert.Equal(t, "Status record for p/a: duplicate status", err.Error())

	assert.Len(t, c.Violations(), 4)
	assert.False(t, c.OK())
}

func TestCollectorPending(t *testing.T) {
	c := NewCollector()
	a := Origin{Program: "p", Function: "a"}
	require.NoError(t, c.Add(Register{Origin: a}))

	assert.Equal(t, []Origin{a}, c.Pending())
	assert.False(t, c.OK())
	assert.True(t, c.Test("p", "a").IsDefined())
	assert.False(t, c.Test("p", "b").IsDefined())
}

func TestCollectorEmptyStreamIsOK(t *testing.T) {
	c, err := Collect(NewDecoder(bytes.NewReader(nil)))
	require.NoError(t, err)
	assert.True(t, c.OK())
	assert.Len(t, c.Tests(), 0)
}
