package framework

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the minimal printing interface shared by the standard log package and
// ldlog.BaseLogger.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

// CapturedMessage is one line of a test's captured output. Source says where the line came
// from, such as a log level; it is empty for lines written through the Logger methods.
type CapturedMessage struct {
	Time    time.Time
	Source  string
	Message string
}

func (m CapturedMessage) String() string {
	if m.Source == "" {
		return fmt.Sprintf("[%s] %s", m.Time.Format(timestampFormat), m.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", m.Time.Format(timestampFormat), m.Source, m.Message)
}

type CapturedOutput []CapturedMessage

// ToString formats the output one message per line, each line starting with prefix.
func (output CapturedOutput) ToString(prefix string) string {
	var b strings.Builder
	for i, m := range output {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(prefix)
		b.WriteString(m.String())
	}
	return b.String()
}

// CapturingLogger keeps everything a test logs so that it can be shown after the test
// finishes. The test's own goroutine writes to it while the controlling goroutine reads it.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	l.Capture("", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.Capture("", fmt.Sprintf(message, args...))
}

// Capture adds a message attributed to source.
func (l *CapturingLogger) Capture(source, message string) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Source: source, Message: message})
	l.lock.Unlock()
}

// Output returns a copy of everything captured so far.
func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return slices.Clone(l.output)
}
