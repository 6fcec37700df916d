package telemetry

import "fmt"

// Field capacities on the wire, in bytes, including the terminating NUL.
const (
	ProgramNameSize  = 64
	FunctionNameSize = 32
	MessageSize      = 64
)

// Kind is the discriminator written at the start of every record.
type Kind uint32

const (
	KindRegister Kind = 0
	KindStatus   Kind = 1
	KindLog      Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "Register"
	case KindStatus:
		return "Status"
	case KindLog:
		return "Log"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Result is the final outcome carried by a Status record.
type Result uint32

const (
	ResultSuccess Result = 0
	ResultFail    Result = 1
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultFail:
		return "Fail"
	default:
		return fmt.Sprintf("Result(%d)", uint32(r))
	}
}

// Level is the severity carried by a Log record.
type Level uint32

const (
	LevelDebug   Level = 0
	LevelInfo    Level = 1
	LevelWarning Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarning:
		return "Warning"
	default:
		return fmt.Sprintf("Level(%d)", uint32(l))
	}
}

// Record is one telemetry event: a Register, Status or Log value. The Kind of each is fixed
// by its type, so a record can never be encoded under the wrong tag.
type Record interface {
	Kind() Kind
	Source() Origin
}

// Origin identifies the program and test function a record belongs to.
type Origin struct {
	Program  string
	Function string
}

// Source returns the origin itself; it is promoted to every record type.
func (o Origin) Source() Origin { return o }

// Register signals that a test has been scheduled to run.
type Register struct {
	Origin
}

// Status signals the final outcome of a test.
type Status struct {
	Origin
	Result Result
}

// Log is a leveled diagnostic message correlated to a test.
type Log struct {
	Origin
	Level   Level
	Message string
}

func (Register) Kind() Kind { return KindRegister }
func (Status) Kind() Kind   { return KindStatus }
func (Log) Kind() Kind      { return KindLog }

func (r Register) String() string {
	return fmt.Sprintf("[Register] %s/%s", r.Program, r.Function)
}

func (s Status) String() string {
	return fmt.Sprintf("[Status] %s/%s: %s", s.Program, s.Function, s.Result)
}

func (l Log) String() string {
	return fmt.Sprintf("[Log] %s/%s %s: %s", l.Program, l.Function, l.Level, l.Message)
}
