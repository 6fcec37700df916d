package runtest

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var (
	ErrNilEntry         = errors.New("test has no entry function")
	ErrEmptyName        = errors.New("test name is empty")
	ErrInvalidName      = errors.New("test name contains a NUL byte")
	ErrNameTooLong      = errors.New("test name does not fit in a telemetry record")
	ErrDuplicateName    = errors.New("test name is declared more than once")
	ErrInvalidStackSize = errors.New("requested stack size is out of range")
	ErrThreadLimit      = errors.New("not enough OS threads for one per test")

	ErrNilHandle     = errors.New("test has no handle")
	ErrAlreadyJoined = errors.New("test handle was already joined")
)

// StartError is a fatal startup error: a catalog entry that could not be started. When
// Run returns one, no test of the catalog was registered or started.
type StartError struct {
	Test  string
	Index int
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start test %q (catalog entry %d): %s", e.Test, e.Index, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// JoinError is a fatal scheduling error: a running test whose completion could not be
// observed. The test is dropped from the waiting set and no Status is reported for it.
type JoinError struct {
	Test string
	Err  error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("cannot join test %q: %s", e.Test, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// CallerLocation identifies the source line that triggered a failure.
type CallerLocation struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (c CallerLocation) String() string {
	return fmt.Sprintf("%s:%d", c.FileName, c.Line)
}

var errorTraceInMessageRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// condenseMessage strips the stacktrace information that testify/assert and testify/require
// put in front of their messages, since the message has to fit in a fixed-size record.
func condenseMessage(message string) string {
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(errorTraceInMessageRegex.ReplaceAllLiteralString(message, ""))
	}
	return message
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "?"
	}
	packageName, _ := parsePackageAndFunctionName(f.Name())
	return packageName
}

// findCaller returns the innermost stack frame that is not part of this package's own
// code (tests in this package do count) and is not a registered helper function.
func findCaller(helperFns []string) CallerLocation {
	currentPackage := currentPackageName()
StackLoop:
	for i := 1; ; i++ { // start at 1 because 0 would just be findCaller itself
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		f := runtime.FuncForPC(pc)
		if f == nil {
			break
		}
		fullFunctionName := f.Name()
		packageName, functionName := parsePackageAndFunctionName(fullFunctionName)

		if packageName == currentPackage && !strings.HasSuffix(file, "_test.go") {
			continue StackLoop
		}
		for _, helperFn := range helperFns {
			if helperFn == fullFunctionName {
				continue StackLoop
			}
		}
		return CallerLocation{FileName: filepath.Base(file), Package: packageName, Function: functionName, Line: line}
	}
	return CallerLocation{FileName: "?"}
}

func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	firstDotAfterSlash := strings.Index(fullName[lastSlash+1:], ".")
	if firstDotAfterSlash < 0 {
		return fullName, ""
	}
	packageName := fullName[0 : lastSlash+firstDotAfterSlash+1]
	functionName := fullName[len(packageName)+1:]
	return packageName, functionName
}
