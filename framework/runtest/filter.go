package runtest

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// RegexFilters selects tests by name. A test runs if it matches at least one MustMatch
// pattern (or there are none) and no MustNotMatch pattern.
type RegexFilters struct {
	MustMatch    PatternList
	MustNotMatch PatternList
}

func (r RegexFilters) Match(name string) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(name)) &&
		!r.MustNotMatch.AnyMatch(name)
}

func (r RegexFilters) IsDefined() bool {
	return r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined()
}

// Apply returns the tests of the catalog that the filters select, in catalog order.
func (r RegexFilters) Apply(tests Catalog) Catalog {
	if !r.IsDefined() {
		return tests
	}
	return tests.Filter(r.Match)
}

type PatternList []*regexp.Regexp

func (l PatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (l *PatternList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	*l = append(*l, rx)
	return nil
}

func (l PatternList) IsDefined() bool {
	return len(l) != 0
}

func (l PatternList) AnyMatch(name string) bool {
	for _, p := range l {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// PrintFilterDescription explains which tests the filters leave out of the run.
func PrintFilterDescription(w io.Writer, filters RegexFilters, all, selected int) {
	if !filters.IsDefined() {
		return
	}
	_, _ = fmt.Fprintln(w, "Some tests will be skipped based on the filter criteria for this test run:")
	if filters.MustMatch.IsDefined() {
		_, _ = fmt.Fprintf(w, "  skip any not matching %s\n", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		_, _ = fmt.Fprintf(w, "  skip any matching %s\n", filters.MustNotMatch)
	}
	_, _ = fmt.Fprintf(w, "  running %d of %d tests\n", selected, all)
	_, _ = fmt.Fprintln(w)
}
