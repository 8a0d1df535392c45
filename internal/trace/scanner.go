package trace

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const (
	headerMarker = "Missing alias:"
	intraMarker  = "(intra)"
	derefMarker  = "(deref)"

	maxLineLength = 16 * 1024 * 1024
)

var (
	pointerInfoRegexp = regexp.MustCompile(`.*\[(\d+)\](.*)$`)
	// <function>: <value> = <expression>; anything else has no enclosing function.
	scopedValueRegexp = regexp.MustCompile(`^\s*([^\s:]+):\s+(\S+)\s+=\s+(.*)$`)
	// The checker colours its headers when writing to a terminal.
	colorRegexp = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// Options control how pointer lines are interpreted.
type Options struct {
	// ScopeAware extracts the enclosing function of every pointer.
	ScopeAware bool
}

type scanState int

const (
	seekingHeader scanState = iota
	expectingFirstPointer
	expectingSecondPointer
)

// Scanner yields the violation reports of one log stream, one per call to Next.
type Scanner struct {
	lines  *bufio.Scanner
	source string
	opts   Options
	values Values

	state   scanState
	lineNo  int
	pending ViolationReport
	report  ViolationReport
	err     error
	done    bool
}

// NewScanner reads reports from r. Every pointer line is recorded into values.
func NewScanner(r io.Reader, source string, opts Options, values Values) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	if values == nil {
		values = Values{}
	}
	return &Scanner{
		lines:  lines,
		source: source,
		opts:   opts,
		values: values,
	}
}

// Next advances to the next complete report. It returns false at the end of
// the stream or on the first error, which Err then reports.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}

	for s.lines.Scan() {
		s.lineNo++
		line := colorRegexp.ReplaceAllString(s.lines.Text(), "")

		switch s.state {
		case seekingHeader:
			if strings.Contains(line, headerMarker) {
				s.pending = ViolationReport{
					Flags:  parseFlags(line),
					Source: s.source,
					Line:   s.lineNo,
				}
				s.state = expectingFirstPointer
			}
		case expectingFirstPointer:
			if p, ok := s.parsePointer(line); ok {
				s.pending.Pointers[0] = p
				s.state = expectingSecondPointer
			}
		case expectingSecondPointer:
			if p, ok := s.parsePointer(line); ok {
				s.pending.Pointers[1] = p
				s.report = s.pending
				s.state = seekingHeader
				return true
			}
		}
	}

	s.done = true
	if err := s.lines.Err(); err != nil {
		s.err = &InputError{Path: s.source, Err: err}
		return false
	}

	switch s.state {
	case expectingFirstPointer:
		s.err = &MalformedError{Source: s.source, Line: s.pending.Line, Got: 0}
	case expectingSecondPointer:
		s.err = &MalformedError{Source: s.source, Line: s.pending.Line, Got: 1}
	}
	return false
}

// Report returns the report produced by the last successful call to Next.
func (s *Scanner) Report() ViolationReport {
	return s.report
}

// Err returns the first error met by the scanner.
func (s *Scanner) Err() error {
	return s.err
}

// Values returns the id to pointer accumulator the scanner writes to.
func (s *Scanner) Values() Values {
	return s.values
}

func (s *Scanner) parsePointer(line string) (PointerRecord, bool) {
	m := pointerInfoRegexp.FindStringSubmatch(line)
	if m == nil {
		return PointerRecord{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		// Only an id overflowing int gets here.
		return PointerRecord{}, false
	}

	p := PointerRecord{ID: id, Description: m[2]}
	if s.opts.ScopeAware {
		p.Function, p.Value = splitScope(p.Description)
	}
	s.values.Record(p)
	return p, true
}

func parseFlags(header string) Flags {
	return Flags{
		IntraProcedural: strings.Contains(header, intraMarker),
		Dereferenced:    strings.Contains(header, derefMarker),
	}
}

func splitScope(description string) (function, value string) {
	m := scopedValueRegexp.FindStringSubmatch(description)
	if m == nil {
		return GlobalFunction, ""
	}
	return m[1], m[2]
}

// ParseFiles scans every log in order and hands each report to fn.
// values accumulates across all files; an unreadable or truncated file aborts the scan.
func ParseFiles(paths []string, opts Options, values Values, fn func(ViolationReport) error) error {
	if values == nil {
		values = Values{}
	}
	for _, path := range paths {
		if err := parseFile(path, opts, values, fn); err != nil {
			return err
		}
	}
	return nil
}

func parseFile(path string, opts Options, values Values, fn func(ViolationReport) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &InputError{Path: path, Err: err}
	}
	defer f.Close()

	s := NewScanner(f, path, opts, values)
	for s.Next() {
		if err := fn(s.Report()); err != nil {
			return err
		}
	}
	return s.Err()
}

// ReadAll collects every report of r.
func ReadAll(r io.Reader, source string, opts Options, values Values) ([]ViolationReport, error) {
	var reports []ViolationReport
	s := NewScanner(r, source, opts, values)
	for s.Next() {
		reports = append(reports, s.Report())
	}
	return reports, s.Err()
}
