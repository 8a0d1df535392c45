package trace

import "fmt"

// GlobalFunction marks a pointer without an enclosing function (globals, constants).
const GlobalFunction = "<global>"

// PointerRecord identifies one traced pointer value observed in a violation.
type PointerRecord struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	// Function is empty unless scope extraction was requested.
	Function string `json:"function,omitempty"`
	// Value is the IR value name when the description has the extended form.
	Value string `json:"value,omitempty"`
}

// IsGlobal reports whether the record was classified as having no enclosing function.
func (p PointerRecord) IsGlobal() bool {
	return p.Function == GlobalFunction
}

// Flags are the independent tags parsed from a report header.
type Flags struct {
	IntraProcedural bool `json:"intra_procedural"`
	Dereferenced    bool `json:"dereferenced"`
}

// ViolationReport is one raw "missing alias" block before deduplication.
type ViolationReport struct {
	Pointers [2]PointerRecord `json:"pointers"`
	Flags    Flags            `json:"flags"`
	// Source and Line locate the header line.
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// IDs returns the two pointer ids in log order.
func (r ViolationReport) IDs() (int, int) {
	return r.Pointers[0].ID, r.Pointers[1].ID
}

// Values is the id to pointer accumulator of one invocation. The last record seen for an id wins.
type Values map[int]PointerRecord

// Record stores p, replacing any earlier record with the same id.
func (v Values) Record(p PointerRecord) {
	v[p.ID] = p
}

// Describe returns the last description seen for id.
func (v Values) Describe(id int) string {
	return v[id].Description
}

// MalformedError is returned when a header is not followed by two pointer lines.
type MalformedError struct {
	Source string
	Line   int
	Got    int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s:%d: unexpected end of file: missing alias report has %d of 2 pointer lines", e.Source, e.Line, e.Got)
}

// InputError is returned when a log file cannot be read.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("unable to read log %q: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
