package classify

import (
	"github.com/neongoby/neongoby/internal/dedup"
	"github.com/neongoby/neongoby/internal/trace"
)

// Scope is the global/local locality of a pair.
type Scope string

const (
	ScopeUnknown           Scope = ""
	ScopeBothGlobal        Scope = "both-global"
	ScopeOneGlobalOneLocal Scope = "one-global-one-local"
	ScopeSameFunction      Scope = "same-function"
	ScopeDifferentFunction Scope = "different-function"
)

// Options control classification.
type Options struct {
	// ScopeAware fills the scope buckets. The pointer records must carry a Function.
	ScopeAware bool
}

// Entry is one line of the listing: a canonical pair with both pointers resolved.
// First carries the larger id. A degenerate pair repeats the same record.
type Entry struct {
	Pair   dedup.Pair          `json:"pair"`
	First  trace.PointerRecord `json:"first"`
	Second trace.PointerRecord `json:"second"`
	Flags  trace.Flags         `json:"flags"`
	Scope  Scope               `json:"scope,omitempty"`
	Count  int                 `json:"occurrences"`
	Source string              `json:"source,omitempty"`
	Line   int                 `json:"line,omitempty"`
}

// Result is the listing plus the tally.
type Result struct {
	Entries []Entry `json:"entries"`
	Tally   Tally   `json:"tally"`
	// Reports is the number of raw reports before deduplication.
	Reports int `json:"reports"`
}

// Classify resolves every canonical pair of set against values and tallies it once.
func Classify(set *dedup.Set, values trace.Values, opts Options) Result {
	res := Result{Reports: set.Raw()}
	res.Tally.ScopeAware = opts.ScopeAware

	for _, e := range set.Entries() {
		entry := Entry{
			Pair:   e.Pair,
			First:  resolve(values, e, e.Pair.Hi),
			Second: resolve(values, e, e.Pair.Lo),
			Flags:  e.Report.Flags,
			Count:  e.Count,
			Source: e.Report.Source,
			Line:   e.Report.Line,
		}
		if opts.ScopeAware {
			entry.Scope = scopeOf(entry.First, entry.Second)
		}
		res.Tally.add(entry)
		res.Entries = append(res.Entries, entry)
	}
	return res
}

// resolve prefers the last record seen for id over the record of the retained report.
func resolve(values trace.Values, e dedup.Entry, id int) trace.PointerRecord {
	if p, ok := values[id]; ok {
		return p
	}
	for _, p := range e.Report.Pointers {
		if p.ID == id {
			return p
		}
	}
	return trace.PointerRecord{ID: id}
}

func scopeOf(a, b trace.PointerRecord) Scope {
	switch {
	case a.IsGlobal() && b.IsGlobal():
		return ScopeBothGlobal
	case a.IsGlobal() || b.IsGlobal():
		return ScopeOneGlobalOneLocal
	case a.Function == b.Function:
		return ScopeSameFunction
	default:
		return ScopeDifferentFunction
	}
}
