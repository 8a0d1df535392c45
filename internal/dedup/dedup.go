package dedup

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/neongoby/neongoby/internal/trace"
)

// Pair is an unordered pair of pointer ids. Hi >= Lo always holds.
type Pair struct {
	Hi int `json:"hi"`
	Lo int `json:"lo"`
}

// NewPair canonicalises a and b.
func NewPair(a, b int) Pair {
	if a < b {
		return Pair{Hi: b, Lo: a}
	}
	return Pair{Hi: a, Lo: b}
}

// Degenerate reports whether both ids are the same pointer.
func (p Pair) Degenerate() bool {
	return p.Hi == p.Lo
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Hi, p.Lo)
}

// FlagPolicy decides which flags a pair keeps when it is reported more than once.
type FlagPolicy int

const (
	// FirstSeen keeps the flags of the first occurrence.
	FirstSeen FlagPolicy = iota
	// AnyOccurrence ORs the flags of every occurrence.
	AnyOccurrence
)

// ParseFlagPolicy accepts "first-seen" and "any".
func ParseFlagPolicy(s string) (FlagPolicy, error) {
	switch s {
	case "", "first-seen":
		return FirstSeen, nil
	case "any":
		return AnyOccurrence, nil
	}
	return FirstSeen, fmt.Errorf("unknown flag policy %q: expected first-seen or any", s)
}

func (p FlagPolicy) String() string {
	if p == AnyOccurrence {
		return "any"
	}
	return "first-seen"
}

// Entry is the retained occurrence of one canonical pair.
type Entry struct {
	Pair   Pair                  `json:"pair"`
	Report trace.ViolationReport `json:"report"`
	// Count is the number of raw reports that collapsed into this pair.
	Count int `json:"count"`
}

// Set accumulates canonical pairs. The zero value is not usable; call NewSet.
type Set struct {
	policy  FlagPolicy
	entries map[Pair]*Entry
	raw     int
}

func NewSet(policy FlagPolicy) *Set {
	return &Set{
		policy:  policy,
		entries: make(map[Pair]*Entry),
	}
}

// Add inserts r and returns true when its pair had not been seen before.
func (s *Set) Add(r trace.ViolationReport) bool {
	s.raw++
	p := NewPair(r.IDs())

	if e, ok := s.entries[p]; ok {
		e.Count++
		if s.policy == AnyOccurrence {
			e.Report.Flags.IntraProcedural = e.Report.Flags.IntraProcedural || r.Flags.IntraProcedural
			e.Report.Flags.Dereferenced = e.Report.Flags.Dereferenced || r.Flags.Dereferenced
		}
		return false
	}

	s.entries[p] = &Entry{Pair: p, Report: r, Count: 1}
	return true
}

// Len is the number of distinct pairs.
func (s *Set) Len() int {
	return len(s.entries)
}

// Raw is the number of reports added, duplicates included.
func (s *Set) Raw() int {
	return s.raw
}

// Get returns the entry of p.
func (s *Set) Get(p Pair) (Entry, bool) {
	e, ok := s.entries[p]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Pairs returns the distinct pairs sorted ascending by (Lo, Hi).
func (s *Set) Pairs() []Pair {
	pairs := maps.Keys(s.entries)
	slices.SortFunc(pairs, comparePairs)
	return pairs
}

// Entries returns the retained entries in Pairs order.
func (s *Set) Entries() []Entry {
	pairs := s.Pairs()
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, *s.entries[p])
	}
	return entries
}

// Reports returns one report per distinct pair, carrying the retained flags.
// Feeding them back into a new Set yields the same pairs and flags.
func (s *Set) Reports() []trace.ViolationReport {
	entries := s.Entries()
	reports := make([]trace.ViolationReport, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, e.Report)
	}
	return reports
}

func comparePairs(a, b Pair) int {
	if a.Lo != b.Lo {
		return a.Lo - b.Lo
	}
	return a.Hi - b.Hi
}

// FromReports deduplicates reports with policy.
func FromReports(reports []trace.ViolationReport, policy FlagPolicy) *Set {
	s := NewSet(policy)
	for _, r := range reports {
		s.Add(r)
	}
	return s
}

// FromFiles parses every log into a single set. values receives every pointer description.
func FromFiles(paths []string, opts trace.Options, values trace.Values, policy FlagPolicy) (*Set, error) {
	s := NewSet(policy)
	err := trace.ParseFiles(paths, opts, values, func(r trace.ViolationReport) error {
		s.Add(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
