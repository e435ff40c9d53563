// Package sampler implements thread selection and the sampling session
// loop. A Selector decides, on every tick, which threads of the target
// process get their stacks captured.
package sampler

import (
	"regexp"
	"slices"
	"strings"

	"github.com/strobelabs/strobe/internal/threads"
)

// Selector is the per-tick thread selection policy. Dump never fails;
// degenerate inputs (no live threads, terminated ids, zero usable
// patterns) shrink the result instead. The unexported metadata method
// keeps the implementation set closed to this package.
type Selector interface {
	// Dump captures one snapshot per selected thread. The result order
	// follows the order the Introspector returns snapshots in.
	Dump(in threads.Introspector) []threads.Snapshot

	// Metadata describes the selection policy for embedding in
	// exported profiles.
	Metadata() Metadata

	appendMetadata(m *Metadata)
}

// All selects every live thread. Lock and synchronizer diagnostics are
// disabled: Dump runs at sampling frequency and full-detail captures
// are too expensive there.
type All struct{}

// NewAll returns the capture-everything selector.
func NewAll() All { return All{} }

func (All) Dump(in threads.Introspector) []threads.Snapshot {
	return in.CaptureAll(false, false)
}

func (All) Metadata() Metadata { return Metadata{Type: SelectionAll} }

func (All) appendMetadata(m *Metadata) { m.Type = SelectionAll }

// Specific selects a fixed set of thread ids. The set never changes
// after construction.
type Specific struct {
	ids []int64
}

// NewSpecific builds a Specific selector from explicit thread ids.
func NewSpecific(ids []int64) *Specific {
	return &Specific{ids: slices.Clone(ids)}
}

// NewSpecificByName resolves thread names to ids against a single
// enumeration, matching case-insensitively on the whole name. Names
// with no live match at this instant are dropped for good; the
// selector never re-resolves.
func NewSpecificByName(enum threads.Enumerator, names []string) *Specific {
	want := make(map[string]struct{}, len(names))
	for _, name := range names {
		want[strings.ToLower(name)] = struct{}{}
	}

	var ids []int64
	for _, t := range enum.Threads() {
		if _, ok := want[strings.ToLower(t.Name)]; ok {
			ids = append(ids, t.ID)
		}
	}
	return &Specific{ids: ids}
}

func (s *Specific) Dump(in threads.Introspector) []threads.Snapshot {
	out := make([]threads.Snapshot, 0, len(s.ids))
	for _, snap := range in.CaptureMany(s.ids, threads.AllFrames) {
		if snap == nil {
			// Terminated since construction.
			continue
		}
		out = append(out, *snap)
	}
	return out
}

func (s *Specific) Metadata() Metadata {
	return Metadata{Type: SelectionSpecific, ThreadIDs: slices.Clone(s.ids)}
}

func (s *Specific) appendMetadata(m *Metadata) {
	m.Type = SelectionSpecific
	m.ThreadIDs = append(m.ThreadIDs, s.ids...)
}

type namePattern struct {
	source string
	re     *regexp.Regexp
}

// Regex selects threads whose name matches any of a set of patterns.
// Patterns match the whole name, case-insensitively. Match outcomes
// are memoized per thread id for the life of the selector, so the
// regexp engine runs at most once per thread even though the live set
// is re-enumerated every tick.
//
// The cache assumes a single sampling loop per selector instance; it
// is not safe for concurrent Dump calls.
type Regex struct {
	enum     threads.Enumerator
	patterns []namePattern
	cache    map[int64]bool
}

// NewRegex compiles the given pattern strings. An expression that
// fails to compile is dropped; one malformed expression must not
// disable the others.
func NewRegex(enum threads.Enumerator, exprs []string) *Regex {
	r := &Regex{enum: enum, cache: make(map[int64]bool)}
	for _, expr := range exprs {
		re, err := compileNamePattern(expr)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, namePattern{source: expr, re: re})
	}
	return r
}

// compileNamePattern compiles expr for case-insensitive whole-name
// matching.
func compileNamePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\A(?:` + expr + `)\z`)
}

func (r *Regex) matches(t threads.ThreadInfo) bool {
	if hit, ok := r.cache[t.ID]; ok {
		return hit
	}
	hit := false
	for _, p := range r.patterns {
		if p.re.MatchString(t.Name) {
			hit = true
			break
		}
	}
	r.cache[t.ID] = hit
	return hit
}

func (r *Regex) Dump(in threads.Introspector) []threads.Snapshot {
	var out []threads.Snapshot
	for _, t := range r.enum.Threads() {
		if !r.matches(t) {
			continue
		}
		snap, ok := in.CaptureOne(t.ID, threads.AllFrames)
		if !ok {
			// Died between enumeration and capture.
			continue
		}
		out = append(out, snap)
	}
	return out
}

func (r *Regex) Metadata() Metadata {
	m := Metadata{Type: SelectionRegex}
	for _, p := range r.patterns {
		m.Patterns = append(m.Patterns, p.source)
	}
	return m
}

func (r *Regex) appendMetadata(m *Metadata) {
	m.Type = SelectionRegex
	for _, p := range r.patterns {
		m.Patterns = append(m.Patterns, p.source)
	}
}

// Combination runs an ordered list of child selectors and concatenates
// their results. A thread matched by more than one child appears more
// than once; downstream aggregation tolerates duplicates.
type Combination struct {
	children []Selector
}

// NewCombination builds a Combination from child selectors, preserving
// order.
func NewCombination(children ...Selector) *Combination {
	return &Combination{children: slices.Clone(children)}
}

func (c *Combination) Dump(in threads.Introspector) []threads.Snapshot {
	var out []threads.Snapshot
	for _, child := range c.children {
		out = append(out, child.Dump(in)...)
	}
	return out
}

// Metadata merges the children's ids and patterns into one record.
// The merged Type is always SelectionAll, whatever the children are;
// existing profile consumers depend on this.
func (c *Combination) Metadata() Metadata {
	var m Metadata
	c.appendMetadata(&m)
	m.Type = SelectionAll
	return m
}

func (c *Combination) appendMetadata(m *Metadata) {
	for _, child := range c.children {
		child.appendMetadata(m)
	}
}
