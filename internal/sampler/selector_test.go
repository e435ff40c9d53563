package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobelabs/strobe/internal/threads"
)

// fakeEnumerator serves a fixed live-thread set that tests can mutate
// between ticks.
type fakeEnumerator struct {
	live []threads.ThreadInfo
}

func (f *fakeEnumerator) Threads() []threads.ThreadInfo {
	out := make([]threads.ThreadInfo, len(f.live))
	copy(out, f.live)
	return out
}

// fakeIntrospector snapshots from a fixed thread table. Threads listed
// in dead are reported absent.
type fakeIntrospector struct {
	live []threads.ThreadInfo
	dead map[int64]bool

	captureAllFlags [][2]bool
	captureOneCalls int
}

func (f *fakeIntrospector) snapshot(t threads.ThreadInfo) threads.Snapshot {
	return threads.Snapshot{
		ThreadID: t.ID,
		Name:     t.Name,
		State:    threads.StateRunning,
		Frames:   []threads.Frame{{Function: "park"}, {Function: "run"}},
	}
}

func (f *fakeIntrospector) CaptureAll(includeLocks, includeSynchronizers bool) []threads.Snapshot {
	f.captureAllFlags = append(f.captureAllFlags, [2]bool{includeLocks, includeSynchronizers})
	var out []threads.Snapshot
	for _, t := range f.live {
		if f.dead[t.ID] {
			continue
		}
		out = append(out, f.snapshot(t))
	}
	return out
}

func (f *fakeIntrospector) CaptureOne(id int64, maxDepth int) (threads.Snapshot, bool) {
	f.captureOneCalls++
	for _, t := range f.live {
		if t.ID == id && !f.dead[id] {
			return f.snapshot(t), true
		}
	}
	return threads.Snapshot{}, false
}

func (f *fakeIntrospector) CaptureMany(ids []int64, maxDepth int) []*threads.Snapshot {
	out := make([]*threads.Snapshot, len(ids))
	for i, id := range ids {
		if snap, ok := f.CaptureOne(id, maxDepth); ok {
			out[i] = &snap
		}
	}
	return out
}

func snapshotIDs(snaps []threads.Snapshot) []int64 {
	ids := make([]int64, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ThreadID
	}
	return ids
}

func TestAllDump(t *testing.T) {
	in := &fakeIntrospector{}
	assert.Empty(t, NewAll().Dump(in), "empty live set yields empty result")

	in.live = []threads.ThreadInfo{{ID: 1, Name: "main"}, {ID: 2, Name: "worker"}, {ID: 3, Name: "gc"}}
	snaps := NewAll().Dump(in)
	require.Len(t, snaps, 3)

	// Diagnostics stay disabled on every capture.
	for _, flags := range in.captureAllFlags {
		assert.Equal(t, [2]bool{false, false}, flags)
	}
}

func TestSpecificDumpFiltersTerminated(t *testing.T) {
	in := &fakeIntrospector{
		live: []threads.ThreadInfo{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}},
		dead: map[int64]bool{2: true},
	}

	snaps := NewSpecific([]int64{1, 2, 3}).Dump(in)
	assert.Equal(t, []int64{1, 3}, snapshotIDs(snaps))
}

func TestSpecificByNameResolution(t *testing.T) {
	enum := &fakeEnumerator{live: []threads.ThreadInfo{
		{ID: 10, Name: "worker-1"},
		{ID: 11, Name: "Worker-2"},
	}}

	s := NewSpecificByName(enum, []string{"Worker-1"})
	assert.Equal(t, []int64{10}, s.ids, "case-insensitive whole-name match only")

	// Resolution happens exactly once; a thread appearing later with a
	// requested name is never picked up.
	enum.live = append(enum.live, threads.ThreadInfo{ID: 12, Name: "Worker-1"})
	in := &fakeIntrospector{live: enum.live}
	assert.Equal(t, []int64{10}, snapshotIDs(s.Dump(in)))
}

func TestSpecificByNameNoMatches(t *testing.T) {
	enum := &fakeEnumerator{}
	s := NewSpecificByName(enum, []string{"ghost"})
	assert.Empty(t, s.ids)
	assert.Empty(t, s.Dump(&fakeIntrospector{}))
}

func TestRegexDumpMemoizesPerThread(t *testing.T) {
	live := []threads.ThreadInfo{
		{ID: 1, Name: "NettyEventLoop"},
		{ID: 2, Name: "Main"},
	}
	enum := &fakeEnumerator{live: live}
	in := &fakeIntrospector{live: live}

	r := NewRegex(enum, []string{"Netty.*"})

	snaps := r.Dump(in)
	assert.Equal(t, []int64{1}, snapshotIDs(snaps))
	assert.Equal(t, map[int64]bool{1: true, 2: false}, r.cache,
		"both outcomes cached after the first tick")

	// Rename both threads: the cache is keyed by id, so tick 2 must
	// return the same selection without consulting the patterns.
	enum.live = []threads.ThreadInfo{
		{ID: 1, Name: "Main"},
		{ID: 2, Name: "NettyWorker"},
	}
	in.live = enum.live
	assert.Equal(t, []int64{1}, snapshotIDs(r.Dump(in)))
}

func TestRegexMatchSemantics(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		thread  string
		match   bool
	}{
		{"full-string match required", "Netty", "NettyEventLoop", false},
		{"wildcard covers whole name", "Netty.*", "NettyEventLoop", true},
		{"case-insensitive", "netty.*", "NETTY-BOSS", true},
		{"no substring search", "Event", "NettyEventLoop", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enum := &fakeEnumerator{live: []threads.ThreadInfo{{ID: 7, Name: tt.thread}}}
			r := NewRegex(enum, []string{tt.pattern})
			assert.Equal(t, tt.match, r.matches(threads.ThreadInfo{ID: 7, Name: tt.thread}))
		})
	}
}

func TestRegexDropsInvalidPatterns(t *testing.T) {
	enum := &fakeEnumerator{live: []threads.ThreadInfo{{ID: 1, Name: "pool-1"}}}
	r := NewRegex(enum, []string{"pool-[", "pool-.*"})

	meta := r.Metadata()
	assert.Equal(t, SelectionRegex, meta.Type)
	assert.Equal(t, []string{"pool-.*"}, meta.Patterns, "invalid pattern never surfaces")

	in := &fakeIntrospector{live: enum.live}
	assert.Equal(t, []int64{1}, snapshotIDs(r.Dump(in)), "valid pattern still matches")
}

func TestRegexAllPatternsInvalid(t *testing.T) {
	enum := &fakeEnumerator{live: []threads.ThreadInfo{{ID: 1, Name: "main"}}}
	r := NewRegex(enum, []string{"(", "[z-a]"})

	assert.Empty(t, r.patterns)
	assert.Empty(t, r.Dump(&fakeIntrospector{live: enum.live}))
}

func TestCombinationDumpConcatenates(t *testing.T) {
	live := []threads.ThreadInfo{{ID: 98, Name: "a"}, {ID: 99, Name: "b"}}
	in := &fakeIntrospector{live: live}

	c := NewCombination(NewAll(), NewSpecific([]int64{99}))
	snaps := c.Dump(in)

	// Full All result first, then the Specific result; thread 99 is
	// not deduplicated.
	assert.Equal(t, []int64{98, 99, 99}, snapshotIDs(snaps))
}

func TestCombinationDumpEmptyChild(t *testing.T) {
	in := &fakeIntrospector{live: []threads.ThreadInfo{{ID: 1, Name: "a"}}}
	c := NewCombination(NewSpecific([]int64{42}), NewAll())
	assert.Equal(t, []int64{1}, snapshotIDs(c.Dump(in)))
}

func TestMetadata(t *testing.T) {
	enum := &fakeEnumerator{}

	t.Run("all", func(t *testing.T) {
		assert.Equal(t, Metadata{Type: SelectionAll}, NewAll().Metadata())
	})

	t.Run("specific", func(t *testing.T) {
		meta := NewSpecific([]int64{5, 7}).Metadata()
		assert.Equal(t, SelectionSpecific, meta.Type)
		assert.Equal(t, []int64{5, 7}, meta.ThreadIDs)
		assert.Empty(t, meta.Patterns)
	})

	t.Run("regex", func(t *testing.T) {
		meta := NewRegex(enum, []string{"a.*", "b.*"}).Metadata()
		assert.Equal(t, SelectionRegex, meta.Type)
		assert.ElementsMatch(t, []string{"a.*", "b.*"}, meta.Patterns)
		assert.Empty(t, meta.ThreadIDs)
	})

	t.Run("combination reports ALL", func(t *testing.T) {
		c := NewCombination(
			NewSpecific([]int64{5}),
			NewRegex(enum, []string{"x.*"}),
		)
		meta := c.Metadata()
		assert.Equal(t, SelectionAll, meta.Type)
		assert.Equal(t, []int64{5}, meta.ThreadIDs)
		assert.Equal(t, []string{"x.*"}, meta.Patterns)
	})
}

func TestSpecificIDsImmutable(t *testing.T) {
	ids := []int64{1, 2}
	s := NewSpecific(ids)
	ids[0] = 99
	assert.Equal(t, []int64{1, 2}, s.ids)

	meta := s.Metadata()
	meta.ThreadIDs[0] = 77
	assert.Equal(t, []int64{1, 2}, s.ids, "metadata hands out a copy")
}
