// Package report turns captured stack snapshots into pprof profiles.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"github.com/strobelabs/strobe/internal/sampler"
	"github.com/strobelabs/strobe/internal/threads"
)

// Builder accumulates per-tick snapshots and folds identical stacks
// into sample counts. It implements sampler.Collector.
type Builder struct {
	mu      sync.Mutex
	stacks  map[string]*foldedStack
	order   []string
	started time.Time
	logger  zerolog.Logger
}

type foldedStack struct {
	thread string
	frames []string
	count  int64
}

// NewBuilder creates an empty profile builder.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		stacks:  make(map[string]*foldedStack),
		started: time.Now(),
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// Collect folds one tick's snapshots into the builder. Snapshots
// without frames still count, attributed to a synthetic frame, so a
// permission-restricted capture still produces a usable profile.
func (b *Builder) Collect(snaps []threads.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, snap := range snaps {
		frames := make([]string, 0, len(snap.Frames)+1)
		for _, f := range snap.Frames {
			frames = append(frames, f.Function)
		}
		if len(frames) == 0 {
			frames = append(frames, fmt.Sprintf("[%s]", snap.State))
		}

		key := snap.Name + "\x00" + strings.Join(frames, "\x00")
		fs, ok := b.stacks[key]
		if !ok {
			fs = &foldedStack{thread: snap.Name, frames: frames}
			b.stacks[key] = fs
			b.order = append(b.order, key)
		}
		fs.count++
	}
}

// SampleCount returns the number of snapshots folded so far.
func (b *Builder) SampleCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for _, fs := range b.stacks {
		n += fs.count
	}
	return n
}

// Profile builds a pprof profile from the folded stacks. The selection
// metadata is embedded as a profile comment so report tooling can tell
// how the thread scope was chosen.
func (b *Builder) Profile(meta sampler.Metadata, interval time.Duration) (*profile.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
		},
		PeriodType:    &profile.ValueType{Type: "wallclock", Unit: "nanoseconds"},
		Period:        interval.Nanoseconds(),
		TimeNanos:     b.started.UnixNano(),
		DurationNanos: time.Since(b.started).Nanoseconds(),
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selection metadata: %w", err)
	}
	prof.Comments = []string{"strobe.selection=" + string(encoded)}

	functions := make(map[string]*profile.Function)
	locations := make(map[string]*profile.Location)

	for _, key := range b.order {
		fs := b.stacks[key]

		locs := make([]*profile.Location, 0, len(fs.frames))
		for _, name := range fs.frames {
			locs = append(locs, b.location(prof, functions, locations, name))
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{fs.count},
			Label:    map[string][]string{"thread": {fs.thread}},
		})
	}

	if err := prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("built an invalid profile: %w", err)
	}
	return prof, nil
}

func (b *Builder) location(prof *profile.Profile, functions map[string]*profile.Function, locations map[string]*profile.Location, name string) *profile.Location {
	if loc, ok := locations[name]; ok {
		return loc
	}

	fn, ok := functions[name]
	if !ok {
		fn = &profile.Function{
			ID:         uint64(len(prof.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		functions[name] = fn
		prof.Function = append(prof.Function, fn)
	}

	loc := &profile.Location{
		ID:   uint64(len(prof.Location) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	locations[name] = loc
	prof.Location = append(prof.Location, loc)
	return loc
}

// Write builds the profile and writes it gzip-compressed to w.
func (b *Builder) Write(w io.Writer, meta sampler.Metadata, interval time.Duration) error {
	prof, err := b.Profile(meta, interval)
	if err != nil {
		return err
	}

	b.logger.Debug().
		Int("stacks", len(prof.Sample)).
		Int64("samples", b.SampleCount()).
		Msg("Writing profile")

	if err := prof.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
