//go:build !linux

// Package proc implements thread enumeration and stack introspection
// for a target process over the Linux procfs.
package proc

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/strobelabs/strobe/internal/threads"
)

// Target stub for non-Linux platforms.
type Target struct{}

// NewTarget is not supported on non-Linux platforms.
func NewTarget(pid int32, logger zerolog.Logger) (*Target, error) {
	return nil, fmt.Errorf("thread sampling requires the Linux procfs")
}

// Name returns the target process name.
func (t *Target) Name() string { return "" }

// Threads lists the live threads of the target at call time.
func (t *Target) Threads() []threads.ThreadInfo { return nil }

// CaptureAll snapshots every live thread.
func (t *Target) CaptureAll(includeLocks, includeSynchronizers bool) []threads.Snapshot {
	return nil
}

// CaptureOne snapshots a single thread.
func (t *Target) CaptureOne(id int64, maxDepth int) (threads.Snapshot, bool) {
	return threads.Snapshot{}, false
}

// CaptureMany snapshots the given threads.
func (t *Target) CaptureMany(ids []int64, maxDepth int) []*threads.Snapshot {
	return make([]*threads.Snapshot, len(ids))
}
