//go:build linux

// Package proc implements thread enumeration and stack introspection
// for a target process over the Linux procfs.
package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/strobelabs/strobe/internal/threads"
)

// Target observes the threads of one host process. It implements both
// threads.Enumerator and threads.Introspector.
type Target struct {
	pid    int32
	name   string
	root   string
	logger zerolog.Logger
}

// NewTarget validates that pid refers to a live process and returns an
// observer for it.
func NewTarget(pid int32, logger zerolog.Logger) (*Target, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}

	name, err := p.Name()
	if err != nil {
		name = "unknown"
	}

	return newTargetAt(pid, name, "/proc", logger), nil
}

func newTargetAt(pid int32, name, root string, logger zerolog.Logger) *Target {
	return &Target{
		pid:    pid,
		name:   name,
		root:   root,
		logger: logger.With().Str("component", "proc").Int32("pid", pid).Logger(),
	}
}

// Name returns the target process name.
func (t *Target) Name() string { return t.name }

func (t *Target) taskDir(id int64) string {
	return filepath.Join(t.root, strconv.Itoa(int(t.pid)), "task", strconv.FormatInt(id, 10))
}

// Threads lists the live threads of the target at call time.
func (t *Target) Threads() []threads.ThreadInfo {
	entries, err := os.ReadDir(filepath.Join(t.root, strconv.Itoa(int(t.pid)), "task"))
	if err != nil {
		t.logger.Debug().Err(err).Msg("Failed to list task directory")
		return nil
	}

	out := make([]threads.ThreadInfo, 0, len(entries))
	for _, entry := range entries {
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		name, ok := t.readComm(id)
		if !ok {
			// Exited between the directory listing and the read.
			continue
		}
		out = append(out, threads.ThreadInfo{ID: id, Name: name})
	}
	return out
}

// CaptureAll snapshots every live thread. Procfs exposes no
// lock-ownership or synchronizer diagnostics, so both flags are
// accepted and ignored.
func (t *Target) CaptureAll(includeLocks, includeSynchronizers bool) []threads.Snapshot {
	var out []threads.Snapshot
	for _, ti := range t.Threads() {
		if snap, ok := t.CaptureOne(ti.ID, threads.AllFrames); ok {
			out = append(out, snap)
		}
	}
	return out
}

// CaptureOne snapshots a single thread; ok is false when it has
// terminated.
func (t *Target) CaptureOne(id int64, maxDepth int) (threads.Snapshot, bool) {
	name, ok := t.readComm(id)
	if !ok {
		return threads.Snapshot{}, false
	}

	return threads.Snapshot{
		ThreadID: id,
		Name:     name,
		State:    t.readState(id),
		Frames:   t.readStack(id, maxDepth),
	}, true
}

// CaptureMany snapshots the given threads, aligned to the input order,
// with nil marking terminated threads.
func (t *Target) CaptureMany(ids []int64, maxDepth int) []*threads.Snapshot {
	out := make([]*threads.Snapshot, len(ids))
	for i, id := range ids {
		if snap, ok := t.CaptureOne(id, maxDepth); ok {
			out[i] = &snap
		}
	}
	return out
}

func (t *Target) readComm(id int64) (string, bool) {
	data, err := os.ReadFile(filepath.Join(t.taskDir(id), "comm"))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// readState parses the state letter from the thread's stat file. The
// comm field may contain spaces and parentheses, so parsing starts
// after the last ')'.
func (t *Target) readState(id int64) threads.State {
	data, err := os.ReadFile(filepath.Join(t.taskDir(id), "stat"))
	if err != nil {
		return threads.StateUnknown
	}

	stat := string(data)
	idx := strings.LastIndexByte(stat, ')')
	if idx < 0 {
		return threads.StateUnknown
	}
	fields := strings.Fields(stat[idx+1:])
	if len(fields) == 0 {
		return threads.StateUnknown
	}
	return stateFromStat(fields[0])
}

func stateFromStat(code string) threads.State {
	switch code {
	case "R":
		return threads.StateRunning
	case "S":
		return threads.StateSleeping
	case "D":
		return threads.StateWaiting
	case "T", "t":
		return threads.StateStopped
	case "Z":
		return threads.StateZombie
	default:
		return threads.StateUnknown
	}
}

// readStack parses the thread's kernel stack. The file is only
// readable by root; without it snapshots still carry identity and
// state, just no frames.
func (t *Target) readStack(id int64, maxDepth int) []threads.Frame {
	data, err := os.ReadFile(filepath.Join(t.taskDir(id), "stack"))
	if err != nil {
		return nil
	}

	var frames []threads.Frame
	for _, line := range strings.Split(string(data), "\n") {
		frame, ok := parseStackLine(line)
		if !ok {
			continue
		}
		frames = append(frames, frame)
		if maxDepth > 0 && len(frames) >= maxDepth {
			break
		}
	}
	return frames
}

// parseStackLine extracts a frame from one line of a procfs stack
// file, e.g. "[<0>] futex_wait_queue+0x60/0x90".
func parseStackLine(line string) (threads.Frame, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return threads.Frame{}, false
	}
	if idx := strings.Index(line, "] "); idx >= 0 {
		line = line[idx+2:]
	}

	symbol, offsets, found := strings.Cut(line, "+")
	if symbol == "" {
		return threads.Frame{}, false
	}

	frame := threads.Frame{Function: symbol}
	if found {
		offsetText, _, _ := strings.Cut(offsets, "/")
		offset, err := strconv.ParseUint(strings.TrimPrefix(offsetText, "0x"), 16, 64)
		if err == nil {
			frame.Offset = offset
		}
	}
	return frame, true
}
