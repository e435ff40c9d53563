// Package threads defines the thread observation model shared by the
// sampler core and its platform backends: thread identities, captured
// stack snapshots, and the capabilities that produce them.
package threads

// AllFrames requests an unbounded stack depth from an Introspector.
const AllFrames = -1

// ThreadInfo identifies one live thread of the target process at the
// instant of enumeration. IDs are unique while a thread is alive but
// may be reused by the host after it terminates.
type ThreadInfo struct {
	ID   int64
	Name string
}

// State is the scheduler lifecycle state of a thread at capture time.
type State string

const (
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateWaiting  State = "waiting"
	StateStopped  State = "stopped"
	StateZombie   State = "zombie"
	StateUnknown  State = "unknown"
)

// Frame is a single call-stack entry. Frames are ordered innermost
// (leaf) first.
type Frame struct {
	Function string
	Offset   uint64
}

// Snapshot is the captured state of one thread at an instant.
type Snapshot struct {
	ThreadID int64
	Name     string
	State    State
	Frames   []Frame
}

// Enumerator lists the live threads of the target process. The result
// reflects the population at call time; size and membership vary from
// call to call.
type Enumerator interface {
	Threads() []ThreadInfo
}

// Introspector captures stack snapshots for threads of the target
// process.
type Introspector interface {
	// CaptureAll snapshots every live thread. The two flags request
	// lock-ownership and synchronizer diagnostics where the backend
	// supports them.
	CaptureAll(includeLocks, includeSynchronizers bool) []Snapshot

	// CaptureOne snapshots a single thread. ok is false when the
	// thread has terminated. maxDepth bounds the captured frames;
	// AllFrames captures the whole stack.
	CaptureOne(id int64, maxDepth int) (Snapshot, bool)

	// CaptureMany snapshots the given threads. The result is aligned
	// to the input order; a nil entry marks a thread that has
	// terminated.
	CaptureMany(ids []int64, maxDepth int) []*Snapshot
}
