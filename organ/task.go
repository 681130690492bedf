package organ

import (
	"sync"
	"sync/atomic"
)

// Priority groups; lower values run first (§3).
const (
	GroupTremulant  = 10
	GroupWindchest  = 20
	GroupAudioGroup = 50
	GroupOutput     = 100
	GroupRecorder   = 110
	GroupRelease    = 160
	GroupTouch      = 700
)

// DetachedReleaseTaskID is the synthetic windchest ID (task_id == 0)
// carrying release voices unaffected by their originating windchest's
// tremulants once released, when the detached-release model is enabled.
const DetachedReleaseTaskID = 0

// Task is the shared contract of every DSP task variant (§4.3).
type Task interface {
	// Run computes the task's mix into its own buffer and marks it done.
	// It takes the task's mutex non-blocking: if already held by another
	// thread, Run returns immediately without doing any work.
	Run(th *workerThread)
	// Finish is idempotent: if the task is not yet done it runs (blocking
	// on the mutex, since the caller is about to read the buffer);
	// otherwise it returns immediately.
	Finish(th *workerThread)
	// Clear zeroes the task's buffer.
	Clear()
	// Reset clears done/stop at the top of a period.
	Reset()
	// Add pushes a voice into the task's lock-free pending-adds queue,
	// drained at the top of the next Run.
	Add(v *voice)
	Group() int
	Cost() int
	Repeat() bool
	Buffer() []float32
	Done() bool
}

// baseTask implements the state machine and pending-adds queue shared by
// every task variant; concrete types embed it and supply runBody.
type baseTask struct {
	group  int
	cost   int
	repeat bool

	mu   sync.Mutex
	done bool
	stop bool

	buf []float32

	// voiceScratch/gainScratch are per-task scratch space for the
	// stream-read and fader-gain temporaries used while mixing this
	// task's active voices (§4.2 "Process per period"). They must be
	// task-owned rather than engine-owned: multiple tasks in the same
	// priority group (e.g. several windchests) run concurrently on
	// different worker threads, so a shared Engine-level scratch buffer
	// would be a data race.
	voiceScratch []float32
	gainScratch  []float32

	// pendingHead is the top of a lock-free MPSC Treiber stack (§9): any
	// number of producer threads push concurrently via CAS, and the
	// single consumer (this task's own Run) detaches the entire list with
	// one atomic swap rather than popping node by node, so there is no
	// per-node CAS on the drain side to race against concurrent pushes.
	pendingHead atomic.Pointer[voice]
}

func newBaseTask(group, cost int, repeat bool, channels, frames int) baseTask {
	return baseTask{
		group:  group,
		cost:   cost,
		repeat: repeat,
		buf:    make([]float32, channels*frames),
	}
}

// scratchBufs lazily sizes and returns this task's voice/gain scratch
// buffers for a period of frames; see the field comments above.
func (t *baseTask) scratchBufs(frames int) (scratch, gains []float32) {
	if len(t.voiceScratch) < frames*2 {
		t.voiceScratch = make([]float32, frames*2)
	}
	if len(t.gainScratch) < frames {
		t.gainScratch = make([]float32, frames)
	}
	return t.voiceScratch[:frames*2], t.gainScratch[:frames]
}

func (t *baseTask) Group() int         { return t.group }
func (t *baseTask) Cost() int          { return t.cost }
func (t *baseTask) Repeat() bool       { return t.repeat }
func (t *baseTask) Buffer() []float32  { return t.buf }

func (t *baseTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *baseTask) Clear() {
	for i := range t.buf {
		t.buf[i] = 0
	}
}

func (t *baseTask) Reset() {
	t.mu.Lock()
	t.done = false
	t.stop = false
	t.mu.Unlock()
}

func (t *baseTask) ShouldStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop
}

// Add pushes v onto the pending-adds stack with a CAS loop: any number of
// caller threads may race here concurrently (§9 "lock-free push into a
// pending-adds queue"). No allocation, no mutex.
func (t *baseTask) Add(v *voice) {
	for {
		old := t.pendingHead.Load()
		v.pendingNext = old
		if t.pendingHead.CompareAndSwap(old, v) {
			return
		}
	}
}

// drainPending detaches the entire pending-adds list in one atomic swap
// (not a node-by-node CAS pop, so it cannot race against a concurrent
// Add's CAS) and returns it as a slice in push order reversed, i.e.
// newest-added first.
func (t *baseTask) drainPending() []*voice {
	head := t.pendingHead.Swap(nil)

	var out []*voice
	for head != nil {
		next := head.pendingNext
		head.pendingNext = nil
		out = append(out, head)
		head = next
	}
	return out
}

// runOnce takes the task's mutex non-blocking; if already held, the
// caller retreats (another thread is running it). It does nothing if the
// task is already done.
func (t *baseTask) runOnce(body func()) {
	if t.Done() {
		return
	}
	if !t.mu.TryLock() {
		return
	}
	defer t.mu.Unlock()
	if t.done {
		return
	}
	body()
	t.done = true
}

// finishOnce blocks on the mutex (the caller is about to read the
// buffer and needs it populated) but is a no-op once done.
func (t *baseTask) finishOnce(body func()) {
	if t.Done() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	body()
	t.done = true
}
