package organ

import (
	"sort"
	"sync"
	"sync/atomic"
)

// scheduler holds the priority-ordered task list and the rendezvous gate
// that worker threads and the audio thread share (§4.5).
type scheduler struct {
	mu    sync.Mutex
	tasks []Task // sorted by Group ascending; stable within a group

	releaseRepeats     int
	releaseRepeatsLeft atomic.Int32

	generation atomic.Uint64

	givingWork atomic.Bool

	cond  *sync.Cond // guards idle workers; cond.L is &mu
	awake bool
}

func newScheduler(releaseRepeats int) *scheduler {
	s := &scheduler{releaseRepeats: releaseRepeats}
	s.cond = sync.NewCond(&s.mu)
	s.givingWork.Store(true)
	return s
}

// setTasks installs the task list, sorted by priority group, and resets
// the release repeat-count. Called once at Build; the task graph is
// fixed thereafter (no dynamic reconfiguration, §1).
func (s *scheduler) setTasks(tasks []Task) {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Group() < sorted[j].Group()
	})
	s.mu.Lock()
	s.tasks = sorted
	s.mu.Unlock()
	s.releaseRepeatsLeft.Store(int32(releaseRepeatCount(sorted, s.releaseRepeats)))
}

func releaseRepeatCount(tasks []Task, repeats int) int {
	for _, t := range tasks {
		if t.Group() == GroupRelease {
			return repeats
		}
	}
	return 0
}

// reset zeroes all task done/stop flags and bumps the generation counter,
// at the top of each period.
func (s *scheduler) reset() {
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()
	for _, t := range tasks {
		t.Reset()
	}
	s.releaseRepeatsLeft.Store(int32(releaseRepeatCount(tasks, s.releaseRepeats)))
	s.generation.Add(1)
}

// pauseGivingWork causes all subsequent pulls to return nil, draining the
// scheduler; used on engine stop.
func (s *scheduler) pauseGivingWork() {
	s.givingWork.Store(false)
}

// resumeGivingWork is the opposite of pauseGivingWork.
func (s *scheduler) resumeGivingWork() {
	s.givingWork.Store(true)
	s.wakeup()
}

// pull returns the highest-priority not-yet-done task, or nil if the
// queue is drained or paused. The RELEASE group is special: it is handed
// out up to releaseRepeats times per period, each caller racing an atomic
// decrement; once that budget is spent it is skipped and lower-priority
// tasks are still handed out.
func (s *scheduler) pull() Task {
	if !s.givingWork.Load() {
		return nil
	}
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()
	for _, t := range tasks {
		if t.Group() == GroupRelease && t.Repeat() {
			if s.releaseRepeatsLeft.Add(-1) < 0 {
				continue
			}
			return t
		}
		if !t.Done() {
			return t
		}
	}
	return nil
}

// wakeup signals all idle worker threads.
func (s *scheduler) wakeup() {
	s.mu.Lock()
	s.awake = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// waitForWork blocks the calling worker thread until wakeup() or stop.
func (s *scheduler) waitForWork(stop func() bool) {
	s.mu.Lock()
	for !s.awake && !stop() {
		s.cond.Wait()
	}
	s.awake = false
	s.mu.Unlock()
}
