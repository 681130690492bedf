package organ

// touchTask is the lowest-priority task in the graph (§4.3 "Touch"):
// opportunistic prefetch that walks the sampler pool's backing array so
// its pages are resident before Acquire needs them, done only when a
// worker has nothing higher-priority left to pull.
type touchTask struct {
	baseTask

	pool   *SamplerPool
	cursor int
}

func newTouchTask(pool *SamplerPool) *touchTask {
	return &touchTask{
		baseTask: newBaseTask(GroupTouch, 1, false, 0, 0),
		pool:     pool,
	}
}

func (t *touchTask) Run(th *workerThread) {
	t.runOnce(func() { t.touch(th) })
}

func (t *touchTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.touch(th) })
}

// touch reads one field from a slice of pool slots per call, advancing a
// rotating cursor so the whole pool gets visited over many periods
// without ever costing much in a single one.
func (t *touchTask) touch(th *workerThread) {
	if t.pool == nil {
		return
	}
	n := t.pool.Capacity()
	if n == 0 {
		return
	}
	const sweep = 64
	for i := 0; i < sweep; i++ {
		if th != nil && th.ShouldStop() {
			return
		}
		idx := (t.cursor + i) % n
		_ = t.pool.voices[idx].slot
	}
	t.cursor = (t.cursor + sweep) % n
}
