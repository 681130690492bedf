package organ

// windchestTask owns the set of pipe voices sharing one wind source and
// any tremulants modulating it (§4.3).
type windchestTask struct {
	baseTask

	engine     *Engine // non-owning back-reference; Engine owns this task
	index      int     // windchest index; this task's positive task ID
	tremulants []*tremulantTask
	volume     float32

	active []*voice

	// modBuf holds the combined tremulant modulation signal for the
	// period, one sample per frame (mono, broadcast across channels).
	modBuf []float32
}

func newWindchestTask(index int, channels, frames int, engine *Engine) *windchestTask {
	return &windchestTask{
		baseTask: newBaseTask(GroupWindchest, frames, false, channels, frames),
		engine:   engine,
		index:    index,
		modBuf:   make([]float32, frames),
	}
}

func (t *windchestTask) taskID() int32 { return int32(t.index) }

func (t *windchestTask) Run(th *workerThread) {
	t.runOnce(func() { t.compute(th) })
}

func (t *windchestTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.compute(th) })
}

func (t *windchestTask) compute(th *workerThread) {
	for _, tr := range t.tremulants {
		tr.Finish(th)
	}

	frames := len(t.modBuf)
	for i := 0; i < frames; i++ {
		t.modBuf[i] = 1
	}
	for _, tr := range t.tremulants {
		buf := tr.Buffer()
		for i := 0; i < frames; i++ {
			t.modBuf[i] *= buf[i]
		}
	}

	t.active = append(t.active, t.drainPending()...)
	t.Clear()
	scratch, gains := t.scratchBufs(frames)
	t.active = mixActiveVoices(t.active, t.buf, frames, t.engine, t.modBuf, t.engine.releaseTask, scratch, gains, nil)
}
