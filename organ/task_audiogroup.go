package organ

// audioGroupTask mixes multiple windchest outputs plus the detached
// releases belonging to this audio group into one interleaved stereo
// buffer (§4.3).
type audioGroupTask struct {
	baseTask

	windchests []*windchestTask
	detached   *windchestTask

	// tremulants and groupIndex let this group also pull in whatever
	// tremulant-direct voices (Engine.StartTremulantSample) target it,
	// since those are computed by the tremulant tasks themselves rather
	// than by any windchest (§12 supplemented feature).
	tremulants []*tremulantTask
	groupIndex int
}

func newAudioGroupTask(frames int, detached *windchestTask) *audioGroupTask {
	return &audioGroupTask{
		baseTask: newBaseTask(GroupAudioGroup, frames, false, 2, frames),
		detached: detached,
	}
}

func (t *audioGroupTask) Run(th *workerThread) {
	t.runOnce(func() { t.compute(th) })
}

func (t *audioGroupTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.compute(th) })
}

func (t *audioGroupTask) compute(th *workerThread) {
	t.Clear()
	for _, w := range t.windchests {
		w.Finish(th)
		addInto(t.buf, w.Buffer())
	}
	if t.detached != nil {
		t.detached.Finish(th)
		addInto(t.buf, t.detached.Buffer())
	}
	for _, tr := range t.tremulants {
		tr.Finish(th)
		addInto(t.buf, tr.GroupBuffer(t.groupIndex))
	}
}

func addInto(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
