package organ

// recorderTask is the Recorder's place in the task graph (§4.3
// "Recorder"): downstream of the Output/Downmix task it records from,
// finished within the same period-bound drain as everything else so it
// never observes a current_time that has already advanced past the
// period it is recording.
type recorderTask struct {
	baseTask

	source Task
	sink   Recorder
}

func newRecorderTask(source Task, sink Recorder) *recorderTask {
	return &recorderTask{
		baseTask: newBaseTask(GroupRecorder, 1, false, 0, 0),
		source:   source,
		sink:     sink,
	}
}

func (t *recorderTask) Run(th *workerThread) {
	t.runOnce(func() { t.compute(th) })
}

func (t *recorderTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.compute(th) })
}

func (t *recorderTask) compute(th *workerThread) {
	t.source.Finish(th)
	t.sink.WriteFrame(t.source.Buffer())
}
