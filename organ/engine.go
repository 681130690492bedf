package organ

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// engineState is the Engine's lifecycle (§3).
type engineState int

const (
	stateIdle engineState = iota
	stateBuilt
	stateWorking
	stateUsed
)

func (s engineState) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateBuilt:
		return "BUILT"
	case stateWorking:
		return "WORKING"
	case stateUsed:
		return "USED"
	default:
		return "UNKNOWN"
	}
}

// VoiceHandle is a stable reference to a started voice, returned by
// StartPipe/StartTremulantSample. It survives pool slot reuse only as
// long as the underlying slot still holds the same provider (§9 "Handle
// stability").
type VoiceHandle struct {
	v        *voice
	provider SoundProvider
}

// Engine is the Organ Sound Engine (§4.4): owns the task graph, the
// sampler pool, and the voice lifecycle operations exposed to the organ
// model.
type Engine struct {
	mu    sync.Mutex
	state atomic.Int32

	config    Config
	logger    Logger
	model     OrganModel
	recorder  Recorder

	pool *SamplerPool

	tremulants    []*tremulantTask
	windchests    []*windchestTask
	detached      []*windchestTask // one per audio group, index 0 semantics
	audioGroups   []*audioGroupTask
	outputs       []*outputTask
	downmix       *downmixTask
	releaseTask   *releaseTask
	touchTask     *touchTask
	allTasks      []Task

	sched *scheduler
	pool2 *workerPool

	currentTime atomic.Int64

	usedPolyphony atomic.Int32
	meter         *peakMeter

	masterVolumeDB atomic.Int32
	rng            *rand.Rand
	rngMu          sync.Mutex
}

// NewEngine constructs an Engine in the IDLE state.
func NewEngine(cfg Config, model OrganModel, logger Logger) *Engine {
	if logger == nil {
		logger = defaultLogger{}
	}
	e := &Engine{
		config: cfg,
		logger: logger,
		model:  model,
		rng:    rand.New(rand.NewSource(1)),
	}
	e.state.Store(int32(stateIdle))
	return e
}

func (e *Engine) State() engineState { return engineState(e.state.Load()) }

// SetRecorder attaches the sink fed from the Output/Downmix tasks. Must
// be called before Build (§4.6 "Open" sets the recorder's
// bytes-per-sample as part of the same sequence).
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetMasterVolume sets a master gain trim, in dB, applied by every
// output/downmix task's final clamp pass (§12 supplemented feature).
func (e *Engine) SetMasterVolume(db int) {
	e.masterVolumeDB.Store(int32(db))
}

func (e *Engine) masterGain() float32 {
	db := float64(e.masterVolumeDB.Load())
	return float32(math.Pow(10, db*0.05))
}

// Build constructs the task graph from the organ model and configuration
// and transitions IDLE → BUILT (§4.4).
func (e *Engine) Build() error {
	assertState(e.State(), stateIdle, "Build")

	cfg := e.config
	frames := cfg.SamplesPerBuffer

	e.pool = NewSamplerPool(cfg.PolyphonyLimit)

	nGroups := len(cfg.AudioGroups)
	if nGroups == 0 {
		nGroups = 1
	}

	e.tremulants = make([]*tremulantTask, e.model.TremulantCount())
	for i := range e.tremulants {
		t := newTremulantTask(i, frames, cfg.SampleRate, 6.0, 0.05, 200, nGroups)
		t.engine = e
		e.tremulants[i] = t
	}

	e.windchests = make([]*windchestTask, e.model.WindchestCount())
	for i := range e.windchests {
		wc := e.model.GetWindchest(i)
		w := newWindchestTask(i+1, 2, frames, e)
		w.volume = wc.Volume()
		e.windchests[i] = w
	}
	// Connect windchests to their tremulants (§4.4 "Build"); every
	// tremulant task already exists at this point. IDs outside the
	// tremulant list are ignored.
	for i, w := range e.windchests {
		for _, ti := range e.model.GetWindchest(i).TremulantIDs() {
			if ti >= 0 && ti < len(e.tremulants) {
				w.tremulants = append(w.tremulants, e.tremulants[ti])
			}
		}
	}

	e.detached = make([]*windchestTask, nGroups)
	for g := range e.detached {
		d := newWindchestTask(0, 2, frames, e)
		d.volume = 1
		e.detached[g] = d
	}

	e.audioGroups = make([]*audioGroupTask, nGroups)
	for g := range e.audioGroups {
		ag := newAudioGroupTask(frames, e.detached[g])
		ag.tremulants = e.tremulants
		ag.groupIndex = g
		e.audioGroups[g] = ag
	}
	// Windchests distribute round-robin across groups; the organ model
	// has no way to assign them. A single-group config (the common case)
	// puts them all on group 0.
	for i, w := range e.windchests {
		g := i % nGroups
		e.audioGroups[g].windchests = append(e.audioGroups[g].windchests, w)
	}

	e.outputs = make([]*outputTask, len(cfg.Devices))
	for i, dev := range cfg.Devices {
		o := newOutputTask(dev, e.audioGroups, cfg.SampleRate, frames)
		o.engine = e
		o.setDeviceIndex(i)
		if cfg.Reverb.Enabled {
			o.attachReverb(cfg.Reverb, cfg.SampleRate)
		}
		e.outputs[i] = o
	}

	if cfg.RecordDownmix {
		e.downmix = newDownmixTask(e.audioGroups, cfg.SampleRate, frames)
		e.downmix.engine = e
		e.downmix.setDeviceIndex(len(cfg.Devices))
		if cfg.Reverb.Enabled {
			e.downmix.attachReverb(cfg.Reverb, cfg.SampleRate)
		}
	}
	var recorderT *recorderTask
	if e.recorder != nil {
		var recTasks []Task
		if e.downmix != nil {
			recTasks = []Task{e.downmix}
		} else {
			for _, o := range e.outputs {
				recTasks = append(recTasks, o)
			}
		}
		e.recorder.SetOutputs(recTasks, frames)
		e.recorder.SetSampleRate(cfg.SampleRate)
		e.recorder.SetBytesPerSample(cfg.WaveFormatBytesPerSample)
		if len(recTasks) > 0 {
			recorderT = newRecorderTask(recTasks[0], e.recorder)
		}
	}

	e.releaseTask = newReleaseTask(cfg.ReleaseConcurrency, e)
	e.touchTask = newTouchTask(e.pool)

	e.allTasks = nil
	for _, t := range e.tremulants {
		e.allTasks = append(e.allTasks, t)
	}
	for _, t := range e.windchests {
		e.allTasks = append(e.allTasks, t)
	}
	for _, t := range e.detached {
		e.allTasks = append(e.allTasks, t)
	}
	for _, t := range e.audioGroups {
		e.allTasks = append(e.allTasks, t)
	}
	for _, t := range e.outputs {
		e.allTasks = append(e.allTasks, t)
	}
	if e.downmix != nil {
		e.allTasks = append(e.allTasks, e.downmix)
	}
	if recorderT != nil {
		e.allTasks = append(e.allTasks, recorderT)
	}
	e.allTasks = append(e.allTasks, e.releaseTask, e.touchTask)

	e.sched = newScheduler(cfg.ReleaseConcurrency)
	e.sched.setTasks(e.allTasks)

	deviceChannels := make([]int, len(cfg.Devices))
	for i, d := range cfg.Devices {
		deviceChannels[i] = d.Channels
	}
	if cfg.RecordDownmix {
		deviceChannels = append(deviceChannels, 2)
	}
	e.meter = newPeakMeter(deviceChannels)

	e.pool2 = newWorkerPool(e.sched, cfg.Concurrency)
	e.pool2.start()

	e.state.Store(int32(stateBuilt))
	return nil
}

// Start resets pool/time/scheduler and transitions BUILT → WORKING.
func (e *Engine) Start() {
	assertState(e.State(), stateBuilt, "Start")
	e.pool.ReturnAll()
	e.currentTime.Store(1)
	e.sched.reset()
	e.sched.resumeGivingWork()
	e.state.Store(int32(stateWorking))
}

// BuildAndStart is the convenience combination exposed to hosts (§6).
func (e *Engine) BuildAndStart() error {
	if err := e.Build(); err != nil {
		return err
	}
	e.Start()
	return nil
}

// SetUsed marks the engine USED (audio callbacks additionally permitted
// to report meter data to a live UI) or back to WORKING.
func (e *Engine) SetUsed(used bool) {
	st := e.State()
	if st != stateWorking && st != stateUsed {
		panic(errWrap("SetUsed", st, stateWorking))
	}
	if used {
		e.state.Store(int32(stateUsed))
	} else {
		e.state.Store(int32(stateWorking))
	}
}

// Stop pauses the scheduler, stops the worker threads and blocks until
// every one has exited, then transitions back to BUILT. Start does not
// relaunch them: after a Stop, tasks run only on the threads that call
// into the engine.
func (e *Engine) Stop() {
	st := e.State()
	if st != stateWorking && st != stateUsed {
		return
	}
	e.sched.pauseGivingWork()
	e.pool2.stop()
	e.state.Store(int32(stateBuilt))
}

// StopAndDestroy stops and tears the task graph down to IDLE.
func (e *Engine) StopAndDestroy() {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allTasks = nil
	e.tremulants = nil
	e.windchests = nil
	e.detached = nil
	e.audioGroups = nil
	e.outputs = nil
	e.downmix = nil
	e.releaseTask = nil
	e.touchTask = nil
	e.pool = nil
	e.sched = nil
	e.pool2 = nil
	e.state.Store(int32(stateIdle))
}

// NextPeriod advances the engine one period (§4.4): the last-arriving
// device callback calls this exactly once per period.
func (e *Engine) NextPeriod() {
	e.execOnCallerThread()
	e.currentTime.Add(int64(e.config.SamplesPerBuffer))
	if used := int32(e.pool.UsedCount()); used > e.usedPolyphony.Load() {
		e.usedPolyphony.Store(used)
	}
	e.sched.reset()
}

// execOnCallerThread drains whatever the scheduler still holds on the
// calling (last-arriving audio) thread, mirroring Scheduler::Exec.
func (e *Engine) execOnCallerThread() {
	for {
		t := e.sched.pull()
		if t == nil {
			return
		}
		t.Run(nil)
	}
}

// WakeupThreads nudges idle worker threads to start pre-computing tasks
// for the period just advanced into (§4.6, called after NextPeriod).
func (e *Engine) WakeupThreads() {
	e.pool2.wakeup()
}

// GetAudioOutput is called from the Sound System rendezvous: fills
// outBuffer with device outputIndex's period audio, finishing its Output
// task's chain first.
func (e *Engine) GetAudioOutput(outputIndex int, outBuffer []float32) {
	if e.State() != stateWorking && e.State() != stateUsed {
		for i := range outBuffer {
			outBuffer[i] = 0
		}
		return
	}
	o := e.outputs[outputIndex]
	o.Finish(nil)
	copy(outBuffer, o.Buffer())
}

// MeterInfo reports peak polyphony and per-device channel peaks since the
// previous call, and resets both (§12 supplemented feature; layout
// mirrors GetMeterInfo).
func (e *Engine) MeterInfo() MeterInfo {
	return MeterInfo{
		Polyphony:      int(e.usedPolyphony.Swap(0)),
		PolyphonyLimit: e.config.PolyphonyLimit,
		ChannelPeaks:   e.meter.snapshot(),
	}
}

// randomFactor returns 1 unless RandomizeSpeaking is enabled, in which
// case it returns a small pitch jitter uniform in ±(2^(1/1200)-1)
// (§4.2 "Random factor").
func (e *Engine) randomFactor() float64 {
	if !e.config.RandomizeSpeaking {
		return 1
	}
	e.rngMu.Lock()
	x := e.rng.Float64()*2 - 1
	e.rngMu.Unlock()
	delta := math.Pow(2, 1.0/1200.0) - 1
	return 1 + x*delta
}
