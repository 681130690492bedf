package organ

// releaseTask is the Release task (§4.3): a repeat-group task re-entered
// up to ReleaseConcurrency times per period, draining the voices handed
// to it by windchest/tremulant tasks that decided a voice needs to stop
// or switch attack sections, and constructing their successor voices
// (§4.4 "Release", "Crossfade", "Release decay shaping").
//
// It carries no audio of its own; Buffer() is a zero-length placeholder
// so it satisfies Task without a mixing role.
type releaseTask struct {
	baseTask

	engine *Engine
}

func newReleaseTask(releaseConcurrency int, engine *Engine) *releaseTask {
	if releaseConcurrency < 1 {
		releaseConcurrency = 1
	}
	return &releaseTask{
		baseTask: newBaseTask(GroupRelease, 1, true, 0, 0),
		engine:   engine,
	}
}

// Run and Finish both just drain whatever is pending; the task never
// latches done, since the scheduler pulls it by repeat budget rather
// than by its Done() state (§4.5).
func (t *releaseTask) Run(th *workerThread)    { t.process() }
func (t *releaseTask) Finish(th *workerThread) { t.process() }

func (t *releaseTask) process() {
	pending := t.drainPending()
	for _, v := range pending {
		t.engine.resolveVoice(v)
	}
}

// resolveVoice is the unified attack-switch/release construction code
// path (§12 supplemented feature): v is the original, still-configured
// voice a windchest or tremulant task handed off because its stopTime
// or newAttackTime came due. Exactly one successor voice is built (or
// none, on starvation/SectionMissing), and v itself is handed back to
// its originating task to decay out over the same crossfade window.
func (e *Engine) resolveVoice(v *voice) {
	now := e.currentTime.Load()
	sampleRate := e.config.SampleRate
	eventIntervalMS := int(float64(now-v.attackStartTime) * 1000 / float64(sampleRate))

	isStop := v.stopTime != 0 && now >= v.stopTime
	var next Section
	var isRelease bool
	if isStop {
		waveState := 0
		if v.section != nil {
			waveState = v.section.WaveTremulantStateFor(int64(v.stream.pos))
		}
		next = v.provider.GetRelease(waveState, eventIntervalMS)
		isRelease = true
	} else {
		next = v.provider.GetAttack(v.velocity, eventIntervalMS)
		isRelease = false
	}

	cfSamples := crossfadeSamples(v.provider, next, sampleRate)

	// "gain > 0" guard (§9 open question, kept as the original's imprecise
	// float test rather than a minimum-audible-level threshold): a release
	// on a windchest whose volume is exactly zero spawns no release voice
	// at all, same as SectionMissing.
	vol := float32(1)
	if isRelease && v.taskID >= 0 {
		vol = v.windchestVolume
	}

	if next == nil || vol == 0 {
		// SectionMissing (§7): no successor, just let the original voice
		// decay out in place.
		e.retireOriginal(v, cfSamples)
		return
	}

	nv := e.pool.Acquire()
	if nv == nil {
		// SamplerStarvation (§7): same fallback as SectionMissing.
		e.retireOriginal(v, cfSamples)
		return
	}

	ratio := e.streamRatio(v.provider, next)
	nv.provider = v.provider
	nv.section = next
	nv.stream = newStream(next, ratio, e.config.Interpolation)
	if next.SupportsStreamAlignment() {
		nv.stream.alignFrom(v.stream)
	}
	nv.toneBalance = newToneBalance(v.provider.ToneBalance())
	nv.velocity = v.velocity
	nv.isRelease = isRelease
	nv.startTime = now
	nv.attackStartTime = v.attackStartTime
	nv.audioGroupID = v.audioGroupID

	target := v.provider.Gain() * next.NormGain()
	velVol := v.provider.VelocityVolume(v.velocity)

	if isRelease {
		// Release tails are detached from their originating windchest's
		// tremulant modulation and moved to the detached windchest; the
		// originating windchest's volume must be folded into the gain
		// target first, or playback on the detached chest won't match
		// the volume it had on the real one (§12 supplemented feature).
		target *= vol
		nv.taskID = DetachedReleaseTaskID
		nv.windchestVolume = v.windchestVolume
		e.applyReleaseDecayShaping(nv, v, next, target, velVol, cfSamples)
	} else {
		nv.taskID = v.taskID
		nv.windchestVolume = v.windchestVolume
		nv.fader.SetupRamp(target, velVol, cfSamples)
	}

	dest := e.windchestFor(nv.taskID, nv.audioGroupID)
	if dest == nil {
		e.pool.Release(nv)
		e.retireOriginal(v, cfSamples)
		return
	}
	dest.Add(nv)

	e.retireOriginal(v, cfSamples)
}

// retireOriginal schedules v's own fade-out over the crossfade window
// and hands it back to the task it was originally speaking through, so
// it keeps contributing audio (at decreasing gain) until silent and
// returned to the pool by the ordinary per-voice pass (§4.2 step 7).
func (e *Engine) retireOriginal(v *voice, crossfadeSamples int) {
	v.stopTime = 0
	v.newAttackTime = 0
	v.fader.StartDecreasingVolume(crossfadeSamples)
	dest := e.windchestFor(v.taskID, v.audioGroupID)
	if dest != nil {
		dest.Add(v)
		return
	}
	e.pool.Release(v)
}

// applyReleaseDecayShaping folds the attack-duration-dependent gain
// scale and, for releases that land before the release section's time-
// to-full-reverb, an additional scheduled decay, into nv's fader
// (§4.4 "Release decay shaping").
func (e *Engine) applyReleaseDecayShaping(nv, old *voice, section Section, target, velVol float32, crossfade int) {
	if !e.config.ScaleReleases {
		nv.fader.SetupRamp(target, velVol, crossfade)
		return
	}
	sampleRate := e.config.SampleRate
	elapsedMS := float64(e.currentTime.Load()-old.attackStartTime) * 1000 / float64(sampleRate)
	ad := attackDurationMS(old.provider.MIDIKeyNumber())
	scale := releaseGainScale(elapsedMS, ad)

	nv.fader.SetupRamp(target*scale, velVol, crossfade)

	ttr := timeToFullReverbMS(section.Length(), sampleRate)
	if elapsedMS < ttr {
		extraMS := ttr + 6000*elapsedMS/ttr
		nv.scheduledDecaySamples = msToSamples(extraMS, sampleRate)
		nv.scheduledDecayTime = e.currentTime.Load() + int64(nv.scheduledDecaySamples)
	}
}
