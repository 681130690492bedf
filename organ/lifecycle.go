package organ

// StartPipe allocates a voice for provider on the given windchest and
// audio group (§4.4 "start_pipe"). Returns a nil handle if the sampler
// pool is exhausted (SamplerStarvation, §7) or the provider has no
// matching attack section (SectionMissing, §7).
func (e *Engine) StartPipe(provider SoundProvider, windchestN int, audioGroup int, velocity int, delayMS float64, prevEventIntervalMS int, isRelease bool) *VoiceHandle {
	var section Section
	if isRelease {
		section = provider.GetRelease(0, prevEventIntervalMS)
	} else {
		section = provider.GetAttack(velocity, prevEventIntervalMS)
	}
	if section == nil {
		return nil
	}

	v := e.pool.Acquire()
	if v == nil {
		return nil
	}

	ratio := e.streamRatio(provider, section)
	v.provider = provider
	v.section = section
	v.stream = newStream(section, ratio, e.config.Interpolation)
	v.toneBalance = newToneBalance(provider.ToneBalance())
	v.velocity = velocity
	v.isRelease = isRelease
	v.delaySamples = int64(delayMS * float64(e.config.SampleRate) / 1000)
	v.startTime = e.currentTime.Load() + v.delaySamples
	v.attackStartTime = v.startTime
	v.audioGroupID = audioGroup
	v.taskID = int32(windchestN)
	if windchestN > 0 && windchestN-1 < len(e.windchests) {
		v.windchestVolume = e.windchests[windchestN-1].volume
	} else {
		v.windchestVolume = 1
	}

	target := provider.Gain() * section.NormGain()
	velVol := provider.VelocityVolume(velocity)
	v.fader.Setup(target, velVol)

	dest := e.windchestFor(v.taskID, v.audioGroupID)
	if dest == nil {
		e.pool.Release(v)
		return nil
	}
	dest.Add(v)

	return &VoiceHandle{v: v, provider: provider}
}

// StartTremulantSample starts a pipe that speaks directly off a
// tremulant, bypassing windchest routing (§6 "start_tremulant_sample";
// task ID encoding §3: id < 0).
func (e *Engine) StartTremulantSample(provider SoundProvider, tremulantIndex int, audioGroup int, velocity int, delayMS float64, prevEventIntervalMS int) *VoiceHandle {
	section := provider.GetAttack(velocity, prevEventIntervalMS)
	if section == nil || tremulantIndex < 0 || tremulantIndex >= len(e.tremulants) {
		return nil
	}
	v := e.pool.Acquire()
	if v == nil {
		return nil
	}
	ratio := e.streamRatio(provider, section)
	v.provider = provider
	v.section = section
	v.stream = newStream(section, ratio, e.config.Interpolation)
	v.toneBalance = newToneBalance(provider.ToneBalance())
	v.velocity = velocity
	v.delaySamples = int64(delayMS * float64(e.config.SampleRate) / 1000)
	v.startTime = e.currentTime.Load() + v.delaySamples
	v.attackStartTime = v.startTime
	v.audioGroupID = audioGroup
	v.taskID = int32(-tremulantIndex - 1)
	v.windchestVolume = 1

	target := provider.Gain() * section.NormGain()
	v.fader.Setup(target, provider.VelocityVolume(velocity))

	e.tremulants[tremulantIndex].Add(v)
	return &VoiceHandle{v: v, provider: provider}
}

// StopSample schedules handle's voice to release, current_time+delay
// samples from now; a no-op if the handle has been reused since
// (§4.4, §9 "Handle stability").
func (e *Engine) StopSample(provider SoundProvider, handle *VoiceHandle, delayMS float64) int64 {
	if handle == nil || !handle.v.matches(provider) {
		return 0
	}
	delay := int64(delayMS * float64(e.config.SampleRate) / 1000)
	t := e.currentTime.Load() + delay
	handle.v.stopTime = t
	return t
}

// SwitchSample requests an attack-section switch on handle's voice (used
// for tremulant on/off transitions, §4.4 "switch_sample").
func (e *Engine) SwitchSample(provider SoundProvider, handle *VoiceHandle) {
	if handle == nil || !handle.v.matches(provider) {
		return
	}
	handle.v.newAttackTime = e.currentTime.Load()
}

// UpdateVelocity atomically adjusts a voice's velocity volume; safe to
// call concurrently with the processing thread (one scalar write,
// staleness acceptable, §4.4).
func (e *Engine) UpdateVelocity(provider SoundProvider, handle *VoiceHandle, velocity int) {
	if handle == nil || !handle.v.matches(provider) {
		return
	}
	handle.v.velocity = velocity
	handle.v.fader.velocityVolume = provider.VelocityVolume(velocity)
}

// windchestFor resolves a voice's taskID/audioGroupID to the concrete
// task it should be added to: a real windchest (id > 0), the group's
// detached-release windchest (id == 0), or a tremulant's own voice list
// (id < 0) — the Task ID encoding of §3.
func (e *Engine) windchestFor(taskID int32, audioGroupID int) Task {
	switch {
	case taskID > 0:
		idx := int(taskID) - 1
		if idx >= 0 && idx < len(e.windchests) {
			return e.windchests[idx]
		}
	case taskID == 0:
		if audioGroupID >= 0 && audioGroupID < len(e.detached) {
			return e.detached[audioGroupID]
		}
		if len(e.detached) > 0 {
			return e.detached[0]
		}
	default:
		idx := int(-taskID - 1)
		if idx >= 0 && idx < len(e.tremulants) {
			return e.tremulants[idx]
		}
	}
	return nil
}

// streamRatio computes a voice's resample rate: source/output sample
// rate scaled by the provider's tuning and a per-voice random jitter
// (§4.2 "Stream"/"Random factor").
func (e *Engine) streamRatio(provider SoundProvider, section Section) float64 {
	base := float64(section.SampleRate()) / float64(e.config.SampleRate)
	return base * provider.Tuning() * e.randomFactor()
}

// attackDurationMS linearly interpolates the effective attack duration
// from a MIDI key number (§4.4 "Release decay shaping"): 50ms at k>=96,
// 500ms at k<=24, linear in between. A key above 133 or exactly 0 (no
// key assigned) defaults to 60, matching
// GOSoundOrganEngine.cpp's `midikey_frequency > 133 || midikey_frequency == 0`.
func attackDurationMS(midiKey int) float64 {
	k := midiKey
	if k > 133 || k == 0 {
		k = 60
	}
	switch {
	case k >= 96:
		return 50
	case k <= 24:
		return 500
	default:
		t := float64(k-24) / float64(96-24)
		return 500 + t*(50-500)
	}
}

// releaseGainScale implements 0.2 + 0.8*(2x - x^2) for x = t/attackDuration,
// the attack-duration-dependent release gain scale (§4.4).
func releaseGainScale(t, attackDuration float64) float32 {
	if attackDuration <= 0 {
		return 1
	}
	x := t / attackDuration
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return float32(0.2 + 0.8*(2*x-x*x))
}

// timeToFullReverbMS implements ttr = clamp(60*L/sr + 40, 100, 350)
// (§4.4), where L is the release section length in samples.
func timeToFullReverbMS(sectionLength int64, sampleRate int) float64 {
	ttr := 60*float64(sectionLength)/float64(sampleRate) + 40
	if ttr < 100 {
		ttr = 100
	}
	if ttr > 350 {
		ttr = 350
	}
	return ttr
}

// crossfadeSamples resolves the crossfade length to use for a
// transition, defaulting to the attack-switch crossfade length when the
// release section has none (§4.4 "Crossfade").
func crossfadeSamples(provider SoundProvider, section Section, sampleRate int) int {
	ms := 0.0
	if section != nil {
		ms = section.ReleaseCrossfadeLengthMS()
	}
	if ms <= 0 {
		ms = provider.AttackSwitchCrossfadeLengthMS()
	}
	return int(ms * float64(sampleRate) / 1000)
}
