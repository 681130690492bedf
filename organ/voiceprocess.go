package organ

import "github.com/cwbudde/algo-dsp/dsp/core"

// voiceAction is what the owning task should do with a voice after a
// period's processing pass (§4.2 step 6-7).
type voiceAction int

const (
	voiceContinue voiceAction = iota
	voiceToRelease
	voiceReturnToPool
)

// softLimitAgeSamples is the 16-period age threshold (≈62 ms at
// 44.1 kHz) past which a release voice is accelerated once polyphony
// exceeds the soft limit (§4.1, §4.4).
const softLimitAgeSamples = 172 * 16

// softLimitDecayMS is the length, in milliseconds, of the accelerated
// decay once triggered; processSampler converts it to samples at the
// engine's configured rate.
const softLimitDecayMS = 370

// processSampler implements the Engine's per-voice processing pass
// (§4.2): pulls audio through the stream, applies fader and tone-balance,
// accumulates into buf, and reports what the owning task should do with
// the voice next. scratch/gains are the caller's task-owned temporaries
// (see baseTask.scratchBufs) — never shared across concurrently-running
// tasks.
func (e *Engine) processSampler(v *voice, buf []float32, frames int, mod []float32, scratch, gains []float32) voiceAction {
	now := e.currentTime.Load()
	if now < v.startTime {
		return voiceContinue
	}

	if v.isRelease && e.config.ManagePolyphony &&
		e.pool.UsedCount() > e.config.SoftLimit() &&
		now-v.startTime > softLimitAgeSamples {
		v.fader.StartDecreasingVolume(msToSamples(softLimitDecayMS, e.config.SampleRate))
	}
	if v.isRelease && v.dropCounter > 1 {
		v.fader.StartDecreasingVolume(msToSamples(softLimitDecayMS, e.config.SampleRate))
	}

	if v.scheduledDecayTime != 0 && now >= v.scheduledDecayTime {
		v.fader.StartDecreasingVolume(v.scheduledDecaySamples)
		v.scheduledDecayTime = 0
	}

	produced := v.stream.Read(scratch, frames)
	if produced < frames {
		v.section = nil
		v.provider = nil
	}

	v.toneBalance.Process(scratch, produced)

	v.fader.Next(gains, produced)

	for i := 0; i < produced; i++ {
		g := gains[i]
		m := float32(1)
		if mod != nil {
			m = mod[i]
		}
		buf[2*i] += scratch[2*i] * g * m
		buf[2*i+1] += scratch[2*i+1] * g * m
	}

	if v.stopTime != 0 && now >= v.stopTime && !v.isRelease {
		return voiceToRelease
	}
	if v.newAttackTime != 0 && now >= v.newAttackTime {
		return voiceToRelease
	}
	if v.provider == nil || v.fader.IsSilent() {
		return voiceReturnToPool
	}
	return voiceContinue
}

// mixActiveVoices runs processSampler over every voice in active (the
// caller has already appended its drained pending-adds), and returns the voices
// that should remain active (handling off release/return-to-pool as a
// side effect against the engine's release task and pool). scratch/gains
// are the caller's own task-local temporaries (§9 "shared mutable state"
// — never an Engine-level buffer, since sibling tasks in the same
// priority group run concurrently on different worker threads).
//
// groupBufs is nil for a windchest task, whose voices all share the one
// destination buf passed in. A tremulant task instead passes its own
// per-audio-group buffers here (nil for buf), since its own directly-
// owned voices (Engine.StartTremulantSample) can target different audio
// groups than whichever windchests this tremulant happens to modulate.
func mixActiveVoices(active []*voice, buf []float32, frames int, engine *Engine, mod []float32, releaseTarget Task, scratch, gains []float32, groupBufs [][]float32) []*voice {
	remaining := active[:0]
	for _, v := range active {
		dest := buf
		if groupBufs != nil {
			g := v.audioGroupID
			if g < 0 || g >= len(groupBufs) {
				g = 0
			}
			dest = groupBufs[g]
		}
		action := engine.processSampler(v, dest, frames, mod, scratch, gains)
		switch action {
		case voiceContinue:
			remaining = append(remaining, v)
		case voiceToRelease:
			if releaseTarget != nil {
				releaseTarget.Add(v)
			}
		case voiceReturnToPool:
			engine.pool.Release(v)
		}
	}
	if groupBufs != nil {
		for _, gb := range groupBufs {
			for i := range gb {
				gb[i] = float32(dspFlush(float64(gb[i])))
			}
		}
		return remaining
	}
	for i := range buf {
		buf[i] = float32(dspFlush(float64(buf[i])))
	}
	return remaining
}

func dspFlush(x float64) float64 {
	return core.FlushDenormals(x)
}

func msToSamples(ms float64, sampleRate int) int {
	return int(ms * float64(sampleRate) / 1000)
}
