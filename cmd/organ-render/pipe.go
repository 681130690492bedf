package main

import (
	"math"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// sinePipe is a synthetic organ.SoundProvider standing in for a sampled
// pipe: its attack and release sections are precomputed sine tones
// rather than loaded from a rank recording, so this render harness has
// no dependency on sample assets.
type sinePipe struct {
	attack  *memSection
	release *memSection
	midiKey int
}

func newSinePipe(sampleRate int, freqHz float64, midiKey int) *sinePipe {
	return &sinePipe{
		attack:  synthesize(sampleRate, freqHz, 8.0, 0.6, false),
		release: synthesize(sampleRate, freqHz, 0.6, 0.6, true),
		midiKey: midiKey,
	}
}

func (p *sinePipe) Gain() float32                { return 1 }
func (p *sinePipe) Tuning() float64              { return 1 }
func (p *sinePipe) MIDIKeyNumber() int           { return p.midiKey }
func (p *sinePipe) VelocityVolume(v int) float32 { return float32(v) / 127 }

func (p *sinePipe) GetAttack(velocity, eventIntervalMS int) organ.Section { return p.attack }
func (p *sinePipe) GetRelease(waveTremulantState, eventIntervalMS int) organ.Section {
	return p.release
}

func (p *sinePipe) AttackSwitchCrossfadeLengthMS() float64 { return 15 }
func (p *sinePipe) ReleaseTailMS() float64                 { return 600 }
func (p *sinePipe) ToneBalance() organ.ToneBalanceFilter   { return nil }

// memSection is a fixed, in-memory-buffer organ.Section: an interleaved
// stereo sine tone with a fixed decay envelope baked in.
type memSection struct {
	data               []float32
	sampleRate         int
	releaseCrossfadeMS float64
}

func synthesize(sampleRate int, freqHz, lengthSeconds, decayTau float64, isRelease bool) *memSection {
	n := int(lengthSeconds * float64(sampleRate))
	data := make([]float32, n*2)
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-t / decayTau)
		s := float32(0.3 * env * math.Sin(phase))
		phase += step
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}
		data[2*i] = s
		data[2*i+1] = s
	}
	cf := 15.0
	if isRelease {
		cf = 40.0
	}
	return &memSection{data: data, sampleRate: sampleRate, releaseCrossfadeMS: cf}
}

func (s *memSection) Channels() int                 { return 2 }
func (s *memSection) NormGain() float32             { return 1 }
func (s *memSection) ReleaseCrossfadeLengthMS() float64 { return s.releaseCrossfadeMS }
func (s *memSection) Length() int64                 { return int64(len(s.data) / 2) }
func (s *memSection) SampleRate() int                { return s.sampleRate }
func (s *memSection) SupportsStreamAlignment() bool  { return false }
func (s *memSection) WaveTremulantStateFor(position int64) int { return 0 }

func (s *memSection) ReadAt(dst []float32, pos float64, n int) int {
	base := int64(pos)
	frames := int64(len(s.data) / 2)
	produced := 0
	for i := 0; i < n; i++ {
		idx := base + int64(i)
		if idx < 0 || idx >= frames {
			break
		}
		dst[2*i] = s.data[2*idx]
		dst[2*i+1] = s.data[2*idx+1]
		produced++
	}
	return produced
}
