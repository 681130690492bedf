package organ

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Fader is the per-voice gain envelope: linear interpolation from the
// current gain to a target over a fixed number of samples.
type Fader struct {
	gain             float32
	target           float32
	samplesRemaining int32
	velocityVolume   float32
	step             float32
}

// Setup instantly sets gain and target to target*velocityVolume, with no
// ramp (used for a voice's very first period).
func (f *Fader) Setup(target, velocityVolume float32) {
	f.velocityVolume = velocityVolume
	f.gain = target * velocityVolume
	f.target = f.gain
	f.samplesRemaining = 0
	f.step = 0
}

// SetupRamp schedules a ramped change to target*velocityVolume over
// crossFadeSamples samples.
func (f *Fader) SetupRamp(target, velocityVolume float32, crossFadeSamples int) {
	f.velocityVolume = velocityVolume
	newTarget := target * velocityVolume
	if crossFadeSamples <= 0 {
		f.gain = newTarget
		f.target = newTarget
		f.samplesRemaining = 0
		f.step = 0
		return
	}
	f.target = newTarget
	f.samplesRemaining = int32(crossFadeSamples)
	f.step = (newTarget - f.gain) / float32(crossFadeSamples)
}

// StartDecreasingVolume schedules the gain target to 0 over the given
// number of samples, overriding any in-flight ramp.
func (f *Fader) StartDecreasingVolume(samples int) {
	if samples <= 0 {
		f.gain = 0
		f.target = 0
		f.samplesRemaining = 0
		f.step = 0
		return
	}
	f.target = 0
	f.samplesRemaining = int32(samples)
	f.step = -f.gain / float32(samples)
}

// IsSilent reports whether gain and target have both settled at zero.
func (f *Fader) IsSilent() bool {
	return f.gain == 0 && f.target == 0
}

// Next advances the fader by n samples, writing the per-sample gain curve
// into out (len(out) must be >= n).
func (f *Fader) Next(out []float32, n int) {
	for i := 0; i < n; i++ {
		if f.samplesRemaining > 0 {
			f.gain += f.step
			f.samplesRemaining--
			if f.samplesRemaining == 0 {
				f.gain = f.target
			}
		}
		f.gain = float32(dspcore.FlushDenormals(float64(f.gain)))
		out[i] = f.gain
	}
}
