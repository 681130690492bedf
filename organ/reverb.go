package organ

import "github.com/cwbudde/algo-dsp/dsp/effects"

// reverb wraps a per-output Freeverb-style instance per channel, applied
// once per device inside the Output/Downmix task's Run, after the group
// mix and before the final clamp pass.
type reverb struct {
	enabled bool
	fvL     *effects.Reverb
	fvR     *effects.Reverb
}

func newReverb(cfg ReverbConfig, sampleRate int) *reverb {
	if !cfg.Enabled {
		return &reverb{enabled: false}
	}
	newChannel := func() *effects.Reverb {
		fv := effects.NewReverb()
		fv.SetWet(cfg.Wet)
		fv.SetDry(cfg.Dry)
		fv.SetRoomSize(cfg.RoomSize)
		fv.SetDamp(cfg.Damp)
		fv.SetGain(cfg.Gain)
		return fv
	}
	return &reverb{enabled: true, fvL: newChannel(), fvR: newChannel()}
}

// Process applies the reverb in place to n interleaved stereo frames.
func (r *reverb) Process(buf []float32, n int) {
	if r == nil || !r.enabled {
		return
	}
	for i := 0; i < n; i++ {
		buf[2*i] = float32(r.fvL.ProcessSample(float64(buf[2*i])))
		buf[2*i+1] = float32(r.fvR.ProcessSample(float64(buf[2*i+1])))
	}
}

func (r *reverb) Reset() {
	if r == nil || !r.enabled {
		return
	}
	r.fvL.Reset()
	r.fvR.Reset()
}
