package organ

import "github.com/oleg68/GrandOrgue-official/dsp"

// toneBalance applies a per-voice tone-correction filter, one biquad per
// channel so that left/right filter history does not cross-contaminate.
type toneBalance struct {
	enabled bool
	left    dsp.Biquad
	right   dsp.Biquad
}

func newToneBalance(f ToneBalanceFilter) *toneBalance {
	if f == nil {
		return &toneBalance{enabled: false}
	}
	b0, b1, b2, a1, a2 := f.Coefficients()
	tb := &toneBalance{enabled: true}
	tb.left = *dsp.NewBiquad(b0, b1, b2, a1, a2)
	tb.right = *dsp.NewBiquad(b0, b1, b2, a1, a2)
	return tb
}

// Process filters n interleaved stereo frames in place.
func (tb *toneBalance) Process(buf []float32, n int) {
	if tb == nil || !tb.enabled {
		return
	}
	for i := 0; i < n; i++ {
		buf[2*i] = tb.left.Process(buf[2*i])
		buf[2*i+1] = tb.right.Process(buf[2*i+1])
	}
}

func (tb *toneBalance) Reset() {
	if tb == nil {
		return
	}
	tb.left.Reset()
	tb.right.Reset()
}
