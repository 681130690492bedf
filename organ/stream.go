package organ

import (
	"math"

	"github.com/oleg68/GrandOrgue-official/dsp"
)

// stream pulls interleaved stereo audio from a Section at a fractional
// playback rate, tracking a continuously advancing phase so that a voice
// can be realigned onto another stream mid-flight (attack→release and
// tremulant attack→new-attack crossfades).
type stream struct {
	section   Section
	pos       float64 // fractional source-sample position
	rate      float64 // source samples advanced per output sample
	channels  int
	exhausted bool
	interp    InterpolationType
	lagrange  *dsp.LagrangeInterpolator

	// scratch holds the produced stereo frame for the current pos;
	// refilled by readFrame.
	scratch [2]float32
}

// newStream begins a stream at position 0 and the given playback ratio
// (1.0 = source pitch, computed from the provider's tuning, per-voice
// random factor and session/source sample-rate ratio). interp selects
// the per-sample resampling method (§6 "interpolation_type").
func newStream(section Section, ratio float64, interp InterpolationType) *stream {
	s := &stream{section: section, rate: ratio, channels: 2, interp: interp}
	if interp == InterpolationPolyphase {
		s.lagrange = dsp.NewLagrangeInterpolator(3)
	}
	return s
}

// alignFrom transplants the phase/position of src into a freshly built
// stream on a different section, for a seamless crossfade; only sections
// reporting SupportsStreamAlignment() should be aligned this way.
func (s *stream) alignFrom(src *stream) {
	if src == nil {
		return
	}
	s.pos = src.pos
}

// Read pulls n output frames of interleaved stereo into dst (must have
// capacity for n*2 float32), advancing the fractional position by
// n*rate. It returns the number of whole frames actually produced; a
// return less than n means the section was exhausted mid-block.
func (s *stream) Read(dst []float32, n int) int {
	if s.exhausted || s.section == nil {
		return 0
	}
	length := s.section.Length()
	produced := 0
	for i := 0; i < n; i++ {
		if s.pos < 0 || int64(s.pos) >= length-1 {
			s.exhausted = true
			break
		}
		s.readFrame(s.pos)
		dst[2*i] = s.scratch[0]
		dst[2*i+1] = s.scratch[1]
		s.pos += s.rate
		produced++
	}
	return produced
}

// readFrame resolves the stereo sample at pos into s.scratch, dispatching
// to linear or 4-point Lagrange cubic interpolation per s.interp.
func (s *stream) readFrame(pos float64) {
	base := int64(math.Floor(pos))
	frac := float32(pos - float64(base))
	if s.interp == InterpolationPolyphase {
		s.readFramePolyphase(base, frac)
		return
	}
	s.readFrameLinear(base, frac)
}

// readFrameLinear interpolates between the two source frames straddling
// pos.
func (s *stream) readFrameLinear(base int64, frac float32) {
	var buf [4]float32
	var a, b [2]float32
	n := s.section.ReadAt(buf[0:2], float64(base), 1)
	if n == 0 {
		a = [2]float32{0, 0}
	} else {
		a = [2]float32{buf[0], buf[1]}
	}
	n = s.section.ReadAt(buf[2:4], float64(base+1), 1)
	if n == 0 {
		b = a
	} else {
		b = [2]float32{buf[2], buf[3]}
	}
	s.scratch[0] = a[0] + frac*(b[0]-a[0])
	s.scratch[1] = a[1] + frac*(b[1]-a[1])
}

// readFramePolyphase interpolates with a 4-tap cubic Lagrange kernel
// spanning base-1..base+2, matching the "polyphase" interpolation mode
// (§6 "interpolation_type"): a higher-order fractional-delay fit rather
// than a straight line between two samples.
func (s *stream) readFramePolyphase(base int64, frac float32) {
	var l, r [4]float32
	var buf [2]float32
	for i, off := range [4]int64{-1, 0, 1, 2} {
		n := s.section.ReadAt(buf[:], float64(base+off), 1)
		if n == 0 {
			if i > 0 {
				l[i], r[i] = l[i-1], r[i-1]
			}
			continue
		}
		l[i], r[i] = buf[0], buf[1]
	}
	s.scratch[0] = s.lagrange.Interpolate(l[:], frac)
	s.scratch[1] = s.lagrange.Interpolate(r[:], frac)
}
