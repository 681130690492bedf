package organ

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// tremulantTask computes one mono amplitude-LFO signal per period; the
// windchest tasks referencing it apply the output as a per-sample
// multiplier on their voices (§4.3). It can also directly own pipe
// voices (task ID < 0 in the encoding, §3) for pipes speaking straight
// off a tremulant with no windchest in between, e.g. via
// Engine.StartTremulantSample; those are mixed into groupBufs, modulated
// by the same LFO.
type tremulantTask struct {
	baseTask

	engine     *Engine // non-owning; nil until set by Engine.Build
	index      int
	sampleRate int
	freqHz     float64
	depth      float64
	phase      float64

	// rampSamples/rampPos model the tremulant's own start-up fade-in,
	// approached exponentially rather than stepped, so enabling a
	// tremulant mid-note doesn't click.
	rampSamples int
	rampPos     int

	active []*voice

	// groupBufs holds one stereo buffer per audio group: a tremulant task
	// can own pipe voices speaking directly off it (Engine.
	// StartTremulantSample), each targeting whichever audio group its
	// caller named, independently of which windchests this same
	// tremulant modulates. Indexed the same way as Engine.audioGroups.
	groupBufs [][]float32
}

func newTremulantTask(index, frames, sampleRate int, freqHz, depth float64, rampMS float64, nGroups int) *tremulantTask {
	if nGroups < 1 {
		nGroups = 1
	}
	groupBufs := make([][]float32, nGroups)
	for i := range groupBufs {
		groupBufs[i] = make([]float32, frames*2)
	}
	return &tremulantTask{
		baseTask:    newBaseTask(GroupTremulant, frames, false, 1, frames),
		index:       index,
		sampleRate:  sampleRate,
		freqHz:      freqHz,
		depth:       depth,
		rampSamples: int(rampMS * float64(sampleRate) / 1000),
		groupBufs:   groupBufs,
	}
}

func (t *tremulantTask) taskID() int32 { return int32(-t.index - 1) }

// GroupBuffer returns the stereo mix of this tremulant's own direct pipe
// voices destined for audio group g, computed by the same compute() pass
// that produces the LFO buffer. Out-of-range g falls back to group 0.
func (t *tremulantTask) GroupBuffer(g int) []float32 {
	if len(t.groupBufs) == 0 {
		return nil
	}
	if g < 0 || g >= len(t.groupBufs) {
		g = 0
	}
	return t.groupBufs[g]
}

func (t *tremulantTask) Run(th *workerThread) {
	t.runOnce(func() { t.compute() })
}

func (t *tremulantTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.compute() })
}

func (t *tremulantTask) compute() {
	n := len(t.buf)
	step := 2 * math.Pi * t.freqHz / float64(t.sampleRate)
	for i := 0; i < n; i++ {
		osc := math.Sin(t.phase)
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		ramp := float32(1)
		if t.rampPos < t.rampSamples {
			x := float32(t.rampPos) / float32(t.rampSamples)
			ramp = 1 - approx.FastExp(-4*x)
			t.rampPos++
		}
		sample := float32(1 + t.depth*osc) * ramp
		t.buf[i] = float32(dspcore.FlushDenormals(float64(sample)))
	}

	if t.engine == nil {
		return
	}
	t.active = append(t.active, t.drainPending()...)
	for _, gb := range t.groupBufs {
		for i := range gb {
			gb[i] = 0
		}
	}
	scratch, gains := t.scratchBufs(n)
	t.active = mixActiveVoices(t.active, nil, n, t.engine, t.buf, t.engine.releaseTask, scratch, gains, t.groupBufs)
}

// resetRamp restarts the fade-in. No engine code path calls it, so the
// fade-in runs once, over the first periods after Build.
func (t *tremulantTask) resetRamp() {
	t.rampPos = 0
}
