package organ

// outputTask is the per-device Output task (§4.3): fills its buffer with
// silence, mixes in every audio-group (and the special detached-release
// windchest, already folded into each group by the audio-group task)
// through a per-channel scale-factor row, applies reverb, and clamps.
type outputTask struct {
	baseTask

	channels    int
	groups      []*audioGroupTask
	scaleFactor [][]float64 // [channel][group*2+0/1], linear, 0 = muted
	reverb      *reverb
	engine      *Engine
	device      int

	reverbScratch []float32 // preallocated stereo scratch for applyReverbInterleaved
}

func newOutputTask(cfg AudioDeviceConfig, groups []*audioGroupTask, sampleRate, frames int) *outputTask {
	t := &outputTask{
		baseTask: newBaseTask(GroupOutput, frames, false, cfg.Channels, frames),
		channels: cfg.Channels,
		groups:   groups,
	}
	t.scaleFactor = make([][]float64, cfg.Channels)
	for ch := 0; ch < cfg.Channels; ch++ {
		row := make([]float64, len(groups)*2)
		var dbRow []float64
		if ch < len(cfg.MixDB) {
			dbRow = cfg.MixDB[ch]
		}
		for k := range row {
			var db float64
			if k < len(dbRow) {
				db = dbRow[k]
			} else {
				db = MuteVolumeDB
			}
			lin, muted := DBToLinear(db)
			if muted {
				row[k] = 0
			} else {
				row[k] = lin
			}
		}
		t.scaleFactor[ch] = row
	}
	return t
}

// attachReverb configures the per-output reverb once at Build.
func (t *outputTask) attachReverb(cfg ReverbConfig, sampleRate int) {
	t.reverb = newReverb(cfg, sampleRate)
}

func (t *outputTask) setDeviceIndex(i int) { t.device = i }

func (t *outputTask) Run(th *workerThread) {
	t.runOnce(func() { t.compute(th) })
}

func (t *outputTask) Finish(th *workerThread) {
	t.finishOnce(func() { t.compute(th) })
}

func (t *outputTask) compute(th *workerThread) {
	frames := len(t.buf) / t.channels
	t.Clear()

	for _, g := range t.groups {
		g.Finish(th)
	}

	for ch := 0; ch < t.channels; ch++ {
		row := t.scaleFactor[ch]
		for gi, g := range t.groups {
			factorL := row[2*gi]
			factorR := row[2*gi+1]
			if factorL == 0 && factorR == 0 {
				continue
			}
			buf := g.Buffer()
			for f := 0; f < frames; f++ {
				if th != nil && th.ShouldStop() {
					return
				}
				srcL := buf[2*f]
				srcR := buf[2*f+1]
				t.buf[f*t.channels+ch] += float32(float64(srcL)*factorL + float64(srcR)*factorR)
			}
		}
	}

	if t.reverb != nil {
		t.applyReverbInterleaved(frames)
	}

	gain := float32(1)
	if t.engine != nil {
		gain = t.engine.masterGain()
	}
	for f := 0; f < frames; f++ {
		for ch := 0; ch < t.channels; ch++ {
			idx := f*t.channels + ch
			s := t.buf[idx] * gain
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			t.buf[idx] = s
			if t.engine != nil {
				t.engine.meter.updateChannel(t.device, ch, s)
			}
		}
	}
}

// applyReverbInterleaved runs the stereo reverb across channels 0/1 of a
// possibly-wider device buffer; devices with more than two channels only
// have their first pair reverberated, matching a stereo send model.
func (t *outputTask) applyReverbInterleaved(frames int) {
	if t.channels < 2 {
		return
	}
	if len(t.reverbScratch) < frames*2 {
		t.reverbScratch = make([]float32, frames*2)
	}
	stereo := t.reverbScratch[:frames*2]
	for f := 0; f < frames; f++ {
		stereo[2*f] = t.buf[f*t.channels]
		stereo[2*f+1] = t.buf[f*t.channels+1]
	}
	t.reverb.Process(stereo, frames)
	for f := 0; f < frames; f++ {
		t.buf[f*t.channels] = stereo[2*f]
		t.buf[f*t.channels+1] = stereo[2*f+1]
	}
}
