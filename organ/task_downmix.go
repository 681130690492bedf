package organ

// downmixTask is the optional stereo mix fed to the recorder in downmix
// mode: structurally an Output task with 2 channels and unity-map
// factors (group i contributes left to channel 0, right to channel 1).
type downmixTask struct {
	outputTask
}

func newDownmixTask(groups []*audioGroupTask, sampleRate, frames int) *downmixTask {
	cfg := AudioDeviceConfig{Channels: 2, MixDB: make([][]float64, 2)}
	for ch := range cfg.MixDB {
		cfg.MixDB[ch] = make([]float64, len(groups)*2)
	}
	t := &downmixTask{outputTask: *newOutputTask(cfg, groups, sampleRate, frames)}
	// Unity gain, not a dB conversion: set the scale factors directly so
	// group i's left/right land exactly on channel 0/1 with no rounding.
	for gi := range groups {
		t.scaleFactor[0][2*gi] = 1
		t.scaleFactor[1][2*gi+1] = 1
	}
	return t
}
