package organ

import "sync"

// MeterInfo is the snapshot returned by Engine.MeterInfo: peak polyphony
// usage plus, per output device, the peak absolute sample value seen in
// its channels, both since the previous MeterInfo call. Layout follows
// GOSoundOrganEngine::GetMeterInfo: polyphony first, then one peak slice
// per output device in build order.
type MeterInfo struct {
	Polyphony      int
	PolyphonyLimit int
	ChannelPeaks   [][]float32
}

// peakMeter accumulates per-device channel peaks; each output task writes
// its own device's row under mu during Run, and Engine.MeterInfo reads a
// snapshot, which resets the peaks.
type peakMeter struct {
	mu    sync.Mutex
	peaks [][]float32
}

func newPeakMeter(deviceChannels []int) *peakMeter {
	peaks := make([][]float32, len(deviceChannels))
	for i, ch := range deviceChannels {
		peaks[i] = make([]float32, ch)
	}
	return &peakMeter{peaks: peaks}
}

// updateChannel folds sample's absolute value into the running peak for
// device/channel, wrapping the channel index as the output task's mix
// loop does for an interleaved buffer wider than the meter row.
func (m *peakMeter) updateChannel(device, channel int, sample float32) {
	abs := sample
	if abs < 0 {
		abs = -abs
	}
	m.mu.Lock()
	row := m.peaks[device]
	ch := channel % len(row)
	if abs > row[ch] {
		row[ch] = abs
	}
	m.mu.Unlock()
}

// snapshot copies the current peaks and resets them to zero.
func (m *peakMeter) snapshot() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float32, len(m.peaks))
	for i, row := range m.peaks {
		out[i] = append([]float32(nil), row...)
		for j := range row {
			row[j] = 0
		}
	}
	return out
}
