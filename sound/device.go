package sound

import (
	"sync"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// MemoryDevice is a deterministic in-memory AudioDevice backend: it has
// no real driver underneath, and its "callback" is driven explicitly by
// Pump rather than a background thread. It is the adapter used by tests
// and by cmd/organ-render, standing in for a real portaudio/oto binding
// (out of scope, §1/§6 "Audio-device adapter (consumed)").
type MemoryDevice struct {
	mu sync.Mutex

	name             string
	channels         int
	sampleRate       int
	samplesPerBuffer int
	index            int
	desiredLatencyMS int
	opened           bool
	streaming        bool

	// Captured accumulates every period this device has pumped, in
	// order; tests read it directly.
	Captured [][]float32
}

// NewMemoryDevice constructs an unopened device with the given name.
func NewMemoryDevice(name string) *MemoryDevice {
	return &MemoryDevice{name: name}
}

func (d *MemoryDevice) Init(channels, sampleRate, samplesPerBuffer, desiredLatencyMS, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = channels
	d.sampleRate = sampleRate
	d.samplesPerBuffer = samplesPerBuffer
	d.desiredLatencyMS = desiredLatencyMS
	d.index = index
	return nil
}

func (d *MemoryDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *MemoryDevice) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return organ.ErrDeviceInitFailed
	}
	d.streaming = true
	return nil
}

func (d *MemoryDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.streaming = false
	return nil
}

// ActualLatencyMS reports the requested latency verbatim: this backend
// has no real driver negotiation to diverge from it.
func (d *MemoryDevice) ActualLatencyMS() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.desiredLatencyMS)
}

// Pump drives one period's worth of this device's real-time callback
// through sys, appending the resulting buffer to Captured and returning
// it.
func (d *MemoryDevice) Pump(sys *System) []float32 {
	d.mu.Lock()
	buf := make([]float32, d.channels*d.samplesPerBuffer)
	idx := d.index
	d.mu.Unlock()

	sys.AudioCallback(idx, buf)

	d.mu.Lock()
	d.Captured = append(d.Captured, buf)
	d.mu.Unlock()
	return buf
}
