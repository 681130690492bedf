// Package sound implements the Sound System (§4.6): the interlock that
// synchronizes N independent audio-device callbacks into one period
// boundary, and the WAV-writing Recorder consumed by the engine.
package sound

import (
	"fmt"
	"sync"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// deviceSlot is one output device's rendezvous gate plus its adapter.
type deviceSlot struct {
	device organ.AudioDevice
	wait   bool
}

// System owns the set of output devices and the engine, enforcing the
// N-callback-per-period rendezvous described in §4.6. A single mutex and
// condition variable drive every device's gate; this is a deliberate
// simplification of the per-device mutex/condition pair the spec
// describes; correctness (every callback blocks until its own gate
// opens, the last arrival advances the engine) is identical, and the
// pack has no example of N independent condition variables coordinated
// this tightly that would justify the extra bookkeeping.
type System struct {
	mu   sync.Mutex
	cond *sync.Cond

	devices []*deviceSlot

	engine *organ.Engine

	waitCount int

	inFlight   int
	detaching  bool
	detachCond *sync.Cond

	logger organ.Logger
}

// NewSystem constructs a System with no devices attached yet.
func NewSystem(logger organ.Logger) *System {
	s := &System{logger: logger}
	s.cond = sync.NewCond(&s.mu)
	s.detachCond = sync.NewCond(&s.mu)
	return s
}

// MaxFrameSize is the largest samplesPerBuffer Open accepts, matching
// GOSoundDefs.h's MAX_FRAME_SIZE: above this, per-period latency would be
// unacceptable for a real-time organ (§12 supplemented feature).
const MaxFrameSize = 2048

// Open instantiates and initializes every device, validating that each
// device's driver-chosen buffer size matches samplesPerBuffer (§4.6
// "Open"). On any device's failure, already-opened devices are closed
// and the error is returned.
func (s *System) Open(devices []organ.AudioDevice, channels, sampleRate, samplesPerBuffer, latencyMS int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if samplesPerBuffer > MaxFrameSize {
		return fmt.Errorf("sound: buffer size %d exceeds max %d: %w", samplesPerBuffer, MaxFrameSize, organ.ErrBufferSizeMismatch)
	}

	s.devices = make([]*deviceSlot, len(devices))
	for i, d := range devices {
		if err := d.Init(channels, sampleRate, samplesPerBuffer, latencyMS, i); err != nil {
			s.closeOpened(i)
			return fmt.Errorf("sound: device %d init: %w", i, organ.ErrDeviceInitFailed)
		}
		if err := d.Open(); err != nil {
			s.closeOpened(i)
			return fmt.Errorf("sound: device %d open: %w", i, organ.ErrDeviceInitFailed)
		}
		s.devices[i] = &deviceSlot{device: d}
	}
	for i, d := range devices {
		if err := d.StartStream(); err != nil {
			s.closeOpened(len(devices))
			return fmt.Errorf("sound: device %d start: %w", i, organ.ErrBufferSizeMismatch)
		}
	}
	return nil
}

func (s *System) closeOpened(upTo int) {
	for i := 0; i < upTo && i < len(s.devices); i++ {
		if s.devices[i] != nil {
			s.devices[i].device.Close()
		}
	}
}

// AttachEngine stores the engine pointer; from then on, every device
// callback produces audio from it (§4.6 "Attach engine").
func (s *System) AttachEngine(e *organ.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// DetachEngine clears the engine pointer and blocks until every
// in-flight callback has exited, so the caller may safely destroy the
// engine afterward (§4.6 "Detach engine").
func (s *System) DetachEngine() {
	s.mu.Lock()
	s.engine = nil
	s.detaching = true
	for s.inFlight > 0 {
		s.detachCond.Wait()
	}
	s.detaching = false
	s.mu.Unlock()
}

// AudioCallback is invoked by device index k's real-time callback with
// its output buffer for the period. It implements the rendezvous
// pseudocode of §4.6: block on this device's own gate, request its
// slice, and if this is the last device to arrive this period, advance
// the engine and release every gate.
func (s *System) AudioCallback(k int, outBuffer []float32) {
	s.mu.Lock()
	s.inFlight++
	for k < len(s.devices) && s.devices[k].wait {
		s.cond.Wait()
	}
	eng := s.engine
	n := len(s.devices)
	if eng == nil {
		s.finishCallback()
		s.mu.Unlock()
		for i := range outBuffer {
			outBuffer[i] = 0
		}
		return
	}
	s.mu.Unlock()

	eng.GetAudioOutput(k, outBuffer)

	s.mu.Lock()
	if k < len(s.devices) {
		s.devices[k].wait = true
	}
	s.waitCount++
	if s.waitCount == n {
		eng.NextPeriod()
		eng.WakeupThreads()
		s.waitCount = 0
		for _, d := range s.devices {
			d.wait = false
		}
		s.cond.Broadcast()
	}
	s.finishCallback()
	s.mu.Unlock()
}

// finishCallback decrements inFlight and, if a detach is waiting for the
// last in-flight callback to drain, wakes it. Must be called with mu
// held.
func (s *System) finishCallback() {
	s.inFlight--
	if s.detaching && s.inFlight == 0 {
		s.detachCond.Broadcast()
	}
}

// Close signals all per-device gates, closes each device, in index
// order (§4.6 "Close", "Deadlock avoidance").
func (s *System) Close() {
	s.mu.Lock()
	devices := s.devices
	s.devices = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, d := range devices {
		if d != nil {
			d.device.Close()
		}
	}
}
