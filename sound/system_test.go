package sound

import (
	"errors"
	"testing"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// noWindchestModel is a trivial organ.OrganModel with no windchests or
// tremulants, enough to Build an Engine without starting any voices.
type noWindchestModel struct{}

func (noWindchestModel) WindchestCount() int             { return 0 }
func (noWindchestModel) TremulantCount() int             { return 0 }
func (noWindchestModel) GetWindchest(i int) organ.Windchest { panic("no windchests") }

func newTestEngine(t *testing.T, nDevices int) *organ.Engine {
	t.Helper()
	devices := make([]organ.AudioDeviceConfig, nDevices)
	for i := range devices {
		devices[i] = organ.AudioDeviceConfig{
			Name:     "dev",
			Channels: 2,
			MixDB:    [][]float64{{0, organ.MuteVolumeDB}, {organ.MuteVolumeDB, 0}},
		}
	}
	cfg := organ.Config{
		SampleRate:               44100,
		SamplesPerBuffer:         256,
		Concurrency:              0,
		PolyphonyLimit:           4,
		ReleaseConcurrency:       1,
		WaveFormatBytesPerSample: 2,
		Devices:                  devices,
	}
	eng := organ.NewEngine(cfg, noWindchestModel{}, nil)
	if err := eng.BuildAndStart(); err != nil {
		t.Fatalf("BuildAndStart: %v", err)
	}
	t.Cleanup(eng.StopAndDestroy)
	return eng
}

func TestSystemOpenRejectsOversizedBuffer(t *testing.T) {
	sys := NewSystem(nil)
	dev := NewMemoryDevice("a")
	err := sys.Open([]organ.AudioDevice{dev}, 2, 44100, MaxFrameSize+1, 40)
	if err == nil {
		t.Fatalf("Open with an oversized buffer should fail")
	}
	if !errors.Is(err, organ.ErrBufferSizeMismatch) {
		t.Fatalf("Open error = %v, want wrapping organ.ErrBufferSizeMismatch", err)
	}
}

func TestSystemOpenAtMaxFrameSizeSucceeds(t *testing.T) {
	sys := NewSystem(nil)
	dev := NewMemoryDevice("a")
	if err := sys.Open([]organ.AudioDevice{dev}, 2, 44100, MaxFrameSize, 40); err != nil {
		t.Fatalf("Open at MaxFrameSize failed: %v", err)
	}
	sys.Close()
}

// failingDevice fails Init, to exercise Open's already-opened-devices
// cleanup path (§4.6 "Open").
type failingDevice struct{ closed bool }

func (d *failingDevice) Init(channels, sampleRate, samplesPerBuffer, latencyMS, index int) error {
	return errors.New("boom")
}
func (d *failingDevice) Open() error         { return nil }
func (d *failingDevice) StartStream() error  { return nil }
func (d *failingDevice) Close() error        { d.closed = true; return nil }
func (d *failingDevice) ActualLatencyMS() float64 { return 0 }

func TestSystemOpenClosesAlreadyOpenedDevicesOnFailure(t *testing.T) {
	sys := NewSystem(nil)
	good := NewMemoryDevice("good")
	bad := &failingDevice{}

	err := sys.Open([]organ.AudioDevice{good, bad}, 2, 44100, 256, 40)
	if err == nil {
		t.Fatalf("Open should fail when a device's Init fails")
	}
	if !errors.Is(err, organ.ErrDeviceInitFailed) {
		t.Fatalf("Open error = %v, want wrapping organ.ErrDeviceInitFailed", err)
	}
	if good.opened {
		t.Fatalf("device opened before the failing one was not closed")
	}
}

func TestSystemRendezvousAdvancesOnLastArrival(t *testing.T) {
	eng := newTestEngine(t, 2)

	sys := NewSystem(nil)
	devA := NewMemoryDevice("a")
	devB := NewMemoryDevice("b")
	if err := sys.Open([]organ.AudioDevice{devA, devB}, 2, 44100, 256, 40); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sys.AttachEngine(eng)
	defer sys.Close()
	defer sys.DetachEngine()

	devA.Pump(sys)
	devB.Pump(sys)

	if len(devA.Captured) != 1 || len(devB.Captured) != 1 {
		t.Fatalf("expected one captured period per device, got %d/%d", len(devA.Captured), len(devB.Captured))
	}

	// A second full period should complete cleanly: the rendezvous
	// state must have been reset for every device after the first
	// period's last arrival.
	devA.Pump(sys)
	devB.Pump(sys)
	if len(devA.Captured) != 2 || len(devB.Captured) != 2 {
		t.Fatalf("expected two captured periods per device, got %d/%d", len(devA.Captured), len(devB.Captured))
	}
}

func TestSystemAudioCallbackWithoutEngineProducesSilence(t *testing.T) {
	sys := NewSystem(nil)
	dev := NewMemoryDevice("a")
	if err := sys.Open([]organ.AudioDevice{dev}, 2, 44100, 256, 40); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sys.Close()

	buf := dev.Pump(sys)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("buf[%d] = %v, want 0 with no engine attached", i, s)
		}
	}
}
