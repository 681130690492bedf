package organ

import (
	"math"
	"testing"
)

// testWindchest is a trivial organ.Windchest with a fixed volume.
type testWindchest struct {
	volume     float32
	tremulants []int
}

func (w testWindchest) Volume() float32     { return w.volume }
func (w testWindchest) TremulantIDs() []int { return w.tremulants }

// testModel is a minimal OrganModel: a fixed number of windchests and
// tremulantCount tremulants (none unless set).
type testModel struct {
	windchests     []Windchest
	tremulantCount int
}

func (m *testModel) WindchestCount() int     { return len(m.windchests) }
func (m *testModel) TremulantCount() int     { return m.tremulantCount }
func (m *testModel) GetWindchest(i int) Windchest { return m.windchests[i] }

func newTestEngine(t *testing.T, polyphonyLimit int) (*Engine, *fakeProvider) {
	t.Helper()
	cfg := Config{
		SampleRate:               44100,
		SamplesPerBuffer:         256,
		Concurrency:              0, // drive everything on the caller thread
		PolyphonyLimit:           polyphonyLimit,
		ManagePolyphony:          false,
		ReleaseConcurrency:       1,
		ScaleReleases:            false,
		Interpolation:            InterpolationLinear,
		WaveFormatBytesPerSample: 2,
		Devices: []AudioDeviceConfig{{
			Name:     "out",
			Channels: 2,
			MixDB:    [][]float64{{0, MuteVolumeDB}, {MuteVolumeDB, 0}},
		}},
	}
	model := &testModel{windchests: []Windchest{testWindchest{volume: 1}}}
	eng := NewEngine(cfg, model, nil)
	if err := eng.BuildAndStart(); err != nil {
		t.Fatalf("BuildAndStart: %v", err)
	}
	t.Cleanup(eng.StopAndDestroy)

	provider := &fakeProvider{
		gain:                    1,
		tuning:                  1,
		midiKey:                 60,
		attackSwitchCrossfadeMS: 5,
		attack:                  &constSection{length: 1_000_000},
	}
	return eng, provider
}

// step drives one period exactly the way sound.System.AudioCallback does
// for a single-device setup: finish the device's output, then advance.
func step(eng *Engine) []float32 {
	buf := make([]float32, 2*eng.config.SamplesPerBuffer)
	eng.GetAudioOutput(0, buf)
	eng.NextPeriod()
	eng.WakeupThreads()
	return buf
}

func TestEngineStartPipeProducesAudio(t *testing.T) {
	eng, provider := newTestEngine(t, 8)

	handle := eng.StartPipe(provider, 1, 0, 100, 0, 0, false)
	if handle == nil {
		t.Fatalf("StartPipe returned nil handle")
	}

	buf := step(eng)
	var energy float64
	for _, s := range buf {
		energy += math.Abs(float64(s))
	}
	if energy == 0 {
		t.Fatalf("first period after StartPipe produced silence")
	}
}

func TestEngineStartPipeNoAttackSectionReturnsNilHandle(t *testing.T) {
	eng, provider := newTestEngine(t, 8)
	provider.attack = nil

	if handle := eng.StartPipe(provider, 1, 0, 100, 0, 0, false); handle != nil {
		t.Fatalf("StartPipe with no attack section returned non-nil handle")
	}
}

func TestEngineStartPipeExhaustedPoolReturnsNilHandle(t *testing.T) {
	eng, _ := newTestEngine(t, 1)

	p1 := &fakeProvider{gain: 1, tuning: 1, attack: &constSection{length: 1000}}
	p2 := &fakeProvider{gain: 1, tuning: 1, attack: &constSection{length: 1000}}

	if h := eng.StartPipe(p1, 1, 0, 100, 0, 0, false); h == nil {
		t.Fatalf("first StartPipe should succeed on an empty 1-slot pool")
	}
	if h := eng.StartPipe(p2, 1, 0, 100, 0, 0, false); h != nil {
		t.Fatalf("second StartPipe on an exhausted 1-slot pool should fail, got handle")
	}
}

func TestEngineStopSampleReleasesVoiceBackToPool(t *testing.T) {
	eng, provider := newTestEngine(t, 4)

	handle := eng.StartPipe(provider, 1, 0, 100, 0, 0, false)
	if handle == nil {
		t.Fatalf("StartPipe returned nil handle")
	}
	step(eng)
	if eng.pool.UsedCount() != 1 {
		t.Fatalf("UsedCount after StartPipe+1 period = %d, want 1", eng.pool.UsedCount())
	}

	eng.StopSample(provider, handle, 0)

	// The originating provider has no release section, so resolveVoice
	// takes the SectionMissing path: the original voice just fades out
	// in place over its own crossfade window rather than spawning a
	// successor. Run enough periods for that fade (a handful of
	// milliseconds) to complete and the slot to return to the pool.
	returned := false
	for i := 0; i < 10; i++ {
		step(eng)
		if eng.pool.UsedCount() == 0 {
			returned = true
			break
		}
	}
	if !returned {
		t.Fatalf("voice never returned to the pool after StopSample")
	}
}

func TestEngineStopSampleOnStaleHandleIsNoOp(t *testing.T) {
	eng, provider := newTestEngine(t, 4)
	handle := eng.StartPipe(provider, 1, 0, 100, 0, 0, false)
	if handle == nil {
		t.Fatalf("StartPipe returned nil handle")
	}

	other := &fakeProvider{gain: 1, tuning: 1, attack: &constSection{length: 1000}}
	got := eng.StopSample(other, handle, 0)
	if got != 0 {
		t.Fatalf("StopSample with mismatched provider = %d, want 0 (no-op)", got)
	}
}

func TestEngineMeterInfoTracksPeakPolyphony(t *testing.T) {
	eng, provider := newTestEngine(t, 4)
	eng.StartPipe(provider, 1, 0, 100, 0, 0, false)
	step(eng)

	info := eng.MeterInfo()
	if info.Polyphony != 1 {
		t.Fatalf("MeterInfo().Polyphony = %d, want 1", info.Polyphony)
	}
	if info.PolyphonyLimit != 4 {
		t.Fatalf("MeterInfo().PolyphonyLimit = %d, want 4", info.PolyphonyLimit)
	}

	// Polyphony is swapped-and-reset on read (§12 supplemented feature).
	info2 := eng.MeterInfo()
	if info2.Polyphony != 0 {
		t.Fatalf("second MeterInfo().Polyphony = %d, want 0 after swap-reset", info2.Polyphony)
	}
}
