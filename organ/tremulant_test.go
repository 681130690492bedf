package organ

import (
	"math"
	"testing"
)

// TestEngineStartTremulantSampleProducesAudio exercises a pipe speaking
// directly off a tremulant (Engine.StartTremulantSample), bypassing
// windchest routing entirely: its audio must still reach the audio
// group/output mix (§12 supplemented feature's "connect windchests to
// their tremulants" complement — a tremulant's own direct voices are not
// windchest voices at all).
func TestEngineStartTremulantSampleProducesAudio(t *testing.T) {
	cfg := Config{
		SampleRate:               44100,
		SamplesPerBuffer:         256,
		Concurrency:              0,
		PolyphonyLimit:           8,
		ReleaseConcurrency:       1,
		WaveFormatBytesPerSample: 2,
		Devices: []AudioDeviceConfig{{
			Name:     "out",
			Channels: 2,
			MixDB:    [][]float64{{0, MuteVolumeDB}, {MuteVolumeDB, 0}},
		}},
	}
	// One tremulant, zero windchests: the only way audio can reach the
	// output is via the tremulant's own direct voice.
	eng := NewEngine(cfg, &tremOnlyModel{}, nil)
	if err := eng.BuildAndStart(); err != nil {
		t.Fatalf("BuildAndStart: %v", err)
	}
	defer eng.StopAndDestroy()

	provider := &fakeProvider{
		gain:    1,
		tuning:  1,
		attack:  &constSection{length: 1_000_000},
	}
	handle := eng.StartTremulantSample(provider, 0, 0, 100, 0, 0)
	if handle == nil {
		t.Fatalf("StartTremulantSample returned nil handle")
	}

	buf := make([]float32, 2*cfg.SamplesPerBuffer)
	eng.GetAudioOutput(0, buf)
	eng.NextPeriod()

	var energy float64
	for _, s := range buf {
		energy += math.Abs(float64(s))
	}
	if energy == 0 {
		t.Fatalf("tremulant-direct voice produced no audio in the output mix")
	}
}

// tremOnlyModel is an OrganModel with one tremulant and no windchests.
type tremOnlyModel struct{}

func (m *tremOnlyModel) WindchestCount() int          { return 0 }
func (m *tremOnlyModel) TremulantCount() int          { return 1 }
func (m *tremOnlyModel) GetWindchest(i int) Windchest { panic("no windchests") }

func TestWindchestTremulantModulationWired(t *testing.T) {
	cfg := Config{
		SampleRate:               44100,
		SamplesPerBuffer:         256,
		Concurrency:              0,
		PolyphonyLimit:           8,
		ReleaseConcurrency:       1,
		WaveFormatBytesPerSample: 2,
		Devices: []AudioDeviceConfig{{
			Name:     "out",
			Channels: 2,
			MixDB:    [][]float64{{0, MuteVolumeDB}, {MuteVolumeDB, 0}},
		}},
	}
	model := &testModel{windchests: []Windchest{testWindchest{volume: 1, tremulants: []int{0}}}, tremulantCount: 1}
	eng := NewEngine(cfg, model, nil)
	if err := eng.BuildAndStart(); err != nil {
		t.Fatalf("BuildAndStart: %v", err)
	}
	defer eng.StopAndDestroy()

	if len(eng.windchests[0].tremulants) != 1 {
		t.Fatalf("windchest has %d wired tremulants, want 1", len(eng.windchests[0].tremulants))
	}
	if eng.windchests[0].tremulants[0] != eng.tremulants[0] {
		t.Fatalf("windchest's wired tremulant is not the engine's tremulant task")
	}
}
