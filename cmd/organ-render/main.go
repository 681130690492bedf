package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/oleg68/GrandOrgue-official/organ"
	"github.com/oleg68/GrandOrgue-official/preset"
	"github.com/oleg68/GrandOrgue-official/sound"
)

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	duration := flag.Float64("duration", 3.0, "Duration in seconds")
	releaseAfter := flag.Float64("release-after", 2.0, "Send stop_sample after this many seconds")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	bufferSize := flag.Int("buffer-size", 256, "Samples per period")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional; overrides defaults)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	cfg := organ.NewDefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.SamplesPerBuffer = *bufferSize
	cfg.PolyphonyLimit = 64
	cfg.RecordDownmix = true
	cfg.Devices = []organ.AudioDeviceConfig{{
		Name:      "main",
		Channels:  2,
		LatencyMS: 40,
		MixDB:     [][]float64{{0, organ.MuteVolumeDB}, {organ.MuteVolumeDB, 0}},
	}}

	if *presetPath != "" {
		loaded, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	freq := 440 * math.Pow(2, float64(*note-69)/12)
	fmt.Printf("Rendering note %d (%.2f Hz), velocity %d, for %.2fs at %d Hz -> %s\n",
		*note, freq, *velocity, *duration, cfg.SampleRate, *output)

	provider := newSinePipe(cfg.SampleRate, freq, *note)
	model := &demoModel{windchests: []organ.Windchest{demoWindchest{volume: 1}}}

	rec := sound.NewRecorder()

	eng := organ.NewEngine(*cfg, model, nil)
	eng.SetRecorder(rec)
	if err := eng.BuildAndStart(); err != nil {
		fmt.Fprintf(os.Stderr, "error building engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.StopAndDestroy()

	if err := rec.Open(*output); err != nil {
		fmt.Fprintf(os.Stderr, "error opening output: %v\n", err)
		os.Exit(1)
	}
	defer rec.Close()

	sys := sound.NewSystem(nil)
	device := sound.NewMemoryDevice("main")
	if err := sys.Open([]organ.AudioDevice{device}, 2, cfg.SampleRate, cfg.SamplesPerBuffer, 40); err != nil {
		fmt.Fprintf(os.Stderr, "error opening sound system: %v\n", err)
		os.Exit(1)
	}
	sys.AttachEngine(eng)
	defer sys.Close()
	defer sys.DetachEngine()

	handle := eng.StartPipe(provider, 1, 0, *velocity, 0, 0, false)
	if handle == nil {
		fmt.Fprintln(os.Stderr, "error: start_pipe failed (pool exhausted or no attack section)")
		os.Exit(1)
	}

	totalPeriods := int(float64(*duration) * float64(cfg.SampleRate) / float64(cfg.SamplesPerBuffer))
	releaseAtPeriod := int(*releaseAfter * float64(cfg.SampleRate) / float64(cfg.SamplesPerBuffer))
	released := false

	for period := 0; period < totalPeriods; period++ {
		if !released && period >= releaseAtPeriod {
			eng.StopSample(provider, handle, 0)
			released = true
		}
		device.Pump(sys)
	}
	if err := rec.LastError(); err != nil {
		fmt.Fprintf(os.Stderr, "error writing period: %v\n", err)
		os.Exit(1)
	}

	// Let the release tail's pool return complete before tearing down.
	time.Sleep(time.Millisecond)

	fmt.Printf("Successfully wrote %s (%d periods, %d frames)\n", *output, totalPeriods, totalPeriods*cfg.SamplesPerBuffer)
}

// demoModel is the minimal organ.OrganModel for a single windchest, no
// tremulants, used by this render harness.
type demoModel struct {
	windchests []organ.Windchest
}

func (m *demoModel) WindchestCount() int             { return len(m.windchests) }
func (m *demoModel) TremulantCount() int             { return 0 }
func (m *demoModel) GetWindchest(i int) organ.Windchest { return m.windchests[i] }

type demoWindchest struct{ volume float32 }

func (w demoWindchest) Volume() float32      { return w.volume }
func (w demoWindchest) TremulantIDs() []int  { return nil }
