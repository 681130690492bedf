package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// File is the JSON schema for engine configuration presets.
type File struct {
	SampleRate         *int              `json:"sample_rate"`
	SamplesPerBuffer   *int              `json:"samples_per_buffer"`
	Concurrency        *int              `json:"concurrency"`
	AudioGroups        []AudioGroup      `json:"audio_groups"`
	Devices            []AudioDevice     `json:"devices"`
	PolyphonyLimit     *int              `json:"polyphony_limit"`
	ManagePolyphony    *bool             `json:"manage_polyphony"`
	ReleaseConcurrency *int              `json:"release_concurrency"`
	ScaleReleases      *bool             `json:"scale_releases"`
	RandomizeSpeaking  *bool             `json:"randomize_speaking"`
	Interpolation      *string           `json:"interpolation"`
	Reverb             *Reverb           `json:"reverb"`
	RecordDownmix      *bool             `json:"record_downmix"`
	BytesPerSample     *int              `json:"bytes_per_sample"`
}

// AudioGroup is one entry of File.AudioGroups.
type AudioGroup struct {
	Name string `json:"name"`
}

// AudioDevice is one entry of File.Devices.
type AudioDevice struct {
	Name      string      `json:"name"`
	Channels  int         `json:"channels"`
	LatencyMS int         `json:"latency_ms"`
	MixDB     [][]float64 `json:"mix_db"`
}

// Reverb mirrors organ.ReverbConfig.
type Reverb struct {
	Enabled  bool    `json:"enabled"`
	Wet      float64 `json:"wet"`
	Dry      float64 `json:"dry"`
	RoomSize float64 `json:"room_size"`
	Damp     float64 `json:"damp"`
	Gain     float64 `json:"gain"`
}

// LoadJSON loads a preset JSON file and applies it on top of
// organ.NewDefaultConfig.
func LoadJSON(path string) (*organ.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	cfg := organ.NewDefaultConfig()
	if err := ApplyFile(cfg, &f); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile applies a parsed preset file onto an existing config.
func ApplyFile(dst *organ.Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.SamplesPerBuffer != nil {
		if *f.SamplesPerBuffer <= 0 {
			return fmt.Errorf("samples_per_buffer must be > 0")
		}
		dst.SamplesPerBuffer = *f.SamplesPerBuffer
	}
	if f.Concurrency != nil {
		if *f.Concurrency < 0 {
			return fmt.Errorf("concurrency must be >= 0")
		}
		dst.Concurrency = *f.Concurrency
	}
	if f.PolyphonyLimit != nil {
		if *f.PolyphonyLimit <= 0 {
			return fmt.Errorf("polyphony_limit must be > 0")
		}
		dst.PolyphonyLimit = *f.PolyphonyLimit
	}
	if f.ManagePolyphony != nil {
		dst.ManagePolyphony = *f.ManagePolyphony
	}
	if f.ReleaseConcurrency != nil {
		if *f.ReleaseConcurrency <= 0 {
			return fmt.Errorf("release_concurrency must be > 0")
		}
		dst.ReleaseConcurrency = *f.ReleaseConcurrency
	}
	if f.ScaleReleases != nil {
		dst.ScaleReleases = *f.ScaleReleases
	}
	if f.RandomizeSpeaking != nil {
		dst.RandomizeSpeaking = *f.RandomizeSpeaking
	}
	if f.Interpolation != nil {
		switch strings.ToLower(strings.TrimSpace(*f.Interpolation)) {
		case "linear":
			dst.Interpolation = organ.InterpolationLinear
		case "polyphase":
			dst.Interpolation = organ.InterpolationPolyphase
		default:
			return fmt.Errorf("invalid interpolation %q (expected linear or polyphase)", *f.Interpolation)
		}
	}
	if f.RecordDownmix != nil {
		dst.RecordDownmix = *f.RecordDownmix
	}
	if f.BytesPerSample != nil {
		if *f.BytesPerSample != 2 && *f.BytesPerSample != 3 && *f.BytesPerSample != 4 {
			return fmt.Errorf("bytes_per_sample must be 2, 3 or 4")
		}
		dst.WaveFormatBytesPerSample = *f.BytesPerSample
	}
	if f.Reverb != nil {
		dst.Reverb = organ.ReverbConfig{
			Enabled:  f.Reverb.Enabled,
			Wet:      f.Reverb.Wet,
			Dry:      f.Reverb.Dry,
			RoomSize: f.Reverb.RoomSize,
			Damp:     f.Reverb.Damp,
			Gain:     f.Reverb.Gain,
		}
	}

	if f.AudioGroups != nil {
		groups := make([]organ.AudioGroupConfig, len(f.AudioGroups))
		for i, g := range f.AudioGroups {
			groups[i] = organ.AudioGroupConfig{Name: g.Name}
		}
		dst.AudioGroups = groups
	}

	if f.Devices != nil {
		devices := make([]organ.AudioDeviceConfig, len(f.Devices))
		for i, d := range f.Devices {
			if d.Channels <= 0 {
				return fmt.Errorf("devices[%d].channels must be > 0", i)
			}
			mix := make([][]float64, len(d.MixDB))
			copy(mix, d.MixDB)
			devices[i] = organ.AudioDeviceConfig{
				Name:      d.Name,
				Channels:  d.Channels,
				LatencyMS: d.LatencyMS,
				MixDB:     mix,
			}
		}
		dst.Devices = devices
	}

	return nil
}
