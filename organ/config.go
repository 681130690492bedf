package organ

import "math"

// InterpolationType selects the per-voice resampling method.
type InterpolationType int

const (
	InterpolationLinear InterpolationType = iota
	InterpolationPolyphase
)

// MuteVolumeDB is the sentinel dB value (below the valid window) that
// marks a device-channel/group routing as silent rather than attenuated.
// Mirrors GOAudioDeviceConfig::MUTE_VOLUME.
const MuteVolumeDB = -121.0

// minVolumeDB and maxVolumeDB bound the valid scale-factor window; any
// value outside [minVolumeDB, maxVolumeDB) is muted, not clamped.
const (
	minVolumeDB = -120.0
	maxVolumeDB = 40.0
)

// DBToLinear converts a device-channel mix coefficient expressed in dB to
// a linear scale factor, following GrandOrgue's GOAudioDeviceConfig: any
// value outside [minVolumeDB, maxVolumeDB) is muted (returns 0, muted =
// true) rather than clamped, matching GOSoundOrganEngine.cpp's
// `if (factor >= -120 && factor < 40) ... else factor = 0;`. Values
// inside the window convert with 10^(dB/20).
func DBToLinear(db float64) (linear float64, muted bool) {
	if db < minVolumeDB || db >= maxVolumeDB {
		return 0, true
	}
	return math.Pow(10, db/20), false
}

// AudioGroupConfig names one mix bus between windchests and device outputs.
type AudioGroupConfig struct {
	Name string
}

// ReverbConfig carries the per-output Freeverb parameters; zero value
// disables reverb (Enabled=false).
type ReverbConfig struct {
	Enabled  bool
	Wet      float64
	Dry      float64
	RoomSize float64
	Damp     float64
	Gain     float64
}

// Config is the host-supplied configuration struct (§6 "Configuration
// input"), populated directly or via preset.LoadJSON.
type Config struct {
	SampleRate            int
	SamplesPerBuffer      int
	Concurrency           int
	AudioGroups           []AudioGroupConfig
	Devices               []AudioDeviceConfig
	PolyphonyLimit        int
	ManagePolyphony       bool
	ReleaseConcurrency    int
	ScaleReleases         bool
	RandomizeSpeaking     bool
	Interpolation         InterpolationType
	Reverb                ReverbConfig
	RecordDownmix         bool
	WaveFormatBytesPerSample int
}

// SoftLimit returns ⌊3·C/4⌋, the polyphony count at which release-voice
// decay is accelerated (§4.4).
func (c *Config) SoftLimit() int {
	return (c.PolyphonyLimit * 3) / 4
}

// NewDefaultConfig returns a Config with the engine's baseline knobs set;
// callers override individual fields (or apply a preset.File on top).
func NewDefaultConfig() *Config {
	return &Config{
		SampleRate:               44100,
		SamplesPerBuffer:         256,
		Concurrency:              1,
		PolyphonyLimit:           2048,
		ManagePolyphony:          true,
		ReleaseConcurrency:       4,
		ScaleReleases:            true,
		RandomizeSpeaking:        false,
		Interpolation:            InterpolationLinear,
		RecordDownmix:            false,
		WaveFormatBytesPerSample: 2,
	}
}
