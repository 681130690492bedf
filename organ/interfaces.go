package organ

// Logger is the minimal injectable logging seam held by Engine and
// sound.System. It is satisfied by *log.Logger. No engine or sound-system
// code path calls it; recoverable per-period conditions (buffer-size
// mismatch, sampler starvation, section-missing) are not logged.
type Logger interface {
	Printf(format string, args ...any)
}

// SoundProvider is the per-pipe audio source, consumed read-only from
// engine threads.
type SoundProvider interface {
	Gain() float32
	Tuning() float64
	MIDIKeyNumber() int
	VelocityVolume(velocity int) float32
	GetAttack(velocity int, eventIntervalMS int) Section
	GetRelease(waveTremulantState int, eventIntervalMS int) Section
	AttackSwitchCrossfadeLengthMS() float64
	ReleaseTailMS() float64
	ToneBalance() ToneBalanceFilter
}

// Section is one attack or release audio region of a SoundProvider.
// Returning nil from GetAttack/GetRelease means "no matching section";
// the corresponding voice is not spawned (SectionMissing, §7).
type Section interface {
	Channels() int
	NormGain() float32
	ReleaseCrossfadeLengthMS() float64
	Length() int64
	SampleRate() int
	SupportsStreamAlignment() bool
	WaveTremulantStateFor(position int64) int
	// ReadAt pulls n frames starting at fractional position pos (in source
	// samples), writing interleaved stereo into dst. It returns the number
	// of whole frames produced; n < requested signals exhaustion.
	ReadAt(dst []float32, pos float64, n int) int
}

// ToneBalanceFilter is the per-pipe tone-correction filter description;
// nil means tone balancing is disabled for this provider.
type ToneBalanceFilter interface {
	Coefficients() (b0, b1, b2, a1, a2 float32)
}

// Windchest is the enclosure/volume model behind one windchest, read-only
// from engine threads. TremulantIDs names the tremulants (by index into
// the organ model's tremulant list) that modulate this windchest's
// voices, wired in at Build time (§4.4 "connect windchests to their
// tremulants").
type Windchest interface {
	Volume() float32
	TremulantIDs() []int
}

// OrganModel is the read-only structural description of the instrument
// consumed by the engine at Build time.
type OrganModel interface {
	WindchestCount() int
	TremulantCount() int
	GetWindchest(i int) Windchest
}

// AudioDeviceConfig describes one physical output device's channel count,
// desired latency and channel-to-group mix matrix, as carried in Config.
// MixDB[channel][group*2+0/1] is the dB factor routing audio-group
// group's left/right channel into this device channel; <= MuteVolumeDB
// (or a short row) means "no routing".
type AudioDeviceConfig struct {
	Name      string
	Channels  int
	LatencyMS int
	MixDB     [][]float64
}

// AudioDevice is the platform audio-backend adapter, out of scope for this
// module and consumed only through this interface (§6).
type AudioDevice interface {
	Init(channels, sampleRate, samplesPerBuffer, desiredLatencyMS, index int) error
	Open() error
	StartStream() error
	Close() error
	// ActualLatencyMS reports the latency the driver actually negotiated.
	ActualLatencyMS() float64
}

// Recorder is the consumed downstream sink fed from Output/Downmix tasks
// (§6). It is itself scheduled as a task downstream of those tasks (§4.3
// "Recorder"): WriteFrame is called once per period, with the finished
// recording-source task's buffer, from inside the task graph rather than
// polled by the host after the fact — this keeps it using the same
// current_time snapshot as every other task in the period.
type Recorder interface {
	SetOutputs(tasks []Task, samplesPerBuffer int)
	SetSampleRate(sr int)
	SetBytesPerSample(n int)
	WriteFrame(buf []float32)
}
