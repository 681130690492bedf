package sound

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/oleg68/GrandOrgue-official/organ"
)

// Recorder is a WAV-writing implementation of organ.Recorder. It is
// wired to the downmix task when one is configured, or the first output
// device otherwise (organ.Engine.Build's choice, §12 supplemented
// feature) — one WAV stream per Recorder, matching the teacher's
// cmd/piano-render single-file render loop.
type Recorder struct {
	mu sync.Mutex

	sampleRate     int
	bytesPerSample int
	channels       int

	file    io.WriteCloser
	encoder *wav.Encoder
	lastErr error
}

// NewRecorder constructs an unopened Recorder.
func NewRecorder() *Recorder {
	return &Recorder{bytesPerSample: 2}
}

func (r *Recorder) SetOutputs(tasks []organ.Task, samplesPerBuffer int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(tasks) > 0 && samplesPerBuffer > 0 {
		r.channels = len(tasks[0].Buffer()) / samplesPerBuffer
	}
}

func (r *Recorder) SetSampleRate(sr int) {
	r.mu.Lock()
	r.sampleRate = sr
	r.mu.Unlock()
}

func (r *Recorder) SetBytesPerSample(n int) {
	r.mu.Lock()
	r.bytesPerSample = n
	r.mu.Unlock()
}

// Open creates path and starts a WAV stream matching the sample rate,
// channel count and bit depth configured via Set*.
func (r *Recorder) Open(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bitDepth := r.bytesPerSample * 8
	if bitDepth == 0 {
		bitDepth = 16
	}
	channels := r.channels
	if channels == 0 {
		channels = 2
	}
	r.file = f
	r.encoder = wav.NewEncoder(f, r.sampleRate, bitDepth, channels, 1)
	return nil
}

// WriteFrame is organ.Recorder's per-period sink, called by the engine's
// internal recorderTask once its source task (Output or Downmix) has
// finished computing this period's buffer (§4.3 "Recorder"). It is
// called from an engine/worker thread, not the host, so it must not block
// on anything the host could be holding — only the Recorder's own mutex.
func (r *Recorder) WriteFrame(buf []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return
	}
	samples := make([]float32, len(buf))
	copy(samples, buf)

	b := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  r.sampleRate,
			NumChannels: r.channels,
		},
		Data:           samples,
		SourceBitDepth: r.bytesPerSample * 8,
	}
	if err := r.encoder.Write(b); err != nil {
		r.lastErr = fmt.Errorf("sound: recorder write: %w", err)
	}
}

// LastError returns the most recent write error, if any, since encoder
// errors inside WriteFrame have no caller to propagate to synchronously.
func (r *Recorder) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Close finalizes the WAV header and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder != nil {
		if err := r.encoder.Close(); err != nil {
			return err
		}
		r.encoder = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
