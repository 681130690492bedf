package sound

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecorderWritesPlayableWAVFile(t *testing.T) {
	r := NewRecorder()
	r.SetSampleRate(44100)
	r.SetBytesPerSample(2)

	path := filepath.Join(t.TempDir(), "out.wav")
	if err := r.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}

	buf := make([]float32, 2*256)
	for i := range buf {
		buf[i] = 0.25
	}
	r.WriteFrame(buf)
	r.WriteFrame(buf)

	if err := r.LastError(); err != nil {
		t.Fatalf("LastError after writes: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("recorded file is empty")
	}
}

func TestRecorderWriteFrameBeforeOpenIsNoOp(t *testing.T) {
	r := NewRecorder()
	r.SetSampleRate(44100)

	buf := make([]float32, 4)
	r.WriteFrame(buf)
	if err := r.LastError(); err != nil {
		t.Fatalf("LastError = %v, want nil when never opened", err)
	}
}

func TestRecorderCloseWithoutOpenIsNoOp(t *testing.T) {
	r := NewRecorder()
	if err := r.Close(); err != nil {
		t.Fatalf("Close on an unopened recorder: %v", err)
	}
}

func TestRecorderSetOutputsWithNoTasksLeavesDefaultChannels(t *testing.T) {
	r := NewRecorder()
	r.SetOutputs(nil, 256)
	r.SetSampleRate(44100)

	path := filepath.Join(t.TempDir(), "out.wav")
	if err := r.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	buf := make([]float32, 2*256)
	r.WriteFrame(buf)
	if err := r.LastError(); err != nil {
		t.Fatalf("LastError: %v", err)
	}
}
