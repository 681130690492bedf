package sound

import "testing"

func TestMemoryDeviceStartStreamBeforeOpenFails(t *testing.T) {
	d := NewMemoryDevice("a")
	if err := d.Init(2, 44100, 256, 40, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := d.StartStream(); err == nil {
		t.Fatalf("StartStream before Open should fail")
	}
}

func TestMemoryDeviceActualLatencyMSReportsRequested(t *testing.T) {
	d := NewMemoryDevice("a")
	if err := d.Init(2, 44100, 256, 37, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := d.ActualLatencyMS(); got != 37 {
		t.Fatalf("ActualLatencyMS = %v, want 37", got)
	}
}

func TestMemoryDeviceCloseResetsOpenedAndStreaming(t *testing.T) {
	d := NewMemoryDevice("a")
	if err := d.Init(2, 44100, 256, 40, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := d.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.StartStream(); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.StartStream(); err == nil {
		t.Fatalf("StartStream after Close should fail again")
	}
}
