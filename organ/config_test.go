package organ

import "testing"

func TestDBToLinearWithinWindow(t *testing.T) {
	lin, muted := DBToLinear(0)
	if muted {
		t.Fatalf("0 dB reported muted")
	}
	if lin < 0.999 || lin > 1.001 {
		t.Fatalf("DBToLinear(0) = %v, want ~1", lin)
	}
}

func TestDBToLinearMutesBelowWindow(t *testing.T) {
	lin, muted := DBToLinear(-120.0001)
	if !muted || lin != 0 {
		t.Fatalf("DBToLinear(-120.0001) = (%v, %v), want (0, true)", lin, muted)
	}
}

func TestDBToLinearMutesAtOrAboveWindow(t *testing.T) {
	for _, db := range []float64{40, 50, 1e6} {
		lin, muted := DBToLinear(db)
		if !muted || lin != 0 {
			t.Fatalf("DBToLinear(%v) = (%v, %v), want (0, true)", db, lin, muted)
		}
	}
}

func TestDBToLinearMutesAtSentinel(t *testing.T) {
	lin, muted := DBToLinear(MuteVolumeDB)
	if !muted || lin != 0 {
		t.Fatalf("DBToLinear(MuteVolumeDB) = (%v, %v), want (0, true)", lin, muted)
	}
}

func TestDBToLinearLowerBoundaryIsInclusive(t *testing.T) {
	lin, muted := DBToLinear(-120)
	if muted {
		t.Fatalf("-120 dB (the lower boundary) reported muted, want included in the window")
	}
	if lin <= 0 {
		t.Fatalf("DBToLinear(-120) = %v, want a small positive gain", lin)
	}
}
