package organ

import "testing"

func TestAttackDurationMSBounds(t *testing.T) {
	cases := []struct {
		key  int
		want float64
	}{
		{96, 50},
		{127, 50},
		{133, 50},
		{24, 500},
		{-1, 500},
		// 0 ("no key assigned") and >133 default the key to 60, which then
		// interpolates like any other in-range key: 500 + (24-60)*6.25.
		{0, 275},
		{134, 275},
		{200, 275},
	}
	for _, c := range cases {
		if got := attackDurationMS(c.key); got != c.want {
			t.Errorf("attackDurationMS(%d) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestAttackDurationMSInterpolatesBetweenBounds(t *testing.T) {
	// Midpoint of the 24..96 key range should land midway between the
	// 500ms and 50ms bounds.
	mid := 24 + (96-24)/2
	got := attackDurationMS(mid)
	if got <= 50 || got >= 500 {
		t.Fatalf("attackDurationMS(%d) = %v, want strictly between 50 and 500", mid, got)
	}
}

func TestReleaseGainScaleBounds(t *testing.T) {
	if got := releaseGainScale(0, 100); got != 0.2 {
		t.Fatalf("releaseGainScale(0, 100) = %v, want 0.2", got)
	}
	if got := releaseGainScale(100, 100); got != 1.0 {
		t.Fatalf("releaseGainScale(attackDuration, attackDuration) = %v, want 1.0", got)
	}
	if got := releaseGainScale(1000, 100); got != 1.0 {
		t.Fatalf("releaseGainScale past attackDuration should clamp to 1.0, got %v", got)
	}
	if got := releaseGainScale(-5, 100); got != 0.2 {
		t.Fatalf("releaseGainScale(negative t) should clamp to 0.2, got %v", got)
	}
}

func TestReleaseGainScaleZeroAttackDuration(t *testing.T) {
	if got := releaseGainScale(10, 0); got != 1 {
		t.Fatalf("releaseGainScale with zero attackDuration = %v, want 1", got)
	}
}

func TestTimeToFullReverbMSClamps(t *testing.T) {
	if got := timeToFullReverbMS(0, 44100); got != 100 {
		t.Fatalf("timeToFullReverbMS(0, sr) = %v, want 100 (lower clamp)", got)
	}
	if got := timeToFullReverbMS(1_000_000, 44100); got != 350 {
		t.Fatalf("timeToFullReverbMS(huge length) = %v, want 350 (upper clamp)", got)
	}
}

func TestCrossfadeSamplesFallsBackToAttackSwitch(t *testing.T) {
	provider := &fakeProvider{attackSwitchCrossfadeMS: 15}
	section := &constSection{length: 100} // ReleaseCrossfadeLengthMS() == 0

	got := crossfadeSamples(provider, section, 44100)
	want := int(15 * 44100 / 1000)
	if got != want {
		t.Fatalf("crossfadeSamples() = %d, want %d", got, want)
	}
}

func TestCrossfadeSamplesNilSectionFallsBackToAttackSwitch(t *testing.T) {
	provider := &fakeProvider{attackSwitchCrossfadeMS: 20}
	got := crossfadeSamples(provider, nil, 44100)
	want := int(20 * 44100 / 1000)
	if got != want {
		t.Fatalf("crossfadeSamples(nil section) = %d, want %d", got, want)
	}
}

// fakeProvider is a minimal SoundProvider for unit-testing the lifecycle
// formulas in isolation from a real engine/pool.
type fakeProvider struct {
	gain                    float32
	tuning                  float64
	midiKey                 int
	attackSwitchCrossfadeMS float64
	releaseTailMS           float64
	attack, release         Section
}

func (p *fakeProvider) Gain() float32      { return orDefault(p.gain, 1) }
func (p *fakeProvider) Tuning() float64    { return orDefaultF(p.tuning, 1) }
func (p *fakeProvider) MIDIKeyNumber() int { return p.midiKey }
func (p *fakeProvider) VelocityVolume(v int) float32 {
	return float32(v) / 127
}
func (p *fakeProvider) GetAttack(velocity, eventIntervalMS int) Section  { return p.attack }
func (p *fakeProvider) GetRelease(waveState, eventIntervalMS int) Section { return p.release }
func (p *fakeProvider) AttackSwitchCrossfadeLengthMS() float64            { return p.attackSwitchCrossfadeMS }
func (p *fakeProvider) ReleaseTailMS() float64                            { return p.releaseTailMS }
func (p *fakeProvider) ToneBalance() ToneBalanceFilter                    { return nil }

func orDefault(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultF(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
