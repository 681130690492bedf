package organ

// voice is the runtime state of one sounding instance (the spec's
// "Sampler"). A voice is owned either by the pool's free list, by
// exactly one task's pending-adds buffer, or by exactly one task's
// active list — never more than one of those at a time.
type voice struct {
	slot int // index into the pool's backing array, stable for its lifetime

	provider     SoundProvider
	section      Section
	stream       *stream
	fader        Fader
	toneBalance  *toneBalance

	velocity      int
	delaySamples  int64
	startTime     int64
	stopTime      int64 // 0 = not scheduled
	newAttackTime int64 // 0 = no attack switch pending
	isRelease     bool

	taskID       int32 // >0 windchest, 0 detached release, <0 tremulant (-id-1)
	audioGroupID int

	windchestVolume float32 // snapshot carried forward for detached releases
	dropCounter     int

	// release-decay shaping scratch, set at start_pipe / stop_sample time
	attackStartTime int64

	// scheduledDecayTime/scheduledDecaySamples implement the deferred
	// half of release decay shaping (§4.4): a release voice built before
	// its section's time-to-full-reverb gets a second decay scheduled to
	// kick in once that horizon passes. 0 = none pending.
	scheduledDecayTime    int64
	scheduledDecaySamples int

	// pendingNext links this voice into a task's lock-free pending-adds
	// stack; valid only while the voice is queued there.
	pendingNext *voice
}

// reset clears a voice back to its zero value before it is handed out by
// the pool; it does not touch slot (stable identity of the array index).
func (v *voice) reset() {
	slot := v.slot
	*v = voice{slot: slot}
}

// matches is the handle-stability identity check: a handle survives pool
// reuse only as long as the slot it names still holds the same provider.
func (v *voice) matches(provider SoundProvider) bool {
	return v != nil && v.provider == provider
}
