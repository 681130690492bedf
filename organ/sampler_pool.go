package organ

import "sync/atomic"

// SamplerPool is the fixed-capacity free list of voice slots (§4.1). Its
// Acquire/Release operations are lock-free: a Treiber stack of free slot
// indices, linked through a parallel "next" array and CAS'd through a
// single packed head word (index + monotonically incrementing tag, to
// avoid ABA on the CAS loop).
type SamplerPool struct {
	voices []voice
	next   []int32
	head   atomic.Uint64
	used   atomic.Int32
	cap    int32
}

const freeStackEmpty = -1

func packHead(idx int32, tag uint32) uint64 {
	return uint64(uint32(idx)) | uint64(tag)<<32
}

func unpackHead(h uint64) (idx int32, tag uint32) {
	return int32(uint32(h)), uint32(h >> 32)
}

// NewSamplerPool allocates a pool with the given capacity, all slots free.
func NewSamplerPool(capacity int) *SamplerPool {
	p := &SamplerPool{
		voices: make([]voice, capacity),
		next:   make([]int32, capacity),
		cap:    int32(capacity),
	}
	for i := range p.voices {
		p.voices[i].slot = i
	}
	p.ReturnAll()
	return p
}

// Capacity returns the pool's fixed slot count (the hard polyphony limit).
func (p *SamplerPool) Capacity() int {
	return int(p.cap)
}

// UsedCount is a monotonically-read atomic counter of slots currently
// checked out, used both for the polyphony meter and to gate release
// soft-limiting.
func (p *SamplerPool) UsedCount() int {
	return int(p.used.Load())
}

// Acquire returns a reset voice slot, or nil if the pool is exhausted
// (SamplerStarvation, §7 — the caller silently drops the new voice).
func (p *SamplerPool) Acquire() *voice {
	for {
		h := p.head.Load()
		idx, tag := unpackHead(h)
		if idx == freeStackEmpty {
			return nil
		}
		newHead := packHead(p.next[idx], tag+1)
		if p.head.CompareAndSwap(h, newHead) {
			p.used.Add(1)
			v := &p.voices[idx]
			v.reset()
			return v
		}
	}
}

// Release pushes a voice slot back onto the free stack.
func (p *SamplerPool) Release(v *voice) {
	if v == nil {
		return
	}
	idx := int32(v.slot)
	v.reset()
	for {
		h := p.head.Load()
		head, tag := unpackHead(h)
		p.next[idx] = head
		newHead := packHead(idx, tag+1)
		if p.head.CompareAndSwap(h, newHead) {
			p.used.Add(-1)
			return
		}
	}
}

// ReturnAll resets every slot and rebuilds the free stack with all slots
// free, in index order. Called once at engine Start; not safe to call
// concurrently with Acquire/Release.
func (p *SamplerPool) ReturnAll() {
	for i := range p.voices {
		p.voices[i].reset()
		if i == len(p.voices)-1 {
			p.next[i] = freeStackEmpty
		} else {
			p.next[i] = int32(i + 1)
		}
	}
	p.used.Store(0)
	if len(p.voices) == 0 {
		p.head.Store(packHead(freeStackEmpty, 0))
		return
	}
	p.head.Store(packHead(0, 0))
}
