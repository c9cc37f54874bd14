package msi

import "sync"

// Vec_t identifies one slot drawn from a bounded integer range a Pool
// hands out. Originally just the eight MSI vectors (56-63) a PCI device
// could be steered to; generalized here into the slot-allocation
// mechanism cpu's IDT vector pool is built on, since both are the same
// problem — hand out, and later reclaim, slots from a fixed numeric range
// under a lock.
type Vec_t int

// Pool tracks which vectors in a bounded range are still available.
type Pool struct {
	sync.Mutex
	avail map[Vec_t]bool
}

// NewPool returns a pool covering [lo, hi), all initially available.
func NewPool(lo, hi int) *Pool {
	p := &Pool{avail: make(map[Vec_t]bool, hi-lo)}
	for i := lo; i < hi; i++ {
		p.avail[Vec_t(i)] = true
	}
	return p
}

// Claim marks vector as allocated, panicking if it was already taken.
// Used at boot time to reserve a fixed set of vectors before any dynamic
// Alloc can hand one of them back out.
func (p *Pool) Claim(vector Vec_t) {
	p.Lock()
	defer p.Unlock()
	if !p.avail[vector] {
		panic("msi: vector already claimed")
	}
	delete(p.avail, vector)
}

// Alloc hands out any still-available vector.
func (p *Pool) Alloc() Vec_t {
	p.Lock()
	defer p.Unlock()
	for v := range p.avail {
		delete(p.avail, v)
		return v
	}
	panic("msi: no vectors left")
}

// Free releases vector back to the pool, panicking on a double free.
func (p *Pool) Free(vector Vec_t) {
	p.Lock()
	defer p.Unlock()
	if p.avail[vector] {
		panic("msi: double free")
	}
	p.avail[vector] = true
}
