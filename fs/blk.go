package fs

import "container/list"

// BlkList_t wraps a list.List of block numbers, the same thin iterator
// adapter the donor's journaled filesystem uses for its own write-back
// queue, repurposed here as the read cache's LRU-ish eviction order.
type BlkList_t struct {
	l *list.List
	e *list.Element // iterator
}

// MkBlkList creates an empty block list.
func MkBlkList() *BlkList_t {
	bl := &BlkList_t{}
	bl.l = list.New()
	return bl
}

// Len returns the number of blocks in the list.
func (bl *BlkList_t) Len() int {
	return bl.l.Len()
}

// PushBack appends a block number to the list.
func (bl *BlkList_t) PushBack(b uint32) {
	bl.l.PushBack(b)
}

// FrontBlock resets the iterator and returns the first block number.
func (bl *BlkList_t) FrontBlock() (uint32, bool) {
	if bl.l.Front() == nil {
		return 0, false
	}
	bl.e = bl.l.Front()
	return bl.e.Value.(uint32), true
}

// NextBlock advances the iterator and returns the next block number.
func (bl *BlkList_t) NextBlock() (uint32, bool) {
	if bl.e == nil {
		return 0, false
	}
	bl.e = bl.e.Next()
	if bl.e == nil {
		return 0, false
	}
	return bl.e.Value.(uint32), true
}

// RemoveBlock removes the first occurrence of block from the list, used
// when a block is evicted from the cache below.
func (bl *BlkList_t) RemoveBlock(block uint32) {
	for e := bl.l.Front(); e != nil; e = e.Next() {
		if e.Value.(uint32) == block {
			bl.l.Remove(e)
			return
		}
	}
}

// Cache is a bounded read-only cache of ext2 blocks over a RAM-resident
// image. Every returned slice aliases the image directly — there is
// nothing to write back, so the cache exists purely to avoid recomputing
// block offsets and to bound how many block-sized slices stay referenced
// when blockSize differs from the allocation granularity callers expect.
type Cache struct {
	image     []byte
	blockSize uint32
	order     *BlkList_t
	maxBlocks int
	held      map[uint32][]byte
}

// NewCache wraps image (the full, validated ext2 filesystem bytes) in a
// read cache of blockSize-sized blocks, retaining at most maxBlocks
// distinct blocks' worth of bookkeeping before evicting the
// least-recently-touched one.
func NewCache(image []byte, blockSize uint32, maxBlocks int) *Cache {
	return &Cache{
		image:     image,
		blockSize: blockSize,
		order:     MkBlkList(),
		maxBlocks: maxBlocks,
		held:      make(map[uint32][]byte),
	}
}

// Block returns the blockSize-byte slice for block number n, aliasing the
// underlying image directly.
func (c *Cache) Block(n uint32) []byte {
	if b, ok := c.held[n]; ok {
		c.order.RemoveBlock(n)
		c.order.PushBack(n)
		return b
	}
	off := uint64(n) * uint64(c.blockSize)
	b := c.image[off : off+uint64(c.blockSize)]
	if len(c.held) >= c.maxBlocks {
		if victim, ok := c.order.FrontBlock(); ok {
			delete(c.held, victim)
			c.order.RemoveBlock(victim)
		}
	}
	c.held[n] = b
	c.order.PushBack(n)
	return b
}
