// Package cache provides a fixed-capacity, block-granular sector cache
// interposed between the UDF parser and its block source. It mirrors the
// original Rust implementation's use of an LRU map for exactly this role,
// backed here by github.com/hashicorp/golang-lru/v2 rather than a
// hand-rolled container/list LRU.
package cache

import (
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// SectorCache reads fixed-size blocks from an underlying io.ReaderAt,
// caching up to Capacity/SectorSize of them. It is single-owner: callers
// must not share an instance across concurrent traversals, mirroring the
// inherently single-threaded, stateful nature of a DVD decrypting block
// driver.
type SectorCache struct {
	source     io.ReaderAt
	sectorSize int
	slots      [][]byte
	freeSlots  []int
	lru        *lru.Cache[uint64, int]
}

// New creates a SectorCache over source with room for capacityBytes worth of
// sectorSize-byte blocks (capacityBytes is rounded down to a whole number of
// slots; at least one slot is always allocated).
func New(source io.ReaderAt, sectorSize int, capacityBytes int) (*SectorCache, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("new sector cache: sector size must be positive")
	}
	slotCount := capacityBytes / sectorSize
	if slotCount < 1 {
		slotCount = 1
	}

	c := &SectorCache{
		source:     source,
		sectorSize: sectorSize,
		slots:      make([][]byte, slotCount),
		freeSlots:  make([]int, slotCount),
	}
	for i := 0; i < slotCount; i++ {
		c.slots[i] = make([]byte, sectorSize)
		c.freeSlots[i] = slotCount - 1 - i
	}

	evictCallback := func(block uint64, slot int) {
		// The slot is about to be reused by whoever evicted it; nothing to
		// release here since slots are preallocated for the cache's lifetime.
	}
	l, err := lru.NewWithEvict[uint64, int](slotCount, evictCallback)
	if err != nil {
		return nil, fmt.Errorf("new sector cache: %w", err)
	}
	c.lru = l

	return c, nil
}

// SectorSize returns the fixed block size this cache reads in.
func (c *SectorCache) SectorSize() int {
	return c.sectorSize
}

// ReadBlock returns the sectorSize-byte contents of the given absolute block
// number, from cache if present, otherwise read through to the source. The
// returned slice is owned by the cache and must not be retained past the
// next call into the cache (it may be reused for a different block).
func (c *SectorCache) ReadBlock(block uint64) ([]byte, error) {
	if slot, ok := c.lru.Get(block); ok {
		return c.slots[slot], nil
	}

	slot, evicted := c.acquireSlot()
	buf := c.slots[slot]
	for i := range buf {
		buf[i] = 0
	}

	_, err := c.source.ReadAt(buf, int64(block)*int64(c.sectorSize))
	if err != nil {
		c.freeSlots = append(c.freeSlots, slot)
		return nil, fmt.Errorf("read block %d: %w: %v", block, udferr.ErrIO, err)
	}

	_ = evicted
	c.lru.Add(block, slot)
	return buf, nil
}

// acquireSlot returns a free slot, evicting the LRU entry if none remain.
func (c *SectorCache) acquireSlot() (slot int, evicted bool) {
	if n := len(c.freeSlots); n > 0 {
		slot = c.freeSlots[n-1]
		c.freeSlots = c.freeSlots[:n-1]
		return slot, false
	}

	_, slot, ok := c.lru.RemoveOldest()
	if !ok {
		// Capacity is always >= 1, so this is unreachable in practice.
		return 0, false
	}
	return slot, true
}

// ReadExact reads len(buf) bytes starting at the given absolute byte offset,
// splitting the request across sector boundaries as needed.
func (c *SectorCache) ReadExact(byteOffset uint64, buf []byte) error {
	remaining := buf
	offset := byteOffset

	for len(remaining) > 0 {
		block := offset / uint64(c.sectorSize)
		withinBlock := int(offset % uint64(c.sectorSize))

		sector, err := c.ReadBlock(block)
		if err != nil {
			return err
		}

		n := copy(remaining, sector[withinBlock:])
		remaining = remaining[n:]
		offset += uint64(n)
	}

	return nil
}

// Len reports the number of blocks currently cached.
func (c *SectorCache) Len() int {
	return c.lru.Len()
}
