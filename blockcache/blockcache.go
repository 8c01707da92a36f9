// Package blockcache provides a block-oriented cache offering a linear view
// of a single file's content scattered across up to ten discontiguous data
// blocks, adapted from dargueta/disko's
// file_systems/common/blockcache.BlockCache. That cache translated a logical
// block index through a FAT/Unix-v6 cluster chain; here the
// fetch/flush/resize callbacks translate it through an inode's
// direct_blocks array instead, the only thing that changes between the two
// on-disk formats.
package blockcache

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// FetchBlockCallback reads one block's content into buffer. blockIndex is in
// [0, TotalBlocks); buffer is always BytesPerBlock bytes.
type FetchBlockCallback func(blockIndex uint, buffer []byte) error

// FlushBlockCallback writes buffer's content to storage. Same guarantees as
// FetchBlockCallback.
type FlushBlockCallback func(blockIndex uint, buffer []byte) error

// ResizeCallback grows or shrinks the backing object to newTotalBlocks
// blocks. It must not touch block content; the cache handles zero-padding
// for newly exposed blocks itself.
type ResizeCallback func(newTotalBlocks uint) error

// Cache is a linear byte-addressable view over a file's direct blocks.
type Cache struct {
	loadedBlocks  bitmap.Bitmap
	dirtyBlocks   bitmap.Bitmap
	fetch         FetchBlockCallback
	flush         FlushBlockCallback
	resize        ResizeCallback
	bytesPerBlock uint
	totalBlocks   uint
	data          []byte
}

// New builds a Cache over totalBlocks blocks of bytesPerBlock bytes each.
func New(bytesPerBlock, totalBlocks uint, fetchCb FetchBlockCallback, flushCb FlushBlockCallback, resizeCb ResizeCallback) *Cache {
	return &Cache{
		loadedBlocks:  bitmap.New(int(totalBlocks)),
		dirtyBlocks:   bitmap.New(int(totalBlocks)),
		data:          make([]byte, int(bytesPerBlock*totalBlocks)),
		fetch:         fetchCb,
		flush:         flushCb,
		resize:        resizeCb,
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
	}
}

func (c *Cache) BytesPerBlock() uint { return c.bytesPerBlock }
func (c *Cache) TotalBlocks() uint   { return c.totalBlocks }
func (c *Cache) Size() int64         { return int64(c.bytesPerBlock) * int64(c.totalBlocks) }

// GetMinBlocksForSize gives ceil(size / bytesPerBlock).
func (c *Cache) GetMinBlocksForSize(size uint) uint {
	return (size + c.bytesPerBlock - 1) / c.bytesPerBlock
}

func (c *Cache) checkBounds(start uint, bufferSize uint) error {
	numBlocks := c.GetMinBlocksForSize(bufferSize)
	if start >= c.totalBlocks && bufferSize > 0 {
		return fmt.Errorf("block %d not in range [0, %d)", start, c.totalBlocks)
	}
	if start+numBlocks > c.totalBlocks {
		return fmt.Errorf("can't access %d bytes (%d blocks) starting at block %d; out of [0, %d)",
			bufferSize, numBlocks, start, c.totalBlocks)
	}
	return nil
}

func (c *Cache) loadBlockRange(start, count uint) error {
	if err := c.checkBounds(start, count*c.bytesPerBlock); err != nil {
		return err
	}
	for i := start; i < start+count; i++ {
		if c.loadedBlocks.Get(int(i)) {
			continue
		}
		off := i * c.bytesPerBlock
		buf := c.data[off : off+c.bytesPerBlock]
		if err := c.fetch(i, buf); err != nil {
			return fmt.Errorf("failed to load block %d: %w", i, err)
		}
		c.loadedBlocks.Set(int(i), true)
		c.dirtyBlocks.Set(int(i), false)
	}
	return nil
}

// GetSlice returns a slice over [start, start+count) blocks, loading any
// missing blocks first. Modifications to the returned slice must be
// followed by MarkBlockRangeDirty.
func (c *Cache) GetSlice(start, count uint) ([]byte, error) {
	if err := c.loadBlockRange(start, count); err != nil {
		return nil, err
	}
	off := start * c.bytesPerBlock
	end := off + count*c.bytesPerBlock
	return c.data[off:end], nil
}

// ReadAt fills buffer starting at block `start`, loading any missing blocks.
func (c *Cache) ReadAt(buffer []byte, start uint) (int, error) {
	if err := c.checkBounds(start, uint(len(buffer))); err != nil {
		return 0, err
	}
	n := c.GetMinBlocksForSize(uint(len(buffer)))
	src, err := c.GetSlice(start, n)
	if err != nil {
		return 0, err
	}
	copy(buffer, src)
	return len(buffer), nil
}

// WriteAt copies buffer into the cache starting at block `start`, marking
// every touched block dirty.
func (c *Cache) WriteAt(buffer []byte, start uint) (int, error) {
	if err := c.checkBounds(start, uint(len(buffer))); err != nil {
		return 0, err
	}
	n := c.GetMinBlocksForSize(uint(len(buffer)))
	dst, err := c.GetSlice(start, n)
	if err != nil {
		return 0, err
	}
	copy(dst, buffer)
	for i := start; i < start+n; i++ {
		c.loadedBlocks.Set(int(i), true)
		c.dirtyBlocks.Set(int(i), true)
	}
	return len(buffer), nil
}

// Flush writes every dirty block back through the flush callback.
func (c *Cache) Flush() error {
	for i := uint(0); i < c.totalBlocks; i++ {
		if !c.dirtyBlocks.Get(int(i)) {
			continue
		}
		off := i * c.bytesPerBlock
		buf := c.data[off : off+c.bytesPerBlock]
		if err := c.flush(i, buf); err != nil {
			return fmt.Errorf("failed to flush block %d: %w", i, err)
		}
		c.dirtyBlocks.Set(int(i), false)
	}
	return nil
}

// Resize grows or shrinks the cache to newTotalBlocks blocks via the resize
// callback, then reshapes the in-memory buffer to match. Newly exposed
// blocks are zeroed and marked dirty so a subsequent Flush writes them out.
func (c *Cache) Resize(newTotalBlocks uint) error {
	if err := c.resize(newTotalBlocks); err != nil {
		return err
	}
	newData := make([]byte, newTotalBlocks*c.bytesPerBlock)
	copy(newData, c.data)

	newDirty := bitmap.New(int(newTotalBlocks))
	newLoaded := bitmap.New(int(newTotalBlocks))
	copy(newDirty, c.dirtyBlocks)
	copy(newLoaded, c.loadedBlocks)
	for i := c.totalBlocks; i < newTotalBlocks; i++ {
		newDirty.Set(int(i), true)
		newLoaded.Set(int(i), true)
	}

	c.data = newData
	c.dirtyBlocks = newDirty
	c.loadedBlocks = newLoaded
	c.totalBlocks = newTotalBlocks
	return nil
}

// MarkBlockRangeDirty flags [start, start+count) for write-back on the next
// Flush, for callers that mutated a GetSlice result directly.
func (c *Cache) MarkBlockRangeDirty(start, count uint) error {
	if err := c.checkBounds(start, count*c.bytesPerBlock); err != nil {
		return err
	}
	for i := start; i < start+count; i++ {
		c.dirtyBlocks.Set(int(i), true)
		c.loadedBlocks.Set(int(i), true)
	}
	return nil
}
