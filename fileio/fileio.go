// Package fileio implements the File I/O Engine: write_at, read_range,
// move_within, truncate, and append over a cached inode, built on a
// blockcache.Cache retargeted to translate logical block indices through an
// inode's direct_blocks instead of a FAT/Unix-v6 cluster chain. Grounded on
// original_source/FileOperations.py's
// readFile/createFile(append path)/move_within_file/truncate_file.
package fileio

import (
	"time"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/blockcache"
	"github.com/kasmir/blockfs/image"
)

// Engine performs in-file edits against a given image, operating on the
// inode slot an open handle caches. Every method reads the inode fresh, so
// callers holding stale cached copies should refresh after each call.
type Engine struct {
	Image *image.Image
}

// New builds a fileio Engine over an already-opened image.
func New(img *image.Image) *Engine {
	return &Engine{Image: img}
}

// cacheFor builds a fixed-size (DirectBlockCount blocks) cache over
// inode's direct blocks. Unallocated blocks fetch as all-zero; flush is only
// ever invoked for blocks the caller has already ensured are allocated,
// since WriteAt never touches a block beyond what allocateThrough reserved.
func (e *Engine) cacheFor(ino *blockfs.Inode) *blockcache.Cache {
	fetch := func(i uint, buf []byte) error {
		blockNum := ino.DirectBlocks[i]
		if blockNum == blockfs.UnallocatedBlock {
			return nil // buf is already zeroed by the cache
		}
		data, err := e.Image.Device.ReadBlock(uint(blockNum))
		if err != nil {
			return err
		}
		copy(buf, data)
		return nil
	}
	flush := func(i uint, buf []byte) error {
		blockNum := ino.DirectBlocks[i]
		if blockNum == blockfs.UnallocatedBlock {
			return nil
		}
		return e.Image.Device.WriteBlock(uint(blockNum), buf)
	}
	resize := func(uint) error { return nil } // direct_blocks count is fixed; growth handled by allocateThrough
	return blockcache.New(blockfs.BlockSize, blockfs.DirectBlockCount, fetch, flush, resize)
}

// allocateThrough ensures direct_blocks[0..need) are allocated, reusing any
// already-set block and allocating the lowest-indexed free block otherwise.
func (e *Engine) allocateThrough(ino *blockfs.Inode, need int) error {
	for i := 0; i < need; i++ {
		if ino.IsAllocatedBlock(i) {
			continue
		}
		idx, err := e.Image.Bitmaps.FindFirstFree(bitmap.KindBlock)
		if err != nil {
			return err
		}
		e.Image.Bitmaps.MarkUsed(bitmap.KindBlock, idx)
		ino.DirectBlocks[i] = blockfs.DataBlockNumber(idx)
	}
	return nil
}

// freeFrom releases every allocated direct block at index >= from.
func (e *Engine) freeFrom(ino *blockfs.Inode, from int) {
	for i := from; i < blockfs.DirectBlockCount; i++ {
		if ino.IsAllocatedBlock(i) {
			e.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockfs.DataBlockIndex(ino.DirectBlocks[i]))
			ino.DirectBlocks[i] = blockfs.UnallocatedBlock
		}
	}
}

// readContent reads the inode's full current content ([0, file_size)).
func (e *Engine) readContent(ino *blockfs.Inode) ([]byte, error) {
	if ino.FileSize == 0 {
		return nil, nil
	}
	cache := e.cacheFor(ino)
	buf := make([]byte, ino.FileSize)
	if _, err := cache.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// rewrite persists buf as the inode's entire content: allocates/grows
// direct_blocks as needed, writes every block, updates file_size and
// modification_time, and persists the inode and bitmap.
func (e *Engine) rewrite(inodeSlot int, ino *blockfs.Inode, buf []byte) error {
	need := blockfs.NeededBlocks(len(buf))
	if need > blockfs.DirectBlockCount {
		return blockfs.ErrFileTooLarge
	}
	if err := e.allocateThrough(ino, need); err != nil {
		return err
	}

	cache := e.cacheFor(ino)
	if len(buf) > 0 {
		if _, err := cache.WriteAt(buf, 0); err != nil {
			return err
		}
	}
	if err := cache.Flush(); err != nil {
		return err
	}

	e.freeFrom(ino, need)
	ino.FileSize = uint64(len(buf))
	ino.ModificationTime = time.Now()

	if err := e.Image.Inodes.Write(inodeSlot, *ino); err != nil {
		return err
	}
	return e.Image.SaveBitmaps()
}

// WriteAt space-pads a gap if index is beyond the current content,
// overwrites from index with text, and grows the file if the write extends
// past the old end.
func (e *Engine) WriteAt(inodeSlot int, index int, text []byte) (blockfs.Inode, error) {
	ino, err := e.Image.Inodes.Read(inodeSlot)
	if err != nil {
		return ino, err
	}
	content, err := e.readContent(&ino)
	if err != nil {
		return ino, err
	}

	if index > len(content) {
		pad := make([]byte, index-len(content))
		for i := range pad {
			pad[i] = ' '
		}
		content = append(content, pad...)
	}

	newLen := index + len(text)
	if newLen > len(content) {
		grown := make([]byte, newLen)
		copy(grown, content)
		content = grown
	}
	copy(content[index:index+len(text)], text)

	if err := e.rewrite(inodeSlot, &ino, content); err != nil {
		return ino, err
	}
	return ino, nil
}

// Append is write_at(file_size, text).
func (e *Engine) Append(inodeSlot int, text []byte) (blockfs.Inode, error) {
	ino, err := e.Image.Inodes.Read(inodeSlot)
	if err != nil {
		return ino, err
	}
	return e.WriteAt(inodeSlot, int(ino.FileSize), text)
}

// ReadRange reads size bytes starting at start. A negative start reads the
// entire file; a negative size reads from start to the end of the file.
// Stops early (sparse-file policy) if it would otherwise need to traverse an
// unallocated direct block, though since the read stays inside
// [0, file_size) and every block below ceil(file_size/B) is allocated in a
// healthy image, this only matters for a corrupted one.
func (e *Engine) ReadRange(inodeSlot int, start, size int) ([]byte, error) {
	ino, err := e.Image.Inodes.Read(inodeSlot)
	if err != nil {
		return nil, err
	}
	fileSize := int(ino.FileSize)

	if start < 0 {
		start = 0
		size = fileSize
	}
	if start >= fileSize {
		return nil, nil
	}
	if size < 0 || start+size > fileSize {
		size = fileSize - start
	}

	cache := e.cacheFor(&ino)
	out := make([]byte, 0, size)
	blockSize := blockfs.BlockSize
	remaining := size
	pos := start
	for remaining > 0 {
		blockIdx := pos / blockSize
		if !ino.IsAllocatedBlock(blockIdx) {
			break // sparse-file policy: stop at first unallocated direct block
		}
		blockBuf := make([]byte, blockSize)
		if _, err := cache.ReadAt(blockBuf, uint(blockIdx)); err != nil {
			return nil, err
		}
		intraOffset := pos % blockSize
		n := blockSize - intraOffset
		if n > remaining {
			n = remaining
		}
		out = append(out, blockBuf[intraOffset:intraOffset+n]...)
		pos += n
		remaining -= n
	}
	return out, nil
}

// MoveWithin cuts [start, start+size) out of the content and reinserts it
// at target, clamped to the remaining length.
func (e *Engine) MoveWithin(inodeSlot int, start, size, target int) (blockfs.Inode, error) {
	ino, err := e.Image.Inodes.Read(inodeSlot)
	if err != nil {
		return ino, err
	}
	fileSize := int(ino.FileSize)

	if start < 0 || size < 0 || target < 0 || start+size > fileSize {
		return ino, blockfs.ErrInvalidRange
	}

	content, err := e.readContent(&ino)
	if err != nil {
		return ino, err
	}

	segment := make([]byte, size)
	copy(segment, content[start:start+size])
	remainder := append(append([]byte{}, content[:start]...), content[start+size:]...)

	if target > len(remainder) {
		target = len(remainder)
	}

	result := make([]byte, 0, len(content))
	result = append(result, remainder[:target]...)
	result = append(result, segment...)
	result = append(result, remainder[target:]...)

	if err := e.rewrite(inodeSlot, &ino, result); err != nil {
		return ino, err
	}
	return ino, nil
}

// Truncate shrinks by freeing trailing blocks, grows by space-padding, and
// is a no-op when maxSize equals the current size.
func (e *Engine) Truncate(inodeSlot int, maxSize int) (blockfs.Inode, error) {
	ino, err := e.Image.Inodes.Read(inodeSlot)
	if err != nil {
		return ino, err
	}
	fileSize := int(ino.FileSize)
	if maxSize == fileSize {
		return ino, nil
	}

	if maxSize < fileSize {
		content, err := e.readContent(&ino)
		if err != nil {
			return ino, err
		}
		if err := e.rewrite(inodeSlot, &ino, content[:maxSize]); err != nil {
			return ino, err
		}
		return ino, nil
	}

	pad := make([]byte, maxSize-fileSize)
	for i := range pad {
		pad[i] = ' '
	}
	ino2, err := e.WriteAt(inodeSlot, fileSize, pad)
	return ino2, err
}
