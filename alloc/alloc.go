// Package alloc implements the Allocator: coordinates the Bitmap Manager,
// Inode Store, and Directory Service for file/directory creation and
// deletion, grounded on dargueta/disko's drivers/common/allocatormap.go
// (Allocator.AllocateBlock/FreeBlock) and original_source/FileOperations.py's
// createFile/mkdir/deleteFile for the commit/rollback ordering. Callers (the
// engine) are responsible for holding the Concurrency Gate for the duration
// of every call here.
package alloc

import (
	"time"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/image"
)

// Allocator wires the image's bitmap manager, inode store, and directory
// service together for the higher-level create/delete operations.
type Allocator struct {
	Image *image.Image
}

// New builds an Allocator over an already-opened image.
func New(img *image.Image) *Allocator {
	return &Allocator{Image: img}
}

// rollbackBlocks frees every block index already reserved for a failed
// allocation.
func (a *Allocator) rollbackBlocks(indices []int) {
	for _, idx := range indices {
		a.Image.Bitmaps.MarkFree(bitmap.KindBlock, idx)
	}
}

// CreateFile allocates blocks and an inode for content, persists everything,
// then links it into parent.
// Every allocation step is committed (and, on failure, rolled back) before
// the directory entry is added.
func (a *Allocator) CreateFile(parentDataBlock uint32, name string, content []byte) (inodeIndex int, err error) {
	if _, lookupErr := a.Image.Dirs.Lookup(parentDataBlock, name); lookupErr == nil {
		return 0, blockfs.ErrAlreadyExists
	}

	need := blockfs.NeededBlocks(len(content))
	if need > blockfs.DirectBlockCount {
		return 0, blockfs.ErrFileTooLarge
	}
	if a.Image.Bitmaps.CountFree(bitmap.KindBlock) < need {
		return 0, blockfs.ErrNoSpace
	}

	inodeSlot, err := a.Image.Bitmaps.FindFirstFree(bitmap.KindInode)
	if err != nil {
		return 0, err
	}

	var ino blockfs.Inode
	reserved := make([]int, 0, need)
	for i := 0; i < need; i++ {
		idx, ferr := a.Image.Bitmaps.FindFirstFree(bitmap.KindBlock)
		if ferr != nil {
			a.rollbackBlocks(reserved)
			return 0, ferr
		}
		a.Image.Bitmaps.MarkUsed(bitmap.KindBlock, idx)
		reserved = append(reserved, idx)
		ino.DirectBlocks[i] = blockfs.DataBlockNumber(idx)
	}

	now := time.Now()
	ino.FileSize = uint64(len(content))
	ino.CreationTime = now
	ino.ModificationTime = now

	for i := 0; i < need; i++ {
		start := i * blockfs.BlockSize
		end := start + blockfs.BlockSize
		chunk := make([]byte, blockfs.BlockSize)
		if end > len(content) {
			end = len(content)
		}
		copy(chunk, content[start:end])
		if werr := a.Image.Device.WriteBlock(uint(ino.DirectBlocks[i]), chunk); werr != nil {
			a.rollbackBlocks(reserved)
			return 0, werr
		}
	}

	a.Image.Bitmaps.MarkUsed(bitmap.KindInode, inodeSlot)
	if err := a.Image.Inodes.Write(inodeSlot, ino); err != nil {
		a.Image.Bitmaps.MarkFree(bitmap.KindInode, inodeSlot)
		a.rollbackBlocks(reserved)
		return 0, err
	}
	if err := a.Image.SaveBitmaps(); err != nil {
		return 0, err
	}

	if err := a.Image.Dirs.Add(parentDataBlock, blockfs.Dirent{
		Name:        name,
		InodeNumber: uint32(inodeSlot),
		Kind:        blockfs.KindFile,
		Size:        ino.FileSize,
	}); err != nil {
		// Roll everything back: the directory is the last commit point.
		a.Image.Bitmaps.MarkFree(bitmap.KindInode, inodeSlot)
		a.rollbackBlocks(reserved)
		a.Image.Inodes.Zero(inodeSlot)
		a.Image.SaveBitmaps()
		return 0, err
	}

	return inodeSlot, nil
}

// CreateDirectory allocates an inode and an empty-entry-list data block, then
// links the new directory into parent.
func (a *Allocator) CreateDirectory(parentDataBlock uint32, name string) (inodeIndex int, err error) {
	if _, lookupErr := a.Image.Dirs.Lookup(parentDataBlock, name); lookupErr == nil {
		return 0, blockfs.ErrAlreadyExists
	}

	inodeSlot, err := a.Image.Bitmaps.FindFirstFree(bitmap.KindInode)
	if err != nil {
		return 0, err
	}
	blockIdx, err := a.Image.Bitmaps.FindFirstFree(bitmap.KindBlock)
	if err != nil {
		return 0, err
	}

	a.Image.Bitmaps.MarkUsed(bitmap.KindBlock, blockIdx)
	blockNum := blockfs.DataBlockNumber(blockIdx)

	now := time.Now()
	var ino blockfs.Inode
	ino.IsDirectory = true
	ino.CreationTime = now
	ino.ModificationTime = now
	ino.DirectBlocks[0] = blockNum

	emptyDir, err := blockfs.MarshalDirents(nil)
	if err != nil {
		a.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockIdx)
		return 0, err
	}
	if err := a.Image.Device.WriteBlock(uint(blockNum), emptyDir); err != nil {
		a.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockIdx)
		return 0, err
	}

	a.Image.Bitmaps.MarkUsed(bitmap.KindInode, inodeSlot)
	if err := a.Image.Inodes.Write(inodeSlot, ino); err != nil {
		a.Image.Bitmaps.MarkFree(bitmap.KindInode, inodeSlot)
		a.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockIdx)
		return 0, err
	}
	if err := a.Image.SaveBitmaps(); err != nil {
		return 0, err
	}

	if err := a.Image.Dirs.Add(parentDataBlock, blockfs.Dirent{
		Name:        name,
		InodeNumber: uint32(inodeSlot),
		Kind:        blockfs.KindDirectory,
	}); err != nil {
		a.Image.Bitmaps.MarkFree(bitmap.KindInode, inodeSlot)
		a.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockIdx)
		a.Image.Inodes.Zero(inodeSlot)
		a.Image.SaveBitmaps()
		return 0, err
	}

	return inodeSlot, nil
}

// DeleteFile removes the directory entry and frees the inode and all
// blocks it owned.
func (a *Allocator) DeleteFile(parentDataBlock uint32, name string) error {
	inodeSlot, err := a.Image.Dirs.Lookup(parentDataBlock, name)
	if err != nil {
		return err
	}
	ino, err := a.Image.Inodes.Read(int(inodeSlot))
	if err != nil {
		return err
	}
	if ino.IsDirectory {
		return blockfs.ErrIsADirectory
	}

	if err := a.Image.Dirs.Remove(parentDataBlock, name); err != nil {
		return err
	}

	for i := 0; i < blockfs.DirectBlockCount; i++ {
		if ino.IsAllocatedBlock(i) {
			a.Image.Bitmaps.MarkFree(bitmap.KindBlock, blockfs.DataBlockIndex(ino.DirectBlocks[i]))
		}
	}
	a.Image.Bitmaps.MarkFree(bitmap.KindInode, int(inodeSlot))
	if err := a.Image.Inodes.Zero(int(inodeSlot)); err != nil {
		return err
	}
	return a.Image.SaveBitmaps()
}
