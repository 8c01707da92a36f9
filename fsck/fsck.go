// Package fsck checks image consistency (bitmap/inode/block agreement, tree
// reachability, duplicate names), aggregating every violation it finds into
// a single error via github.com/hashicorp/go-multierror instead of stopping
// at the first, in the same spirit as show_memory_map tolerating a
// per-directory deserialization failure by annotating and continuing.
// go-multierror is a direct dependency of dargueta/disko's go.mod that had
// no call site anywhere in its tree; this is its first wiring.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/image"
)

// Check walks every inode slot and the reachable directory tree rooted at
// inode 0, returning a *multierror.Error combining every invariant
// violation found, or nil if the image is consistent.
func Check(img *image.Image) error {
	var result *multierror.Error

	reachableInodes := map[int]bool{}
	reachableBlocks := map[int]bool{}
	walkTree(img, blockfs.RootDirInodeIndex, reachableInodes, reachableBlocks, &result)

	checkInodeBitmapConsistency(img, reachableInodes, &result)
	checkBlockBitmapConsistency(img, reachableBlocks, &result)
	checkDisjointBlocks(img, &result)
	checkNoInodeTableAliasing(img, reachableBlocks, &result)

	return result.ErrorOrNil()
}

func walkTree(img *image.Image, dirInode int, reachableInodes map[int]bool, reachableBlocks map[int]bool, result **multierror.Error) {
	reachableInodes[dirInode] = true
	ino, err := img.Inodes.Read(dirInode)
	if err != nil {
		*result = multierror.Append(*result, fmt.Errorf("inode %d: %w", dirInode, err))
		return
	}
	if !ino.IsDirectory {
		*result = multierror.Append(*result, fmt.Errorf("inode %d reached as a directory but is not one", dirInode))
		return
	}
	if ino.IsAllocatedBlock(0) {
		reachableBlocks[blockfs.DataBlockIndex(ino.DirectBlocks[0])] = true
	}

	entries, err := img.Dirs.Load(ino.DirectBlocks[0])
	if err != nil {
		*result = multierror.Append(*result, fmt.Errorf("directory at inode %d: %w", dirInode, err))
		return
	}

	seen := map[string]bool{}
	for _, entry := range entries {
		if seen[entry.Name] {
			*result = multierror.Append(*result, fmt.Errorf("directory at inode %d has duplicate name %q", dirInode, entry.Name))
		}
		seen[entry.Name] = true

		if entry.Kind == blockfs.KindDirectory {
			walkTree(img, int(entry.InodeNumber), reachableInodes, reachableBlocks, result)
			continue
		}

		reachableInodes[int(entry.InodeNumber)] = true
		fileIno, err := img.Inodes.Read(int(entry.InodeNumber))
		if err != nil {
			*result = multierror.Append(*result, fmt.Errorf("inode %d (file %q): %w", entry.InodeNumber, entry.Name, err))
			continue
		}
		need := blockfs.NeededBlocks(int(fileIno.FileSize))
		used := fileIno.BlocksInUse()
		if used < need || used > blockfs.DirectBlockCount {
			*result = multierror.Append(*result, fmt.Errorf(
				"file %q (inode %d): file_size %d needs >= %d allocated blocks, has %d",
				entry.Name, entry.InodeNumber, fileIno.FileSize, need, used))
		}
		for i := 0; i < blockfs.DirectBlockCount; i++ {
			if fileIno.IsAllocatedBlock(i) {
				reachableBlocks[blockfs.DataBlockIndex(fileIno.DirectBlocks[i])] = true
			}
		}
	}
}

func checkInodeBitmapConsistency(img *image.Image, reachable map[int]bool, result **multierror.Error) {
	for i := 0; i < int(img.Superblock.TotalInodes); i++ {
		used := img.Bitmaps.IsUsed(bitmap.KindInode, i)
		if reachable[i] && !used {
			*result = multierror.Append(*result, fmt.Errorf("inode %d is reachable but its bitmap bit is clear", i))
		}
		if !reachable[i] && used && i != blockfs.RootDirInodeIndex {
			*result = multierror.Append(*result, fmt.Errorf("inode %d's bitmap bit is set but it is unreachable", i))
		}
	}
}

func checkBlockBitmapConsistency(img *image.Image, reachable map[int]bool, result **multierror.Error) {
	total := int(img.Superblock.TotalBlocks) - int(img.Superblock.FreeSpaceMapStart) - 1
	for i := 0; i < total; i++ {
		used := img.Bitmaps.IsUsed(bitmap.KindBlock, i)
		if reachable[i] && !used {
			*result = multierror.Append(*result, fmt.Errorf("data block index %d is referenced but its bitmap bit is clear", i))
		}
		if !reachable[i] && used {
			*result = multierror.Append(*result, fmt.Errorf("data block index %d's bitmap bit is set but it is unreferenced", i))
		}
	}
}

// checkNoInodeTableAliasing flags any data block index whose physical block
// number falls inside the inode table's own region
// [InodeTableStartBlock, InodeTableStartBlock+InodeTableBlocks). A layout
// bug that places the data-block bitmap or its first data blocks on top of
// the inode table would otherwise corrupt inode records silently; this is
// the only check that inspects physical placement rather than reference
// consistency.
func checkNoInodeTableAliasing(img *image.Image, reachable map[int]bool, result **multierror.Error) {
	tableStart := int(img.Superblock.InodeTableStartBlock)
	tableEnd := tableStart + blockfs.InodeTableBlocks
	total := int(img.Superblock.TotalBlocks) - int(img.Superblock.FreeSpaceMapStart) - 1
	for i := 0; i < total; i++ {
		if !reachable[i] && !img.Bitmaps.IsUsed(bitmap.KindBlock, i) {
			continue
		}
		block := int(blockfs.DataBlockNumber(i))
		if block >= tableStart && block < tableEnd {
			*result = multierror.Append(*result, fmt.Errorf(
				"data block index %d maps to physical block %d, which aliases the inode table (blocks %d-%d)",
				i, block, tableStart, tableEnd-1))
		}
	}
}

func checkDisjointBlocks(img *image.Image, result **multierror.Error) {
	owner := map[uint32]int{}
	for i := 0; i < int(img.Superblock.TotalInodes); i++ {
		if !img.Bitmaps.IsUsed(bitmap.KindInode, i) {
			continue
		}
		ino, err := img.Inodes.Read(i)
		if err != nil {
			continue
		}
		for j := 0; j < blockfs.DirectBlockCount; j++ {
			if !ino.IsAllocatedBlock(j) {
				continue
			}
			block := ino.DirectBlocks[j]
			if prevOwner, ok := owner[block]; ok {
				*result = multierror.Append(*result, fmt.Errorf("block %d is referenced by both inode %d and inode %d", block, prevOwner, i))
				continue
			}
			owner[block] = i
		}
	}
}
