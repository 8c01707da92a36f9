// Package format implements the Image Formatter: lays down a fresh image
// file with a superblock, zeroed bitmaps, an empty inode table, and an
// initialized root directory. Grounded on
// original_source/SystemInitializer.py's initialize_filesystem and
// dargueta/disko's file_systems/unixv1/format.go, which builds the whole
// image in one in-memory slice via bytewriter.New before a single write.
package format

import (
	"fmt"
	"os"

	"github.com/kasmir/blockfs"
)

// CreateInMemory builds a freshly formatted sizeMB-megabyte image entirely
// in memory, without touching the filesystem. Used directly by format.Create
// and by testutil for fixture images.
func CreateInMemory(sizeMB int) ([]byte, error) {
	totalBlocks := uint32(sizeMB*1024*1024) / blockfs.BlockSize
	if totalBlocks <= blockfs.DataBlockNumber(0) {
		return nil, fmt.Errorf("image too small: need room for at least one data block past the bitmaps")
	}

	img := make([]byte, int64(totalBlocks)*blockfs.BlockSize)

	sb := blockfs.NewSuperblock(totalBlocks)
	copy(img[0:blockfs.BlockSize], sb.MarshalBinary())

	// Inode bitmap: slot 0 (root directory) marked used.
	inodeBitmapOff := int64(sb.InodeBitmapStartBlock) * blockfs.BlockSize
	img[inodeBitmapOff+int64(blockfs.RootDirInodeIndex)] = 1

	// Root directory inode: slot 0, is_directory, direct_blocks[0] = root dir block.
	rootInode := blockfs.Inode{IsDirectory: true}
	rootInode.DirectBlocks[0] = blockfs.RootDirDataBlock
	inodeOff := int64(sb.InodeTableStartBlock)*blockfs.BlockSize + int64(blockfs.RootDirInodeIndex)*blockfs.InodeRecordSize
	copy(img[inodeOff:inodeOff+blockfs.InodeRecordSize], rootInode.MarshalBinary())

	// Data-block bitmap: bit for the root directory's block marked used.
	dataBitmapOff := int64(sb.FreeSpaceMapStart) * blockfs.BlockSize
	rootDataIndex := blockfs.DataBlockIndex(blockfs.RootDirDataBlock)
	img[dataBitmapOff+int64(rootDataIndex)] = 1

	// Root directory's data block: empty entry list (all-zero block already
	// decodes to an empty list per UnmarshalDirents).
	emptyDir, err := blockfs.MarshalDirents(nil)
	if err != nil {
		return nil, err
	}
	rootDirOff := int64(blockfs.RootDirDataBlock) * blockfs.BlockSize
	copy(img[rootDirOff:rootDirOff+blockfs.BlockSize], emptyDir)

	return img, nil
}

// Create lays down a new image at path sized sizeMB megabytes. Fails if the
// image already exists.
func Create(path string, sizeMB int) error {
	if _, err := os.Stat(path); err == nil {
		return blockfs.ErrAlreadyExists.WithMessage(fmt.Sprintf("image already exists at %s", path))
	}

	img, err := CreateInMemory(sizeMB)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return blockfs.ErrIOFailed.WrapError(err)
	}
	defer f.Close()

	if _, err := f.Write(img); err != nil {
		return blockfs.ErrIOFailed.WrapError(err)
	}
	return f.Sync()
}
