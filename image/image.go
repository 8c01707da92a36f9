// Package image ties the on-disk layout pieces (block device, superblock,
// inode store, bitmap manager, directory service) into the single object
// every higher-level package operates against. Grounded on dargueta/disko's
// drivers/unixv1/driver.go (UnixV1Driver holding its BlockDevice + inode
// manager + superblock together) and original_source/SystemInitializer.py's
// initialize_filesystem, which performs the equivalent assembly on open.
package image

import (
	"io"
	"os"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/blockdev"
	"github.com/kasmir/blockfs/directory"
	"github.com/kasmir/blockfs/store"
)

// Image is the assembled, opened virtual filesystem: a live stream plus
// everything needed to read/write its layout. Test code builds one directly
// over an in-memory xaionaro-go/bytesextra stream via OpenStream
// (see testutil); production code uses Open, which owns a real host file.
type Image struct {
	stream     io.ReadWriteSeeker
	Device     *blockdev.Device
	Superblock blockfs.Superblock
	Inodes     *store.InodeStore
	Bitmaps    *bitmap.Manager
	Dirs       *directory.Service
}

func dataBlockSlots(sb blockfs.Superblock) int {
	return int(sb.TotalBlocks) - int(sb.FreeSpaceMapStart) - 1
}

// Open loads an existing image file at path and assembles its in-memory
// view. The caller must Close the returned Image when done.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, blockfs.ErrIOFailed.WrapError(err)
	}
	img, err := OpenStream(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// OpenStream assembles an Image view over an already-positioned
// io.ReadWriteSeeker holding a formatted image (a host file, or an
// in-memory buffer in tests). If stream also implements io.Closer, Close
// releases it.
func OpenStream(stream io.ReadWriteSeeker) (*Image, error) {
	dev := blockdev.New(stream, 0) // TotalBlocks filled in once the superblock is read
	sbBuf := make([]byte, blockfs.BlockSize)
	if _, err := dev.ReadAt(0, sbBuf); err != nil {
		return nil, err
	}
	sb := blockfs.UnmarshalSuperblock(sbBuf)
	dev.TotalBlocks = uint(sb.TotalBlocks)

	inodeBitmapBuf := make([]byte, blockfs.BlockSize)
	if _, err := dev.ReadAt(int64(sb.InodeBitmapStartBlock)*blockfs.BlockSize, inodeBitmapBuf); err != nil {
		return nil, err
	}
	inodeSlots := inodeBitmapBuf[:sb.TotalInodes]

	dataBitmapBuf := make([]byte, blockfs.BlockSize)
	if _, err := dev.ReadAt(int64(sb.FreeSpaceMapStart)*blockfs.BlockSize, dataBitmapBuf); err != nil {
		return nil, err
	}
	dataSlots := dataBitmapBuf[:dataBlockSlots(sb)]

	img := &Image{
		stream:     stream,
		Device:     dev,
		Superblock: sb,
		Inodes:     store.New(dev, sb.InodeTableStartBlock, int(sb.TotalInodes)),
		Bitmaps:    bitmap.FromSlotBytes(inodeSlots, dataSlots),
		Dirs:       directory.New(dev),
	}
	return img, nil
}

// SaveBitmaps persists both in-memory bitmaps back to their fixed blocks,
// zero-padding unused tail bytes in each block.
func (img *Image) SaveBitmaps() error {
	inodeBlock := make([]byte, blockfs.BlockSize)
	copy(inodeBlock, img.Bitmaps.ToSlotBytes(bitmap.KindInode))
	if err := img.Device.WriteBlock(uint(img.Superblock.InodeBitmapStartBlock), inodeBlock); err != nil {
		return err
	}

	dataBlock := make([]byte, blockfs.BlockSize)
	copy(dataBlock, img.Bitmaps.ToSlotBytes(bitmap.KindBlock))
	return img.Device.WriteBlock(uint(img.Superblock.FreeSpaceMapStart), dataBlock)
}

// Close flushes pending writes and releases the underlying stream, if it
// supports closing.
func (img *Image) Close() error {
	err := img.Device.Flush()
	if closer, ok := img.stream.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
