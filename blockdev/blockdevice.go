// Package blockdev offers a thin, block-aligned wrapper over a host file,
// adapted from dargueta/disko's drivers/common/blockdevice.go.
package blockdev

import (
	"fmt"
	"io"

	"github.com/kasmir/blockfs"
)

// Device wraps an io.ReadWriteSeeker (normally an *os.File) and offers
// block-aligned reads/writes in addition to raw absolute-offset access.
// Unlike dargueta/disko's BlockDevice, the block size here is always
// blockfs.BlockSize; there's no variable sector size to carry.
type Device struct {
	stream      io.ReadWriteSeeker
	TotalBlocks uint
}

// New wraps an existing stream. totalBlocks is informational and used only
// for bounds checking; it is not authoritative over the stream's actual
// length.
func New(stream io.ReadWriteSeeker, totalBlocks uint) *Device {
	return &Device{stream: stream, TotalBlocks: totalBlocks}
}

func (d *Device) checkBlock(blockID uint) error {
	if blockID >= d.TotalBlocks {
		return fmt.Errorf("invalid block %d: not in range [0, %d)", blockID, d.TotalBlocks)
	}
	return nil
}

func blockOffset(blockID uint) int64 {
	return int64(blockID) * blockfs.BlockSize
}

// ReadBlock reads exactly one blockfs.BlockSize-byte block.
func (d *Device) ReadBlock(blockID uint) ([]byte, error) {
	if err := d.checkBlock(blockID); err != nil {
		return nil, err
	}
	buf := make([]byte, blockfs.BlockSize)
	if _, err := d.ReadAt(blockOffset(blockID), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlock writes exactly one blockfs.BlockSize-byte block.
func (d *Device) WriteBlock(blockID uint, data []byte) error {
	if err := d.checkBlock(blockID); err != nil {
		return err
	}
	if len(data) != blockfs.BlockSize {
		return fmt.Errorf("block write must be exactly %d bytes, got %d", blockfs.BlockSize, len(data))
	}
	return d.WriteAt(blockOffset(blockID), data)
}

// ReadAt fills buf starting at the given absolute byte offset.
func (d *Device) ReadAt(offset int64, buf []byte) (int, error) {
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return 0, blockfs.ErrIOFailed.WrapError(err)
	}
	n, err := io.ReadFull(d.stream, buf)
	if err != nil {
		return n, blockfs.ErrIOFailed.WrapError(err)
	}
	return n, nil
}

// WriteAt writes buf starting at the given absolute byte offset.
func (d *Device) WriteAt(offset int64, buf []byte) error {
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return blockfs.ErrIOFailed.WrapError(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return blockfs.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Flush syncs pending writes if the underlying stream supports it.
func (d *Device) Flush() error {
	type syncer interface {
		Sync() error
	}
	if s, ok := d.stream.(syncer); ok {
		if err := s.Sync(); err != nil {
			return blockfs.ErrIOFailed.WrapError(err)
		}
	}
	return nil
}
