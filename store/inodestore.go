// Package store implements the Inode Store: fixed-size inode records at
// deterministic offsets in the inode table, grounded on dargueta/disko's
// drivers/unixv1/inode.go InodeManager (a thin struct over a block stream).
package store

import (
	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/blockdev"
)

// InodeStore reads and writes fixed 256-byte inode records from the inode
// table region of the image.
type InodeStore struct {
	dev         *blockdev.Device
	tableStart  uint32 // block number
	totalSlots  int
}

// New builds an InodeStore over dev, with the inode table starting at
// tableStart (blocks) and holding totalSlots 256-byte records.
func New(dev *blockdev.Device, tableStart uint32, totalSlots int) *InodeStore {
	return &InodeStore{dev: dev, tableStart: tableStart, totalSlots: totalSlots}
}

func (s *InodeStore) offset(i int) int64 {
	return int64(s.tableStart)*blockfs.BlockSize + int64(i)*blockfs.InodeRecordSize
}

func (s *InodeStore) checkSlot(i int) error {
	if i < 0 || i >= s.totalSlots {
		return blockfs.ErrNotFound.WithMessage("inode slot out of range")
	}
	return nil
}

// Read deserializes the inode stored at slot i. A freshly zeroed slot
// deserializes to the zero-value Inode.
func (s *InodeStore) Read(i int) (blockfs.Inode, error) {
	if err := s.checkSlot(i); err != nil {
		return blockfs.Inode{}, err
	}
	buf := make([]byte, blockfs.InodeRecordSize)
	if _, err := s.dev.ReadAt(s.offset(i), buf); err != nil {
		return blockfs.Inode{}, err
	}
	return blockfs.UnmarshalInode(buf), nil
}

// Write serializes and persists inode into slot i.
func (s *InodeStore) Write(i int, inode blockfs.Inode) error {
	if err := s.checkSlot(i); err != nil {
		return err
	}
	return s.dev.WriteAt(s.offset(i), inode.MarshalBinary())
}

// Zero resets slot i back to a default, all-zero inode (used when rolling
// back a failed allocation or releasing a deleted file's slot).
func (s *InodeStore) Zero(i int) error {
	return s.Write(i, blockfs.Inode{})
}
