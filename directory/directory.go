// Package directory implements the Directory Service: maintains a
// directory's name->inode mapping serialized into its first direct block,
// grounded on dargueta/disko's drivers/common/basedriver dirent handling and
// original_source/FileOperations.py's createFile/mkdir/deleteFile/move
// read-modify-write-the-entry-list pattern.
package directory

import (
	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/blockdev"
)

// Service loads and stores directory entry lists through a block device,
// given the data block number holding a directory's contents (always
// inode.DirectBlocks[0] for a directory inode).
type Service struct {
	dev *blockdev.Device
}

// New builds a directory Service over dev.
func New(dev *blockdev.Device) *Service {
	return &Service{dev: dev}
}

// Load reads and deserializes the entry list stored in block dataBlock.
func (s *Service) Load(dataBlock uint32) ([]blockfs.Dirent, error) {
	block, err := s.dev.ReadBlock(uint(dataBlock))
	if err != nil {
		return nil, err
	}
	return blockfs.UnmarshalDirents(block)
}

// Store serializes entries and overwrites dataBlock completely, zero-padding
// the unused tail.
func (s *Service) Store(dataBlock uint32, entries []blockfs.Dirent) error {
	block, err := blockfs.MarshalDirents(entries)
	if err != nil {
		return err
	}
	return s.dev.WriteBlock(uint(dataBlock), block)
}

// Lookup finds the inode number for name within dataBlock's entry list.
func (s *Service) Lookup(dataBlock uint32, name string) (uint32, error) {
	entries, err := s.Load(dataBlock)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.InodeNumber, nil
		}
	}
	return 0, blockfs.ErrNotFound
}

// Add appends a new entry, failing with ErrAlreadyExists if name is already
// present.
func (s *Service) Add(dataBlock uint32, entry blockfs.Dirent) error {
	entries, err := s.Load(dataBlock)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name == entry.Name {
			return blockfs.ErrAlreadyExists
		}
	}
	entries = append(entries, entry)
	return s.Store(dataBlock, entries)
}

// Remove deletes the first entry named name, failing with ErrNotFound if
// absent.
func (s *Service) Remove(dataBlock uint32, name string) error {
	entries, err := s.Load(dataBlock)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Name == name {
			entries = append(entries[:i], entries[i+1:]...)
			return s.Store(dataBlock, entries)
		}
	}
	return blockfs.ErrNotFound
}

// UpdateSize rewrites the cached size hint for name, used by the File I/O
// Engine after a write/truncate so show_memory_map and report reflect the
// new length without re-deriving it from the inode on every render. Never
// consulted for correctness; the inode's file_size is always authoritative.
func (s *Service) UpdateSize(dataBlock uint32, name string, size uint64) error {
	entries, err := s.Load(dataBlock)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Size = size
			return s.Store(dataBlock, entries)
		}
	}
	return blockfs.ErrNotFound
}
