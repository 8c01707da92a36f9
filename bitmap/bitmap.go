// Package bitmap implements the engine's Bitmap Manager: find-first-free,
// mark-used, and mark-free over the inode bitmap and the data-block bitmap,
// adapted from dargueta/disko's drivers/common/allocatormap.go (itself built
// on github.com/boljen/go-bitmap).
package bitmap

import (
	"github.com/boljen/go-bitmap"
	"github.com/kasmir/blockfs"
)

// Kind selects which of the two bitmaps an operation targets.
type Kind int

const (
	KindInode Kind = iota
	KindBlock
)

// Manager holds both bitmaps in memory, packed one bit per slot via
// github.com/boljen/go-bitmap for efficient FindFirstFree scans. Callers are
// responsible for loading it from the image before use and persisting it
// back afterward; Manager itself does no I/O, matching dargueta/disko's
// Allocator which operates purely on an in-memory bitmap.Bitmap.
//
// On disk each bitmap is one full byte per slot, matching
// original_source/DataStrucures.py's plain bytearray rather than this
// package's packed bits, so loading/persisting goes through
// ToSlotBytes/FromSlotBytes.
type Manager struct {
	inodes      bitmap.Bitmap
	blocks      bitmap.Bitmap
	totalInodes int
	totalBlocks int
}

// New creates a Manager sized for totalInodes inode slots and totalBlocks
// data-block slots.
func New(totalInodes, totalBlocks int) *Manager {
	return &Manager{
		inodes:      bitmap.New(totalInodes),
		blocks:      bitmap.New(totalBlocks),
		totalInodes: totalInodes,
		totalBlocks: totalBlocks,
	}
}

// FromSlotBytes builds a Manager from the image's one-byte-per-slot bitmaps.
func FromSlotBytes(inodeSlotBytes, blockSlotBytes []byte) *Manager {
	m := New(len(inodeSlotBytes), len(blockSlotBytes))
	for i, b := range inodeSlotBytes {
		if b != 0 {
			m.inodes.Set(i, true)
		}
	}
	for i, b := range blockSlotBytes {
		if b != 0 {
			m.blocks.Set(i, true)
		}
	}
	return m
}

func (m *Manager) bitmapFor(kind Kind) bitmap.Bitmap {
	if kind == KindInode {
		return m.inodes
	}
	return m.blocks
}

func (m *Manager) totalFor(kind Kind) int {
	if kind == KindInode {
		return m.totalInodes
	}
	return m.totalBlocks
}

// ToSlotBytes expands the packed in-memory bitmap back into the image's
// required one-byte-per-slot on-disk representation.
func (m *Manager) ToSlotBytes(kind Kind) []byte {
	bm := m.bitmapFor(kind)
	total := m.totalFor(kind)
	out := make([]byte, total)
	for i := 0; i < total; i++ {
		if bm.Get(i) {
			out[i] = 1
		}
	}
	return out
}

// FindFirstFree returns the lowest-indexed free bit, or ErrNoInodes /
// ErrNoSpace if none remain.
func (m *Manager) FindFirstFree(kind Kind) (int, error) {
	bm := m.bitmapFor(kind)
	total := m.totalFor(kind)
	for i := 0; i < total; i++ {
		if !bm.Get(i) {
			return i, nil
		}
	}
	if kind == KindInode {
		return 0, blockfs.ErrNoInodes
	}
	return 0, blockfs.ErrNoSpace
}

// CountFree returns how many slots are currently unset.
func (m *Manager) CountFree(kind Kind) int {
	bm := m.bitmapFor(kind)
	total := m.totalFor(kind)
	free := 0
	for i := 0; i < total; i++ {
		if !bm.Get(i) {
			free++
		}
	}
	return free
}

// MarkUsed sets a bit to 1 (used).
func (m *Manager) MarkUsed(kind Kind, index int) {
	m.bitmapFor(kind).Set(index, true)
}

// MarkFree sets a bit to 0 (free).
func (m *Manager) MarkFree(kind Kind, index int) {
	m.bitmapFor(kind).Set(index, false)
}

// IsUsed reports whether a bit is currently set.
func (m *Manager) IsUsed(kind Kind, index int) bool {
	return m.bitmapFor(kind).Get(index)
}
