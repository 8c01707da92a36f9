package blockfs

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
)

// DirentKind distinguishes a directory entry's target without needing a
// second lookup; it is a cache, never authoritative (the inode's
// IsDirectory flag is). Supplements original_source/DataStrucures.py's
// separate DirectoryEntry/FileEntry classes, which carried a
// directory_size/file_size placeholder that was likewise never load-bearing.
type DirentKind uint8

const (
	KindFile DirentKind = iota
	KindDirectory
)

// Dirent is one (name, inode_number) mapping stored inside a directory's
// first direct block.
type Dirent struct {
	Name        string
	InodeNumber uint32
	Kind        DirentKind
	Size        uint64
}

// MarshalDirents serializes an ordered entry list into a BlockSize-byte
// block, zero-padding the unused tail so a later short read never observes
// stale bytes past the new end. Returns ErrDirectoryFull if the list
// doesn't fit.
func MarshalDirents(entries []Dirent) ([]byte, error) {
	var body bytes.Buffer
	if err := binary.Write(&body, binary.LittleEndian, uint32(len(entries))); err != nil {
		return nil, err
	}
	for _, e := range entries {
		nameBytes := []byte(e.Name)
		if err := binary.Write(&body, binary.LittleEndian, uint32(len(nameBytes))); err != nil {
			return nil, err
		}
		if _, err := body.Write(nameBytes); err != nil {
			return nil, err
		}
		if err := binary.Write(&body, binary.LittleEndian, e.InodeNumber); err != nil {
			return nil, err
		}
		if err := binary.Write(&body, binary.LittleEndian, uint8(e.Kind)); err != nil {
			return nil, err
		}
		if err := binary.Write(&body, binary.LittleEndian, e.Size); err != nil {
			return nil, err
		}
	}

	if body.Len() > BlockSize {
		return nil, ErrDirectoryFull.WithMessage("serialized entry list exceeds one block")
	}

	block := make([]byte, BlockSize)
	writer := bytewriter.New(block)
	if _, err := writer.Write(body.Bytes()); err != nil {
		return nil, err
	}
	return block, nil
}

// UnmarshalDirents reverses MarshalDirents. An all-zero block (a freshly
// formatted directory) deserializes to an empty list.
func UnmarshalDirents(block []byte) ([]Dirent, error) {
	r := bytes.NewReader(block)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrCorruptDirectory.WrapError(err)
	}
	if count == 0 {
		return nil, nil
	}
	// A corrupt or never-initialized block can decode to a huge bogus count;
	// bound it so we fail fast instead of allocating wildly.
	if count > BlockSize {
		return nil, ErrCorruptDirectory.WithMessage("implausible entry count")
	}

	entries := make([]Dirent, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, ErrCorruptDirectory.WrapError(err)
		}
		if nameLen > BlockSize {
			return nil, ErrCorruptDirectory.WithMessage("implausible name length")
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, ErrCorruptDirectory.WrapError(err)
		}

		var inodeNum uint32
		var kind uint8
		var size uint64
		if err := binary.Read(r, binary.LittleEndian, &inodeNum); err != nil {
			return nil, ErrCorruptDirectory.WrapError(err)
		}
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, ErrCorruptDirectory.WrapError(err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, ErrCorruptDirectory.WrapError(err)
		}

		entries = append(entries, Dirent{
			Name:        string(nameBytes),
			InodeNumber: inodeNum,
			Kind:        DirentKind(kind),
			Size:        size,
		})
	}
	return entries, nil
}
