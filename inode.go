package blockfs

import "time"

// UnallocatedBlock marks a direct_blocks slot that has no data block behind
// it yet.
const UnallocatedBlock uint32 = 0

// Inode is the fixed 256-byte-on-disk metadata record identified by its slot
// index (0..127) in the inode table. Field set mirrors
// original_source/DataStrucures.py's Inode class; serialization uses a fixed
// width, deterministic record instead of a pickled object graph.
type Inode struct {
	FileSize         uint64
	IsDirectory      bool
	CreationTime     time.Time
	ModificationTime time.Time
	DirectBlocks     [DirectBlockCount]uint32
}

// IsAllocatedBlock reports whether block index i of this inode currently points
// at a real data block.
func (ino *Inode) IsAllocatedBlock(i int) bool {
	return ino.DirectBlocks[i] != UnallocatedBlock
}

// BlocksInUse returns the number of direct blocks currently allocated.
func (ino *Inode) BlocksInUse() int {
	n := 0
	for _, b := range ino.DirectBlocks {
		if b != UnallocatedBlock {
			n++
		}
	}
	return n
}

// NeededBlocks returns ceil(size / BlockSize), the number of direct blocks a
// file of the given size requires.
func NeededBlocks(size int) int {
	return (size + BlockSize - 1) / BlockSize
}

// record layout, 256 bytes total:
//
//	0:8    file size (uint64 LE)
//	8:9    is_directory (0/1)
//	9:17   creation time, unix nanos (int64 LE)
//	17:25  modification time, unix nanos (int64 LE)
//	25:65  ten direct block numbers (uint32 LE each)
//	65:256 zero padding
const (
	inodeOffFileSize = 0
	inodeOffIsDir    = 8
	inodeOffCreated  = 9
	inodeOffModified = 17
	inodeOffBlocks   = 25
)

// MarshalBinary serializes the inode into a 256-byte slot, matching
// drivers/unixv1/inode.go's fixed-width RawInode technique.
func (ino Inode) MarshalBinary() []byte {
	buf := make([]byte, InodeRecordSize)
	putUint64(buf[inodeOffFileSize:], ino.FileSize)
	if ino.IsDirectory {
		buf[inodeOffIsDir] = 1
	}
	if !ino.CreationTime.IsZero() {
		putInt64(buf[inodeOffCreated:], ino.CreationTime.UnixNano())
	}
	if !ino.ModificationTime.IsZero() {
		putInt64(buf[inodeOffModified:], ino.ModificationTime.UnixNano())
	}
	for i, b := range ino.DirectBlocks {
		putUint32(buf[inodeOffBlocks+i*4:], b)
	}
	return buf
}

// UnmarshalInode deserializes a 256-byte slot back into an Inode. A freshly
// zeroed slot deserializes to the zero-value Inode (file_size 0, not a
// directory, zero times, no allocated blocks).
func UnmarshalInode(slot []byte) Inode {
	var ino Inode
	ino.FileSize = getUint64(slot[inodeOffFileSize:])
	ino.IsDirectory = slot[inodeOffIsDir] != 0

	createdNanos := getInt64(slot[inodeOffCreated:])
	modifiedNanos := getInt64(slot[inodeOffModified:])
	if createdNanos != 0 {
		ino.CreationTime = time.Unix(0, createdNanos).UTC()
	}
	if modifiedNanos != 0 {
		ino.ModificationTime = time.Unix(0, modifiedNanos).UTC()
	}

	for i := 0; i < DirectBlockCount; i++ {
		ino.DirectBlocks[i] = getUint32(slot[inodeOffBlocks+i*4:])
	}
	return ino
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putInt64(b []byte, v int64) {
	putUint64(b, uint64(v))
}

func getInt64(b []byte) int64 {
	return int64(getUint64(b))
}
