package format_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/format"
	"github.com/stretchr/testify/require"
)

func TestCreateInMemoryLayout(t *testing.T) {
	img, err := format.CreateInMemory(10)
	require.NoError(t, err)

	sb := blockfs.UnmarshalSuperblock(img[0:blockfs.BlockSize])
	require.EqualValues(t, blockfs.BlockSize, sb.BlockSize)
	require.EqualValues(t, blockfs.TotalInodes, sb.TotalInodes)
	require.EqualValues(t, blockfs.RootDirInodeIndex, sb.RootDirInodeIndex)

	inodeBitmapOff := int64(sb.InodeBitmapStartBlock) * blockfs.BlockSize
	require.Equal(t, byte(1), img[inodeBitmapOff])

	inodeOff := int64(sb.InodeTableStartBlock) * blockfs.BlockSize
	rootInode := blockfs.UnmarshalInode(img[inodeOff : inodeOff+blockfs.InodeRecordSize])
	require.True(t, rootInode.IsDirectory)
	require.EqualValues(t, blockfs.RootDirDataBlock, rootInode.DirectBlocks[0])

	dataBitmapOff := int64(sb.FreeSpaceMapStart) * blockfs.BlockSize
	rootIdx := blockfs.DataBlockIndex(blockfs.RootDirDataBlock)
	require.Equal(t, byte(1), img[dataBitmapOff+int64(rootIdx)])

	rootDirOff := int64(blockfs.RootDirDataBlock) * blockfs.BlockSize
	entries, err := blockfs.UnmarshalDirents(img[rootDirOff : rootDirOff+blockfs.BlockSize])
	require.NoError(t, err)
	require.Empty(t, entries)
}
