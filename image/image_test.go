package image_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/format"
	"github.com/kasmir/blockfs/image"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestOpenStreamAssemblesFreshImage(t *testing.T) {
	raw, err := format.CreateInMemory(5)
	require.NoError(t, err)

	img, err := image.OpenStream(bytesextra.NewReadWriteSeeker(raw))
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	require.EqualValues(t, blockfs.BlockSize, img.Superblock.BlockSize)
	require.EqualValues(t, blockfs.TotalInodes, img.Superblock.TotalInodes)

	rootIno, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	require.True(t, rootIno.IsDirectory)
	require.True(t, img.Bitmaps.IsUsed(bitmap.KindInode, blockfs.RootDirInodeIndex))

	entries, err := img.Dirs.Load(rootIno.DirectBlocks[0])
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSaveBitmapsRoundTrips(t *testing.T) {
	raw, err := format.CreateInMemory(5)
	require.NoError(t, err)

	img, err := image.OpenStream(bytesextra.NewReadWriteSeeker(raw))
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	img.Bitmaps.MarkUsed(bitmap.KindBlock, 3)
	require.NoError(t, img.SaveBitmaps())

	reopened, err := image.OpenStream(bytesextra.NewReadWriteSeeker(raw))
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	require.True(t, reopened.Bitmaps.IsUsed(bitmap.KindBlock, 3))
}
