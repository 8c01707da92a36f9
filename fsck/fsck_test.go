package fsck_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/alloc"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/fsck"
	"github.com/kasmir/blockfs/testutil"
	"github.com/stretchr/testify/require"
)

func TestFreshImageIsConsistent(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	require.NoError(t, fsck.Check(img))
}

func TestImageWithFilesIsConsistent(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	a := alloc.New(img)
	rootInode, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	_, err = a.CreateFile(rootInode.DirectBlocks[0], "a", []byte("hello"))
	require.NoError(t, err)
	_, err = a.CreateDirectory(rootInode.DirectBlocks[0], "d")
	require.NoError(t, err)

	require.NoError(t, fsck.Check(img))
}

func TestFsckCatchesSpuriousInodeBit(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	img.Bitmaps.MarkUsed(bitmap.KindInode, 5)
	require.NoError(t, img.SaveBitmaps())

	err = fsck.Check(img)
	require.Error(t, err)
}
