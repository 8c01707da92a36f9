package alloc_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/alloc"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/testutil"
	"github.com/stretchr/testify/require"
)

func TestCreateFileAndDelete(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	a := alloc.New(img)
	rootInode, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	rootBlock := rootInode.DirectBlocks[0]

	before := img.Bitmaps.CountFree(bitmap.KindBlock)
	slot, err := a.CreateFile(rootBlock, "foo", []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, before-1, img.Bitmaps.CountFree(bitmap.KindBlock))

	num, err := img.Dirs.Lookup(rootBlock, "foo")
	require.NoError(t, err)
	require.EqualValues(t, slot, num)

	_, err = a.CreateFile(rootBlock, "foo", []byte("xyz"))
	require.ErrorIs(t, err, blockfs.ErrAlreadyExists)

	require.NoError(t, a.DeleteFile(rootBlock, "foo"))
	require.Equal(t, before, img.Bitmaps.CountFree(bitmap.KindBlock))
	_, err = img.Dirs.Lookup(rootBlock, "foo")
	require.ErrorIs(t, err, blockfs.ErrNotFound)
}

func TestCreateFileTooLarge(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	a := alloc.New(img)
	rootInode, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	rootBlock := rootInode.DirectBlocks[0]

	before := img.Bitmaps.CountFree(bitmap.KindBlock)
	content := make([]byte, blockfs.MaxFileSize+1)
	_, err = a.CreateFile(rootBlock, "huge", content)
	require.ErrorIs(t, err, blockfs.ErrFileTooLarge)
	require.Equal(t, before, img.Bitmaps.CountFree(bitmap.KindBlock))
}

func TestCreateDirectory(t *testing.T) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	a := alloc.New(img)
	rootInode, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	rootBlock := rootInode.DirectBlocks[0]

	slot, err := a.CreateDirectory(rootBlock, "d")
	require.NoError(t, err)

	dirIno, err := img.Inodes.Read(slot)
	require.NoError(t, err)
	require.True(t, dirIno.IsDirectory)

	entries, err := img.Dirs.Load(dirIno.DirectBlocks[0])
	require.NoError(t, err)
	require.Empty(t, entries)
}
