package fileio_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/alloc"
	"github.com/kasmir/blockfs/fileio"
	"github.com/kasmir/blockfs/testutil"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fileio.Engine, int) {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	a := alloc.New(img)
	rootInode, err := img.Inodes.Read(blockfs.RootDirInodeIndex)
	require.NoError(t, err)
	slot, err := a.CreateFile(rootInode.DirectBlocks[0], "f", nil)
	require.NoError(t, err)

	return fileio.New(img), slot
}

func TestWriteAtPadsGap(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 5, []byte("x"))
	require.NoError(t, err)

	content, err := e.ReadRange(slot, -1, -1)
	require.NoError(t, err)
	require.Equal(t, "     x", string(content))
}

func TestWriteAtOverwritesWithinRange(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("hello world"))
	require.NoError(t, err)
	_, err = e.WriteAt(slot, 5, []byte("_HEY_"))
	require.NoError(t, err)

	content, err := e.ReadRange(slot, -1, -1)
	require.NoError(t, err)
	require.Equal(t, "hello_HEY_world", string(content))
}

func TestReadRangeClamps(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("abcdef"))
	require.NoError(t, err)

	content, err := e.ReadRange(slot, 0, 1000)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(content))

	empty, err := e.ReadRange(slot, 6, -1)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMoveWithinRoundTrip(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("abcdef"))
	require.NoError(t, err)

	_, err = e.MoveWithin(slot, 0, 2, 4)
	require.NoError(t, err)
	content, err := e.ReadRange(slot, -1, -1)
	require.NoError(t, err)
	require.Equal(t, "cdefab", string(content))

	_, err = e.MoveWithin(slot, 4, 2, 0)
	require.NoError(t, err)
	content, err = e.ReadRange(slot, -1, -1)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(content))
}

func TestMoveWithinInvalidRange(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("abc"))
	require.NoError(t, err)

	_, err = e.MoveWithin(slot, 0, 10, 0)
	require.ErrorIs(t, err, blockfs.ErrInvalidRange)
}

func TestTruncateShrinkFreesBlocks(t *testing.T) {
	e, slot := setup(t)
	big := make([]byte, blockfs.BlockSize*3-100)
	_, err := e.WriteAt(slot, 0, big)
	require.NoError(t, err)

	ino, err := e.Truncate(slot, 5000)
	require.NoError(t, err)
	require.EqualValues(t, 5000, ino.FileSize)
	require.Equal(t, 2, ino.BlocksInUse())
}

func TestTruncateGrowPadsSpaces(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("abc"))
	require.NoError(t, err)

	_, err = e.Truncate(slot, 6)
	require.NoError(t, err)
	content, err := e.ReadRange(slot, -1, -1)
	require.NoError(t, err)
	require.Equal(t, "abc   ", string(content))
}

func TestTruncateNoopWhenEqual(t *testing.T) {
	e, slot := setup(t)
	_, err := e.WriteAt(slot, 0, []byte("abc"))
	require.NoError(t, err)

	ino, err := e.Truncate(slot, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, ino.FileSize)
}
