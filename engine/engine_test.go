package engine_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/engine"
	"github.com/kasmir/blockfs/openfiles"
	"github.com/kasmir/blockfs/testutil"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *engine.Engine {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return engine.New(img)
}

func TestCreateMkdirChdirMove(t *testing.T) {
	e := newEngine(t)
	root := blockfs.RootDirInodeIndex

	require.NoError(t, e.Mkdir(root, "d"))
	require.NoError(t, e.CreateFile(root, "f", []byte("hi")))

	dIno, err := e.Chdir(root, "d")
	require.NoError(t, err)
	require.NotEqual(t, root, dIno)

	require.NoError(t, e.Move(root, "f", "d"))

	lines, err := e.ShowMemoryMap()
	require.NoError(t, err)

	var found bool
	for _, l := range lines {
		if l.Name == "f" && l.Kind == blockfs.KindFile {
			found = true
		}
	}
	require.True(t, found, "moved file should appear in the tree under d")
}

func TestOpenWriteReadCloseRoundTrip(t *testing.T) {
	e := newEngine(t)
	root := blockfs.RootDirInodeIndex
	table := openfiles.New()

	require.NoError(t, e.CreateFile(root, "f", nil))
	require.NoError(t, e.Open(table, root, "f", openfiles.ModeWrite))
	require.NoError(t, e.WriteToFile(table, "f", 0, []byte("hello")))

	out, err := e.ReadFromFile(table, "f", -1, -1)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out))

	require.NoError(t, e.MoveWithinFile(table, "f", 0, 1, 4))
	out, err = e.ReadFromFile(table, "f", -1, -1)
	require.NoError(t, err)
	require.Equal(t, "elloh", string(out))

	require.NoError(t, e.TruncateFile(table, "f", 3))
	out, err = e.ReadFromFile(table, "f", -1, -1)
	require.NoError(t, err)
	require.Equal(t, "ell", string(out))

	e.Close(table, "f")
	_, ok := table.Get("f")
	require.False(t, ok)
}

func TestOperationsOnMissingFileReturnNotFound(t *testing.T) {
	e := newEngine(t)
	table := openfiles.New()

	require.ErrorIs(t, e.Open(table, blockfs.RootDirInodeIndex, "missing", openfiles.ModeRead), blockfs.ErrNotFound)
	require.ErrorIs(t, e.WriteToFile(table, "missing", 0, []byte("x")), blockfs.ErrNotFound)
}

func TestChdirIntoFileFails(t *testing.T) {
	e := newEngine(t)
	root := blockfs.RootDirInodeIndex
	require.NoError(t, e.CreateFile(root, "f", nil))

	_, err := e.Chdir(root, "f")
	require.ErrorIs(t, err, blockfs.ErrNotADirectory)
}
