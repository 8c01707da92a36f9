package dispatch_test

import (
	"testing"

	"github.com/kasmir/blockfs/bitmap"
	"github.com/kasmir/blockfs/dispatch"
	"github.com/kasmir/blockfs/engine"
	"github.com/kasmir/blockfs/testutil"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	img, err := testutil.NewMemoryImage(10)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return dispatch.New(engine.New(img))
}

// Scenario 1: create foo "abc" -> ok, read_from_file foo -> "abc".
func TestCreateAndReadBack(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File foo created.", d.Execute(`create foo`))
	require.Equal(t, "File foo opened in r mode.", d.Execute(`open foo r`))
	require.Contains(t, d.Execute(`write_to_file foo "abc"`), "abc")
	require.Contains(t, d.Execute(`read_from_file foo`), "abc")
}

// Scenario 2: duplicate create fails with AlreadyExists, original content intact.
func TestDuplicateCreateFails(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File foo created.", d.Execute(`create foo`))
	require.Contains(t, d.Execute(`create foo`), "already exists")
}

// Scenario 3: mkdir d; chdir d; create inner -- the tree lists inner under d
// only, not in root. Directory entries carry no parent pointer, so unlike
// move's dst, chdir's name is looked up with no ".." special case (matching
// original_source/FileOperations.py's chdir, which has none either); a
// driver wanting to return to root after a chdir tracks that itself rather
// than asking chdir for it, since the engine is stateless over cwd.
func TestNestedDirectoryIsolation(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "Directory d created.", d.Execute(`mkdir d`))
	require.Equal(t, "Changed directory to d.", d.Execute(`chdir d`))
	require.Equal(t, "File inner created.", d.Execute(`create inner`))
	require.Equal(t, "/\n  d\n    inner\n", d.Execute(`show_memory_map`))
	require.Contains(t, d.Execute(`chdir ..`), "Error")
}

// Scenario 4: create f "hello world"; open f w; write_to_file f 5 "_HEY_"
// -> "hello_HEY_world" (length 15).
func TestWriteAtPosition(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File f created.", d.Execute(`create f`))
	require.Equal(t, "File f opened in w mode.", d.Execute(`open f w`))
	require.Contains(t, d.Execute(`write_to_file f "hello world"`), "hello world")
	status := d.Execute(`write_to_file f 5 "_HEY_"`)
	require.Contains(t, status, "_HEY_")

	readStatus := d.Execute(`read_from_file f`)
	require.Contains(t, readStatus, "hello_HEY_world")
}

// Scenario 5: create big <10241 bytes> -> 3 blocks; truncate_file big 5000
// frees exactly one block.
func TestTruncateFreesExactlyOneBlock(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File big created.", d.Execute(`create big`))
	require.Equal(t, "File big opened in w mode.", d.Execute(`open big w`))

	big := make([]byte, 10241)
	for i := range big {
		big[i] = 'x'
	}
	free := d.Engine.Image.Bitmaps.CountFree(bitmap.KindBlock)
	status := d.Execute(`write_to_file big "` + string(big) + `"`)
	require.Contains(t, status, "big")
	require.Equal(t, free-3, d.Engine.Image.Bitmaps.CountFree(bitmap.KindBlock))

	status = d.Execute(`truncate_file big 5000`)
	require.Equal(t, "Truncated big to max size 5000.", status)
	require.Equal(t, free-2, d.Engine.Image.Bitmaps.CountFree(bitmap.KindBlock))
}

func TestMoveWithinFile(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File f created.", d.Execute(`create f`))
	require.Equal(t, "File f opened in w mode.", d.Execute(`open f w`))
	require.Contains(t, d.Execute(`write_to_file f "abcdef"`), "abcdef")

	require.Equal(t, "Moved 2 bytes in f from 0 to 4.", d.Execute(`move_within_file f 0 2 4`))
	require.Contains(t, d.Execute(`read_from_file f`), "cdefab")
}

func TestCloseUnopenedIsNoop(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "File never-opened closed.", d.Execute(`close never-opened`))
}

func TestInvalidCommand(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, "Invalid or malformed command.", d.Execute(`frobnicate 1 2 3`))
}
