package bitmap_test

import (
	"testing"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/bitmap"
	"github.com/stretchr/testify/require"
)

func TestFindFirstFree(t *testing.T) {
	m := bitmap.New(8, 8)
	idx, err := m.FindFirstFree(bitmap.KindInode)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	m.MarkUsed(bitmap.KindInode, 0)
	idx, err = m.FindFirstFree(bitmap.KindInode)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestFindFirstFreeExhausted(t *testing.T) {
	m := bitmap.New(2, 2)
	m.MarkUsed(bitmap.KindInode, 0)
	m.MarkUsed(bitmap.KindInode, 1)
	_, err := m.FindFirstFree(bitmap.KindInode)
	require.ErrorIs(t, err, blockfs.ErrNoInodes)

	m.MarkUsed(bitmap.KindBlock, 0)
	m.MarkUsed(bitmap.KindBlock, 1)
	_, err = m.FindFirstFree(bitmap.KindBlock)
	require.ErrorIs(t, err, blockfs.ErrNoSpace)
}

func TestCountFreeAndRoundTrip(t *testing.T) {
	m := bitmap.New(4, 4)
	require.Equal(t, 4, m.CountFree(bitmap.KindInode))
	m.MarkUsed(bitmap.KindInode, 2)
	require.Equal(t, 3, m.CountFree(bitmap.KindInode))

	slotBytes := m.ToSlotBytes(bitmap.KindInode)
	require.Equal(t, []byte{0, 0, 1, 0}, slotBytes)

	m2 := bitmap.FromSlotBytes(slotBytes, m.ToSlotBytes(bitmap.KindBlock))
	require.True(t, m2.IsUsed(bitmap.KindInode, 2))
	require.False(t, m2.IsUsed(bitmap.KindInode, 0))
}
