package keyedindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInventory struct {
	AppId int
	Name  string
}

func newTestIndex() *Index[int, fakeInventory] {
	return New(func(v fakeInventory) int { return v.AppId })
}

func TestInsertGet(t *testing.T) {
	idx := newTestIndex()

	err := idx.Insert(fakeInventory{AppId: 440, Name: "tf2"})
	require.NoError(t, err)
	err = idx.Insert(fakeInventory{AppId: 570, Name: "dota"})
	require.NoError(t, err)

	v, ok := idx.Get(440)
	require.True(t, ok)
	require.Equal(t, "tf2", v.Name)

	_, ok = idx.Get(620)
	require.False(t, ok)
	require.True(t, idx.Contains(570))
	require.Equal(t, 2, idx.Len())
}

func TestInsertDuplicateLeavesIndexUnchanged(t *testing.T) {
	idx := newTestIndex()

	require.NoError(t, idx.Insert(fakeInventory{AppId: 440, Name: "tf2"}))

	err := idx.Insert(fakeInventory{AppId: 440, Name: "impostor"})
	var dup ErrDuplicateKey[int]
	require.True(t, errors.As(err, &dup))
	require.Equal(t, 440, dup.Key)

	require.Equal(t, 1, idx.Len())
	v, ok := idx.Get(440)
	require.True(t, ok)
	require.Equal(t, "tf2", v.Name)
}

func TestValuesPreserveInsertionOrder(t *testing.T) {
	idx := newTestIndex()
	for _, id := range []int{570, 440, 620, 520} {
		require.NoError(t, idx.Insert(fakeInventory{AppId: id}))
	}

	var got []int
	for _, v := range idx.Values() {
		got = append(got, v.AppId)
	}
	require.Equal(t, []int{570, 440, 620, 520}, got)
}

func TestRemove(t *testing.T) {
	idx := newTestIndex()
	for _, id := range []int{570, 440, 620} {
		require.NoError(t, idx.Insert(fakeInventory{AppId: id}))
	}

	removed, ok := idx.Remove(440)
	require.True(t, ok)
	require.Equal(t, 440, removed.AppId)
	require.False(t, idx.Contains(440))
	require.Equal(t, 2, idx.Len())

	var got []int
	for _, v := range idx.Values() {
		got = append(got, v.AppId)
	}
	require.Equal(t, []int{570, 620}, got)

	_, ok = idx.Remove(440)
	require.False(t, ok)

	// reinsert after removal must succeed
	require.NoError(t, idx.Insert(fakeInventory{AppId: 440}))
	v, ok := idx.Get(620)
	require.True(t, ok)
	require.Equal(t, 620, v.AppId)
}
