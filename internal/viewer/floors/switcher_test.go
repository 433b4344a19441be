package floors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-viewer/internal/viewer/scene"
)

var order = []string{"Floor_01", "Floor_02", "Floor_03"}

func folder(name string) string {
	return "floor" + strings.TrimLeft(strings.TrimPrefix(name, "Floor_"), "0")
}

func newSwitcher(names ...string) (*Switcher, map[string]*scene.Node) {
	nodes := make(map[string]*scene.Node)
	for _, name := range names {
		nodes[name] = scene.NewGroup(name)
	}
	return New(order, nodes, folder), nodes
}

func TestInitialFloorIsFirst(t *testing.T) {
	s, nodes := newSwitcher(order...)
	assert.Equal(t, "Floor_01", s.Current())
	assert.True(t, nodes["Floor_01"].Visible)
	assert.False(t, nodes["Floor_02"].Visible)
	assert.False(t, nodes["Floor_03"].Visible)
}

func TestSelectKeepsExactlyOneVisible(t *testing.T) {
	s, nodes := newSwitcher(order...)
	for i, name := range order {
		require.NoError(t, s.SelectNumber(i+1))
		assert.Equal(t, 1, s.VisibleCount())
		assert.True(t, nodes[name].Visible)
		assert.Equal(t, name, s.Current())
	}
}

func TestSelectUnknownIsNoop(t *testing.T) {
	s, nodes := newSwitcher(order...)
	require.NoError(t, s.Select("Floor_02"))

	assert.ErrorIs(t, s.Select("Floor_09"), ErrUnknownFloor)
	assert.ErrorIs(t, s.SelectNumber(4), ErrUnknownFloor)
	assert.ErrorIs(t, s.SelectNumber(0), ErrUnknownFloor)

	assert.Equal(t, "Floor_02", s.Current())
	assert.True(t, nodes["Floor_02"].Visible)
	assert.Equal(t, 1, s.VisibleCount())
}

func TestSelectMissingFloorNode(t *testing.T) {
	s, _ := newSwitcher("Floor_01", "Floor_02")

	assert.ErrorIs(t, s.SelectNumber(3), ErrUnknownFloor)
	assert.Equal(t, "Floor_01", s.Current())

	floors := s.Floors()
	require.Len(t, floors, 3)
	assert.Equal(t, "floor3", floors[2].Folder)
	assert.False(t, floors[2].Visible)
	assert.True(t, floors[0].Visible)
}
