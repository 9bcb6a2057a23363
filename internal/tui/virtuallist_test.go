package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVirtualListMoveUpDown(t *testing.T) {
	v := &VirtualList{Len: 10, Cursor: 5}
	assert.True(t, v.MoveUp())
	assert.Equal(t, 4, v.Cursor)

	v = &VirtualList{Len: 10, Cursor: 0}
	assert.False(t, v.MoveUp())

	v = &VirtualList{Len: 10, Cursor: 9}
	assert.False(t, v.MoveDown())
}

func TestVirtualListGotoTopBottom(t *testing.T) {
	v := &VirtualList{Len: 10, Cursor: 5}
	v.GotoTop()
	assert.Equal(t, 0, v.Cursor)
	v.GotoBottom()
	assert.Equal(t, 9, v.Cursor)
}

func TestVirtualListPaging(t *testing.T) {
	v := &VirtualList{Len: 100, Cursor: 50}
	assert.True(t, v.PageUp(10))
	assert.Equal(t, 40, v.Cursor)
	assert.True(t, v.PageDown(10))
	assert.Equal(t, 50, v.Cursor)

	v.Cursor = 5
	assert.True(t, v.PageUp(10))
	assert.Equal(t, 0, v.Cursor)
}

func TestVirtualListScrollOffset(t *testing.T) {
	v := &VirtualList{Len: 100, Cursor: 50}
	assert.Equal(t, 40, v.ScrollOffset(20))

	v = &VirtualList{Len: 100, Cursor: 5}
	assert.Equal(t, 0, v.ScrollOffset(20))

	v = &VirtualList{Len: 100, Cursor: 95}
	assert.Equal(t, 80, v.ScrollOffset(20))

	v = &VirtualList{Len: 10, Cursor: 5}
	assert.Equal(t, 0, v.ScrollOffset(20))
}

func TestVirtualListClampCursor(t *testing.T) {
	v := &VirtualList{Len: 10, Cursor: 5}
	v.ClampCursor()
	assert.Equal(t, 5, v.Cursor)

	v.Len = 3
	v.ClampCursor()
	assert.Equal(t, 2, v.Cursor)
}

func TestVirtualListEmpty(t *testing.T) {
	v := &VirtualList{Len: 0, Cursor: 0}
	assert.False(t, v.MoveDown())
	assert.False(t, v.MoveUp())
	assert.True(t, v.IsAtTop())
	assert.True(t, v.IsAtBottom())
	assert.Equal(t, 0, v.ScrollOffset(10))
}
