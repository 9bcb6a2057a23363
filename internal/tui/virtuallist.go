package tui

// VirtualList is a cursor over a variable-length list, shared by the
// sidebar, diff, git-status, and todo views so each doesn't reimplement
// bounds-saturating navigation.
type VirtualList struct {
	Len    int
	Cursor int
}

func (v *VirtualList) clampLen() int {
	if v.Len <= 0 {
		return 0
	}
	return v.Len - 1
}

// MoveUp moves the cursor up by one, saturating at 0. Returns whether it moved.
func (v *VirtualList) MoveUp() bool {
	if v.Cursor > 0 {
		v.Cursor--
		return true
	}
	return false
}

// MoveDown moves the cursor down by one, saturating at Len-1.
func (v *VirtualList) MoveDown() bool {
	max := v.clampLen()
	if v.Cursor < max {
		v.Cursor++
		return true
	}
	return false
}

func (v *VirtualList) GotoTop() { v.Cursor = 0 }

func (v *VirtualList) GotoBottom() { v.Cursor = v.clampLen() }

// PageUp moves the cursor up by n, saturating at 0.
func (v *VirtualList) PageUp(n int) bool {
	if v.Cursor <= 0 {
		return false
	}
	v.Cursor -= n
	if v.Cursor < 0 {
		v.Cursor = 0
	}
	return true
}

// PageDown moves the cursor down by n, saturating at Len-1.
func (v *VirtualList) PageDown(n int) bool {
	max := v.clampLen()
	if v.Cursor >= max {
		return false
	}
	v.Cursor += n
	if v.Cursor > max {
		v.Cursor = max
	}
	return true
}

func (v *VirtualList) IsAtTop() bool { return v.Cursor == 0 }

func (v *VirtualList) IsAtBottom() bool { return v.Cursor >= v.clampLen() }

// ScrollOffset returns the index of the first visible item for a viewport
// of the given height: no scroll if everything fits, pinned to 0 near the
// top, pinned to len-viewport near the bottom, else centered on the cursor.
func (v *VirtualList) ScrollOffset(viewportHeight int) int {
	if viewportHeight <= 0 || v.Len <= viewportHeight {
		return 0
	}
	half := viewportHeight / 2
	if v.Cursor < half {
		return 0
	}
	if v.Cursor >= v.Len-half {
		return v.Len - viewportHeight
	}
	return v.Cursor - half
}

// ClampCursor re-clamps the cursor after Len changes out from under it.
func (v *VirtualList) ClampCursor() {
	max := v.clampLen()
	if v.Cursor > max {
		v.Cursor = max
	}
}
