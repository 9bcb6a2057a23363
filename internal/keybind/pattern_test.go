package keybind

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestKeyEventToPattern(t *testing.T) {
	cases := []struct {
		name string
		key  tea.KeyMsg
		want string
		ok   bool
	}{
		{"lowercase", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, "j", true},
		{"uppercase implicit shift", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'J'}}, "J", true},
		{"ctrl letter", tea.KeyMsg{Type: tea.KeyCtrlS}, "C-s", true},
		{"named key", tea.KeyMsg{Type: tea.KeyEnter}, "Enter", true},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, "BackTab", true},
		{"alt letter", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}, Alt: true}, "A-x", true},
		{"ctrl named key", tea.KeyMsg{Type: tea.KeyCtrlUp}, "C-Up", true},
		{"ctrl named key with alt", tea.KeyMsg{Type: tea.KeyCtrlPgDown, Alt: true}, "C-A-PageDown", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := KeyEventToPattern(tc.key)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestPrefixLatchAndResolve(t *testing.T) {
	m := NewDefaultKeybindMap()

	pattern, ok := KeyEventToPattern(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, ok)
	assert.True(t, m.IsPrefixKey(pattern))

	action, ok := m.Resolve("q", Prefix)
	assert.True(t, ok)
	assert.Equal(t, ActionQuit, action)
}

func TestResolveFallsBackToGlobal(t *testing.T) {
	m := NewDefaultKeybindMap()

	action, ok := m.Resolve("q", Diff)
	assert.True(t, ok)
	assert.Equal(t, ActionQuit, action)
}

func TestResolveUnmappedReturnsFalse(t *testing.T) {
	m := NewDefaultKeybindMap()

	_, ok := m.Resolve("Z", DialogConfirm)
	assert.False(t, ok)
}
