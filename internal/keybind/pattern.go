// Package keybind converts bubbletea key events to canonical pattern
// strings and resolves them to actions through a context-sensitive,
// prefix-latching keybind map, per spec.md §4.7.
package keybind

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// namedKeys maps bubbletea's tea.KeyType to the canonical named-key token
// used in pattern strings.
var namedKeys = map[tea.KeyType]string{
	tea.KeyEnter:     "Enter",
	tea.KeyTab:       "Tab",
	tea.KeyShiftTab:  "BackTab",
	tea.KeyEsc:       "Esc",
	tea.KeyBackspace: "Backspace",
	tea.KeyDelete:    "Delete",
	tea.KeyInsert:    "Insert",
	tea.KeyHome:      "Home",
	tea.KeyEnd:       "End",
	tea.KeyPgUp:      "PageUp",
	tea.KeyPgDown:    "PageDown",
	tea.KeyUp:        "Up",
	tea.KeyDown:      "Down",
	tea.KeyLeft:      "Left",
	tea.KeyRight:     "Right",
	tea.KeySpace:     "Space",
	tea.KeyF1:        "F1",
	tea.KeyF2:        "F2",
	tea.KeyF3:        "F3",
	tea.KeyF4:        "F4",
	tea.KeyF5:        "F5",
	tea.KeyF6:        "F6",
	tea.KeyF7:        "F7",
	tea.KeyF8:        "F8",
	tea.KeyF9:        "F9",
	tea.KeyF10:       "F10",
	tea.KeyF11:       "F11",
	tea.KeyF12:       "F12",
}

// unsupported keys resolve to no pattern and are discarded (caps lock,
// media keys, raw modifier events and the like have no bubbletea KeyType in
// the first place, so this set only needs to cover ctrl-letter collisions
// that bubbletea reports as dedicated types rather than KeyRunes+Ctrl).
var ctrlLetterKeys = map[tea.KeyType]byte{
	tea.KeyCtrlA: 'a', tea.KeyCtrlB: 'b', tea.KeyCtrlC: 'c', tea.KeyCtrlD: 'd',
	tea.KeyCtrlE: 'e', tea.KeyCtrlF: 'f', tea.KeyCtrlG: 'g', tea.KeyCtrlH: 'h',
	tea.KeyCtrlJ: 'j', tea.KeyCtrlK: 'k', tea.KeyCtrlL: 'l', tea.KeyCtrlN: 'n',
	tea.KeyCtrlO: 'o', tea.KeyCtrlP: 'p', tea.KeyCtrlQ: 'q', tea.KeyCtrlR: 'r',
	tea.KeyCtrlS: 's', tea.KeyCtrlT: 't', tea.KeyCtrlU: 'u', tea.KeyCtrlV: 'v',
	tea.KeyCtrlW: 'w', tea.KeyCtrlX: 'x', tea.KeyCtrlY: 'y', tea.KeyCtrlZ: 'z',
}

// ctrlNamedKeys covers the dedicated tea.KeyType constants bubbletea emits
// for Ctrl held with a named (non-letter) key, so the pattern language can
// express bindings like "C-Up" that ctrlLetterKeys and the plain namedKeys
// branch below can't reach.
var ctrlNamedKeys = map[tea.KeyType]string{
	tea.KeyCtrlUp:     "Up",
	tea.KeyCtrlDown:   "Down",
	tea.KeyCtrlLeft:   "Left",
	tea.KeyCtrlRight:  "Right",
	tea.KeyCtrlHome:   "Home",
	tea.KeyCtrlEnd:    "End",
	tea.KeyCtrlPgUp:   "PageUp",
	tea.KeyCtrlPgDown: "PageDown",
}

// KeyEventToPattern converts a bubbletea key event to the canonical pattern
// string described in spec.md §4.7: modifier tokens S, C, A in that fixed
// order, joined by "-", with uppercase ASCII letters carrying their
// implicit Shift rather than an explicit "S-" token. Returns "", false for
// keys with no canonical pattern (caps lock, media keys, and similar have
// no bubbletea representation to begin with).
func KeyEventToPattern(key tea.KeyMsg) (string, bool) {
	if letter, ok := ctrlLetterKeys[key.Type]; ok {
		return "C-" + string(letter), true
	}

	if name, ok := ctrlNamedKeys[key.Type]; ok {
		return withModifiers(name, key.Alt, false, true), true
	}

	if key.Type == tea.KeyRunes && len(key.Runes) == 1 {
		r := key.Runes[0]
		switch {
		case r >= 'A' && r <= 'Z':
			return string(r), true
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return withAltAndCtrl(string(r), key), true
		case strings.ContainsRune("!@#$%^&*()-=[]{};:'\",./\\|?`~<>", r):
			return withAltAndCtrl(string(r), key), true
		case r == ' ':
			return withAltAndCtrl("Space", key), true
		}
		return "", false
	}

	if name, ok := namedKeys[key.Type]; ok {
		return withModifiers(name, key.Alt, false, false), true
	}

	return "", false
}

func withAltAndCtrl(keyStr string, key tea.KeyMsg) string {
	return withModifiers(keyStr, key.Alt, false, false)
}

// withModifiers prepends S-/C-/A- tokens in that fixed order, joined by
// "-". Control is otherwise resolved ahead of this by the ctrlLetterKeys/
// ctrlNamedKeys tables for the dedicated KeyTypes bubbletea emits for it.
func withModifiers(keyStr string, alt, shift, ctrl bool) string {
	var mods []string
	if shift {
		mods = append(mods, "S")
	}
	if ctrl {
		mods = append(mods, "C")
	}
	if alt {
		mods = append(mods, "A")
	}
	if len(mods) == 0 {
		return keyStr
	}
	return strings.Join(mods, "-") + "-" + keyStr
}
