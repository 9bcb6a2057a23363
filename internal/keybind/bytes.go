package keybind

import tea "github.com/charmbracelet/bubbletea"

// KeyToBytes converts a key event in terminal insert mode to the byte
// sequence forwarded to the PTY, per spec.md §4.9. SwitchToShell reports
// true instead of bytes for Ctrl+` / Ctrl+@ (NUL), which the caller
// intercepts rather than forwarding.
func KeyToBytes(key tea.KeyMsg) (data []byte, switchToShell bool) {
	if letter, ok := ctrlLetterKeys[key.Type]; ok {
		return []byte{letter - 'a' + 1}, false
	}

	switch key.Type {
	case tea.KeyCtrlAt:
		return nil, true
	case tea.KeyEnter:
		return []byte{'\r'}, false
	case tea.KeyTab:
		return []byte{'\t'}, false
	case tea.KeyBackspace:
		return []byte{0x7f}, false
	case tea.KeyUp:
		return []byte{27, '[', 'A'}, false
	case tea.KeyDown:
		return []byte{27, '[', 'B'}, false
	case tea.KeyRight:
		return []byte{27, '[', 'C'}, false
	case tea.KeyLeft:
		return []byte{27, '[', 'D'}, false
	case tea.KeyHome:
		return []byte{27, '[', 'H'}, false
	case tea.KeyEnd:
		return []byte{27, '[', 'F'}, false
	case tea.KeyPgUp:
		return []byte{27, '[', '5', '~'}, false
	case tea.KeyPgDown:
		return []byte{27, '[', '6', '~'}, false
	case tea.KeyDelete:
		return []byte{27, '[', '3', '~'}, false
	case tea.KeyInsert:
		return []byte{27, '[', '2', '~'}, false
	case tea.KeyEsc:
		return []byte{27}, false
	case tea.KeyF1:
		return []byte{27, 'O', 'P'}, false
	case tea.KeyF2:
		return []byte{27, 'O', 'Q'}, false
	case tea.KeyF3:
		return []byte{27, 'O', 'R'}, false
	case tea.KeyF4:
		return []byte{27, 'O', 'S'}, false
	case tea.KeyF5:
		return []byte{27, '[', '1', '5', '~'}, false
	case tea.KeyF6:
		return []byte{27, '[', '1', '7', '~'}, false
	case tea.KeyF7:
		return []byte{27, '[', '1', '8', '~'}, false
	case tea.KeyF8:
		return []byte{27, '[', '1', '9', '~'}, false
	case tea.KeyF9:
		return []byte{27, '[', '2', '0', '~'}, false
	case tea.KeyF10:
		return []byte{27, '[', '2', '1', '~'}, false
	case tea.KeyF11:
		return []byte{27, '[', '2', '3', '~'}, false
	case tea.KeyF12:
		return []byte{27, '[', '2', '4', '~'}, false
	}

	if key.Type == tea.KeyRunes && len(key.Runes) > 0 {
		if key.Alt {
			out := []byte{27}
			return append(out, []byte(string(key.Runes))...), false
		}
		return []byte(string(key.Runes)), false
	}
	if key.Type == tea.KeySpace {
		return []byte{' '}, false
	}

	return nil, false
}
