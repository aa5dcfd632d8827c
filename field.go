package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	placeholder string

	value  []rune
	cursor int
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (f *field) valueString() string { return string(f.value) }

func (f *field) setValue(s string) {
	f.value = []rune(s)
	f.cursor = len(f.value)
}

func (f *field) handleKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyLeft:
		f.cursor = clamp(f.cursor-1, 0, len(f.value))
	case tea.KeyRight:
		f.cursor = clamp(f.cursor+1, 0, len(f.value))
	case tea.KeyHome:
		f.cursor = 0
	case tea.KeyEnd:
		f.cursor = len(f.value)
	case tea.KeyBackspace:
		if f.cursor > 0 && len(f.value) > 0 {
			f.value = append(f.value[:f.cursor-1], f.value[f.cursor:]...)
			f.cursor--
		}
	case tea.KeyDelete:
		if f.cursor < len(f.value) {
			f.value = append(f.value[:f.cursor], f.value[f.cursor+1:]...)
		}
	case tea.KeyRunes, tea.KeySpace:
		ins := msg.Runes
		if msg.Type == tea.KeySpace {
			ins = []rune{' '}
		}
		if len(ins) == 0 {
			return
		}
		buf := make([]rune, 0, len(f.value)+len(ins))
		buf = append(buf, f.value[:f.cursor]...)
		buf = append(buf, ins...)
		buf = append(buf, f.value[f.cursor:]...)
		f.value = buf
		f.cursor += len(ins)
	}
	f.cursor = clamp(f.cursor, 0, len(f.value))
}

// render draws the field's value line with a block cursor when focused and
// the placeholder when empty and unfocused.
func (f *field) render(focused bool) string {
	if len(f.value) == 0 && !focused {
		return colored(cSub, f.placeholder)
	}
	if !focused {
		return colored(cText, string(f.value))
	}
	cur := clamp(f.cursor, 0, len(f.value))
	var b strings.Builder
	b.WriteString(ansiFG(cText))
	b.WriteString(string(f.value[:cur]))
	if cur < len(f.value) {
		b.WriteString(ansiBG(cLime) + "\x1b[38;2;0;0;0m" + string(f.value[cur]) + ansiReset + ansiFG(cText))
		b.WriteString(string(f.value[cur+1:]))
	} else {
		b.WriteString(ansiBG(cLime) + " " + ansiReset)
	}
	b.WriteString(ansiReset)
	return b.String()
}
