// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package ux

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader(t *testing.T) {
	r := NewLineReader(strings.NewReader("  web app \n2\nlast line"))

	var lines []string
	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"web app", "2", "last line"}, lines)
}

func TestInputModel_History(t *testing.T) {
	ti := textinput.New()
	ti.Focus()
	ti.SetValue("draft")
	var m tea.Model = inputModel{textInput: ti, history: []string{"first", "second"}, historyIndex: -1}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", m.(inputModel).textInput.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", m.(inputModel).textInput.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "draft", m.(inputModel).textInput.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.True(t, m.(inputModel).eof)
}

func TestInteractiveInputReader_Remember(t *testing.T) {
	r := &InteractiveInputReader{maxHistory: 2}

	r.remember("a")
	r.remember("a")
	r.remember("")
	r.remember("b")
	r.remember("c")

	assert.Equal(t, []string{"b", "c"}, r.history)
}
