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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// Interfaces
// =============================================================================

// InputReader reads one line of visitor input.
//
// # Outputs
//
//   - string: The trimmed line.
//   - error: io.EOF when input is exhausted.
type InputReader interface {
	ReadLine() (string, error)
}

// PromptingInputReader draws its own prompt. Callers check for it to avoid
// printing the prompt twice.
type PromptingInputReader interface {
	InputReader
	SetPrompt(prompt string)
}

// =============================================================================
// LineReader
// =============================================================================

// LineReader reads newline-terminated lines from any reader. It serves
// piped stdin and tests.
type LineReader struct {
	reader *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine implements InputReader. A final line without a newline is
// returned before io.EOF.
func (r *LineReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// =============================================================================
// InteractiveInputReader
// =============================================================================

// InteractiveInputReader edits a line with bubbletea: arrow-key history,
// Ctrl+A/Ctrl+E movement, Ctrl+D to quit.
//
// # Thread Safety
//
// Not safe for concurrent use. One reader per terminal.
//
// # Limitations
//
//   - History lives in memory for the session only.
type InteractiveInputReader struct {
	history    []string
	maxHistory int
	prompt     string
}

// NewInputReader returns an InteractiveInputReader on a terminal and a
// LineReader over stdin otherwise.
func NewInputReader(maxHistory int) InputReader {
	if !IsTerminal(os.Stdin) {
		return NewLineReader(os.Stdin)
	}
	return &InteractiveInputReader{
		history:    make([]string, 0, maxHistory),
		maxHistory: maxHistory,
		prompt:     "> ",
	}
}

// SetPrompt implements PromptingInputReader.
func (r *InteractiveInputReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

// ReadLine implements InputReader.
func (r *InteractiveInputReader) ReadLine() (string, error) {
	ti := textinput.New()
	ti.Prompt = r.prompt
	ti.Placeholder = "Type an answer or a quick-reply number"
	ti.CharLimit = 4096
	ti.Width = 80
	ti.Focus()

	p := tea.NewProgram(inputModel{textInput: ti, history: r.history, historyIndex: -1}, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(inputModel)
	if !ok {
		return "", fmt.Errorf("ux: unexpected input model %T", final)
	}
	if m.eof {
		return "", io.EOF
	}

	line := strings.TrimSpace(m.textInput.Value())
	r.remember(line)
	return line, nil
}

func (r *InteractiveInputReader) remember(line string) {
	if line == "" || (len(r.history) > 0 && r.history[len(r.history)-1] == line) {
		return
	}
	r.history = append(r.history, line)
	if len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

type inputModel struct {
	textInput    textinput.Model
	history      []string
	historyIndex int
	draft        string
	eof          bool
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	switch key.Type {
	case tea.KeyEnter:
		return m, tea.Quit
	case tea.KeyCtrlC:
		m.textInput.SetValue("")
		return m, tea.Quit
	case tea.KeyCtrlD:
		m.eof = true
		return m, tea.Quit
	case tea.KeyUp:
		if len(m.history) == 0 {
			return m, nil
		}
		if m.historyIndex == -1 {
			m.draft = m.textInput.Value()
			m.historyIndex = len(m.history) - 1
		} else if m.historyIndex > 0 {
			m.historyIndex--
		}
		m.textInput.SetValue(m.history[m.historyIndex])
		m.textInput.CursorEnd()
		return m, nil
	case tea.KeyDown:
		if m.historyIndex == -1 {
			return m, nil
		}
		if m.historyIndex < len(m.history)-1 {
			m.historyIndex++
			m.textInput.SetValue(m.history[m.historyIndex])
		} else {
			m.historyIndex = -1
			m.textInput.SetValue(m.draft)
		}
		m.textInput.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	return m.textInput.View() + "\n"
}
