// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// promptModel reads one line from the operator.
type promptModel struct {
	warning   string
	label     string
	input     textinput.Model
	submitted bool
	done      bool
}

func newPromptModel(warning, label, placeholder string, secret bool) promptModel {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	in.Focus()
	return promptModel{warning: warning, label: label, input: in}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	if m.warning != "" {
		b.WriteString(errorStyle.Render(m.warning) + "\n")
	}
	b.WriteString(keyStyle.Render(m.label) + " " + m.input.View() + "\n")
	b.WriteString(dimStyle.Render("enter to submit, esc to abort") + "\n")
	return b.String()
}

// Value returns the submitted text, or "" when the prompt was aborted.
func (m promptModel) Value() string {
	if !m.submitted {
		return ""
	}
	return strings.TrimSpace(m.input.Value())
}

// runPrompt runs the prompt on in/out. It is a variable so tests can answer
// without a terminal.
var runPrompt = func(in io.Reader, out io.Writer, m promptModel) (string, error) {
	final, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", sgerr.Errorf(sgerr.CodeCLISetupFailure, "running prompt: %w", err)
	}
	fm, ok := final.(promptModel)
	if !ok {
		return "", sgerr.New(sgerr.CodeCLISetupFailure, "unexpected model type after prompt")
	}
	return fm.Value(), nil
}

// confirmWord asks the operator to type word before a destructive step.
func confirmWord(in io.Reader, out io.Writer, word, warning string) (bool, error) {
	got, err := runPrompt(in, out, newPromptModel(warning, "Type "+word+" to continue:", word, false))
	if err != nil {
		return false, err
	}
	return got == word, nil
}
