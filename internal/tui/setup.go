// ABOUTME: Interactive TUI wizard for configuring a remote embedding provider.
// ABOUTME: 3-step bubbletea model collecting base URL, model name, and API key env var.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultBaseURL is the default OpenAI-compatible embeddings endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is the default embedding model name.
const DefaultModel = "text-embedding-3-small"

// SetupStep represents the current wizard step.
type SetupStep int

const (
	SetupBaseURL SetupStep = iota
	SetupModelName
	SetupKeyEnv
	SetupChecking
	SetupDone
	SetupFailed
)

// checkResultMsg carries the result of an async connectivity check.
type checkResultMsg struct {
	err error
}

// CheckFn probes the embedding endpoint with the entered settings.
type CheckFn func(ctx context.Context, baseURL, model, keyEnv string) error

// SetupModel is the bubbletea model for the embedder setup wizard.
type SetupModel struct {
	step      SetupStep
	inputs    [3]textinput.Model
	spinner   spinner.Model
	check     CheckFn
	cancelCtx *cancelHolder
	checkErr  error
	quitting  bool
}

// NewSetupModel creates a setup wizard model, pre-filling existing settings.
func NewSetupModel(check CheckFn, baseURL, model, keyEnv string) SetupModel {
	urlInput := textinput.New()
	urlInput.Placeholder = DefaultBaseURL
	urlInput.Focus()
	urlInput.Width = 50
	if baseURL != "" {
		urlInput.SetValue(baseURL)
	}

	modelInput := textinput.New()
	modelInput.Placeholder = DefaultModel
	modelInput.Width = 50
	if model != "" {
		modelInput.SetValue(model)
	}

	keyInput := textinput.New()
	keyInput.Placeholder = "OPENAI_API_KEY"
	keyInput.Width = 50
	if keyEnv != "" {
		keyInput.SetValue(keyEnv)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:      SetupBaseURL,
		inputs:    [3]textinput.Model{urlInput, modelInput, keyInput},
		spinner:   s,
		check:     check,
		cancelCtx: &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case SetupBaseURL, SetupModelName, SetupKeyEnv:
			return m.updateInput(msg)
		case SetupFailed:
			return m.updateFailed(msg)
		}

	case checkResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = SetupDone
			return m, tea.Quit
		}
		m.checkErr = msg.err
		m.step = SetupFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == SetupChecking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		// Empty fields take the defaults shown as placeholders.
		switch m.step {
		case SetupBaseURL:
			if m.inputs[0].Value() == "" {
				m.inputs[0].SetValue(DefaultBaseURL)
			} else {
				m.inputs[0].SetValue(strings.TrimRight(m.inputs[0].Value(), "/"))
			}
		case SetupModelName:
			if m.inputs[1].Value() == "" {
				m.inputs[1].SetValue(DefaultModel)
			}
		case SetupKeyEnv:
			if m.inputs[2].Value() == "" {
				m.inputs[2].SetValue("OPENAI_API_KEY")
			}
		}

		m.inputs[idx].Blur()

		switch m.step {
		case SetupBaseURL:
			m.step = SetupModelName
			m.inputs[1].Focus()
			return m, textinput.Blink
		case SetupModelName:
			m.step = SetupKeyEnv
			m.inputs[2].Focus()
			return m, textinput.Blink
		case SetupKeyEnv:
			m.step = SetupChecking
			return m, tea.Batch(m.startCheck(), m.spinner.Tick)
		}
	}

	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = SetupChecking
			m.checkErr = nil
			return m, tea.Batch(m.startCheck(), m.spinner.Tick)
		case 's':
			m.step = SetupDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startCheck() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	baseURL := m.inputs[0].Value()
	model := m.inputs[1].Value()
	keyEnv := m.inputs[2].Value()
	fn := m.check
	return func() tea.Msg {
		return checkResultMsg{err: fn(ctx, baseURL, model, keyEnv)}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("   ATTEST - Embedder Setup"))
	b.WriteString("\n\n")
	b.WriteString("Configure the remote embedding provider.\n\n")

	switch m.step {
	case SetupBaseURL:
		b.WriteString(stepStyle.Render("Step 1 of 3: Base URL"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case SetupModelName:
		b.WriteString(fmt.Sprintf("  Base URL: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: Embedding model"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case SetupKeyEnv:
		b.WriteString(fmt.Sprintf("  Base URL: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Model:    %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: API key environment variable"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case SetupChecking:
		b.WriteString(fmt.Sprintf("  Base URL: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Model:    %s\n", m.inputs[1].Value()))
		b.WriteString(fmt.Sprintf("  Key var:  %s\n\n", m.inputs[2].Value()))
		b.WriteString(m.spinner.View())
		b.WriteString(" Checking embedding endpoint...")
		b.WriteString("\n")

	case SetupDone:
		b.WriteString(validStyle.Render("✓ Embedder configured!"))
		b.WriteString("\n")

	case SetupFailed:
		errMsg := "unknown error"
		if m.checkErr != nil {
			errMsg = m.checkErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Check failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered settings.
func (m SetupModel) Result() (baseURL, model, keyEnv string) {
	return m.inputs[0].Value(), m.inputs[1].Value(), m.inputs[2].Value()
}

// ShouldSave reports whether the wizard completed and the user did not cancel.
func (m SetupModel) ShouldSave() bool {
	return m.step == SetupDone && !m.quitting
}
