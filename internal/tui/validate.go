// ABOUTME: Interactive TUI flow for validating an evidence file against a control.
// ABOUTME: 2-step bubbletea model collecting file path and SCF ID, then running the pipeline.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/attest/internal/models"
)

// Step represents the current flow step.
type Step int

const (
	StepFilePath Step = iota
	StepControlID
	StepRunning
	StepDone
	StepFailed
)

// resultMsg carries the outcome of an async validation run.
type resultMsg struct {
	record *models.EvidenceRecord
	err    error
}

// ValidateFn runs the validation pipeline for one file and control.
type ValidateFn func(ctx context.Context, path, scfID string) (*models.EvidenceRecord, error)

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on ValidateModel so that
// value-receiver methods (required by tea.Model) can store the cancel func
// and have it visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// ValidateModel is the bubbletea model for the validation flow.
type ValidateModel struct {
	step      Step
	inputs    [2]textinput.Model
	spinner   spinner.Model
	validate  ValidateFn
	cancelCtx *cancelHolder
	record    *models.EvidenceRecord
	runErr    error
	quitting  bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	validStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	invalidStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewValidateModel creates a validation flow model, pre-filling path and
// control ID when known.
func NewValidateModel(validate ValidateFn, path, scfID string) ValidateModel {
	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/evidence.pdf"
	pathInput.Focus()
	pathInput.Width = 60
	if path != "" {
		pathInput.SetValue(path)
	}

	controlInput := textinput.New()
	controlInput.Placeholder = "IAC-01"
	controlInput.Width = 60
	if scfID != "" {
		controlInput.SetValue(scfID)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return ValidateModel{
		step:      StepFilePath,
		inputs:    [2]textinput.Model{pathInput, controlInput},
		spinner:   s,
		validate:  validate,
		cancelCtx: &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m ValidateModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ValidateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		case StepFilePath, StepControlID:
			return m.updateInput(msg)
		case StepDone, StepFailed:
			return m.updateFinished(msg)
		}

	case resultMsg:
		m.cancelCtx.cancel = nil
		if msg.err != nil {
			m.runErr = msg.err
			m.step = StepFailed
			return m, nil
		}
		m.record = msg.record
		m.step = StepDone
		return m, nil

	case spinner.TickMsg:
		if m.step == StepRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m ValidateModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		// Don't advance on empty input
		if strings.TrimSpace(m.inputs[idx].Value()) == "" {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepFilePath:
			m.step = StepControlID
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepControlID:
			m.step = StepRunning
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m ValidateModel) updateFinished(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'a':
			// Start another validation with fresh inputs.
			m.step = StepFilePath
			m.record = nil
			m.runErr = nil
			m.inputs[0].SetValue("")
			m.inputs[1].SetValue("")
			m.inputs[0].Focus()
			return m, textinput.Blink
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	if msg.Type == tea.KeyEnter {
		return m, tea.Quit
	}
	return m, nil
}

func (m ValidateModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	path := strings.TrimSpace(m.inputs[0].Value())
	scfID := strings.TrimSpace(m.inputs[1].Value())
	fn := m.validate
	return func() tea.Msg {
		rec, err := fn(ctx, path, scfID)
		return resultMsg{record: rec, err: err}
	}
}

// View implements tea.Model.
func (m ValidateModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("   ATTEST - Evidence Validation"))
	b.WriteString("\n\n")

	switch m.step {
	case StepFilePath:
		b.WriteString(stepStyle.Render("Step 1 of 2: Evidence file"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(PDF, DOCX, or image)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepControlID:
		b.WriteString(fmt.Sprintf("  File: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 2: SCF control ID"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepRunning:
		b.WriteString(fmt.Sprintf("  File:    %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Control: %s\n\n", m.inputs[1].Value()))
		b.WriteString(m.spinner.View())
		b.WriteString(" Validating evidence...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(m.renderResult())
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("[a]nother  [q]uit"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.runErr != nil {
			errMsg = m.runErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation could not run: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[a]nother  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ValidateModel) renderResult() string {
	rec := m.record
	if rec == nil {
		return errorStyle.Render("✗ No result")
	}

	var b strings.Builder
	if !rec.Success {
		b.WriteString(errorStyle.Render("✗ Pipeline failed: " + rec.Error))
		b.WriteString("\n")
		return b.String()
	}

	if rec.Valid {
		b.WriteString(validStyle.Render(fmt.Sprintf("✓ VALID (%.2f)", rec.Confidence)))
	} else {
		b.WriteString(invalidStyle.Render(fmt.Sprintf("✗ NOT VALID (%.2f)", rec.Confidence)))
	}
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Control:  %s\n", rec.SCFID))
	b.WriteString(fmt.Sprintf("  Artifact: %s (%s)\n", rec.MatchedArtifactName, rec.MatchedERLID))
	b.WriteString(fmt.Sprintf("  %s\n", rec.Explanation))
	return b.String()
}

// Record returns the last validation result, nil if none completed.
func (m ValidateModel) Record() *models.EvidenceRecord {
	return m.record
}
