// Package ui is the terminal front end of the scan wizard.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/ports"
	"github.com/JadenB9/mode/internal/report"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
	"github.com/JadenB9/mode/internal/workflow"
)

const visibleRows = 15

// Scanner runs a session; *session.Runner satisfies it.
type Scanner interface {
	Run(ctx context.Context, sess *session.Session, onProgress scanner.ProgressFunc) (*session.Outcome, error)
}

type progressMsg struct {
	id               uuid.UUID
	completed, total int
}

type scanDoneMsg struct {
	id      uuid.UUID
	outcome *session.Outcome
	err     error
}

// Model is the bubbletea model wrapping a workflow.Machine.
type Model struct {
	ctx      context.Context
	machine  *workflow.Machine
	scanner  Scanner
	logger   *zap.SugaredLogger
	spinner  spinner.Model
	progress progress.Model

	cancel   context.CancelFunc
	width    int
	quitting bool
}

// New creates the model. Scans run under ctx.
func New(ctx context.Context, s Scanner, logger *zap.SugaredLogger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primary)

	return Model{
		ctx:      ctx,
		machine:  workflow.New(),
		scanner:  s,
		logger:   logger,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Run starts the interactive program and blocks until it exits.
func Run(ctx context.Context, s Scanner, logger *zap.SugaredLogger) error {
	p := tea.NewProgram(New(ctx, s, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(min(msg.Width-8, 60), 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case batchMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, msg.next)

	case progressMsg:
		if m.isCurrent(msg.id) {
			m.machine.Progress(msg.completed, msg.total)
		}
		return m, nil

	case scanDoneMsg:
		if m.isCurrent(msg.id) {
			m.machine.Complete(msg.outcome, msg.err)
			m.cancel = nil
		}
		return m, nil
	}

	return m, nil
}

// isCurrent reports whether id belongs to the scan the machine is running.
func (m Model) isCurrent(id uuid.UUID) bool {
	s, ok := m.machine.State().(workflow.Scanning)
	return ok && s.Session.ID == id
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.stopScan()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.machine.State().(type) {
	case workflow.SelectingScanType:
		switch msg.String() {
		case "up", "k":
			m.machine.Previous()
		case "down", "j":
			m.machine.Next()
		case "enter":
			m.machine.ConfirmScanType()
		case "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case workflow.EnteringTarget, workflow.EnteringPortRange:
		switch msg.Type {
		case tea.KeyEnter:
			if _, ok := m.machine.State().(workflow.EnteringTarget); ok {
				m.machine.AdvanceToOptions()
			} else {
				m.machine.AdvanceFromPortRange()
			}
		case tea.KeyBackspace:
			m.machine.HandleBackspace()
		case tea.KeyEsc:
			m.machine.GoBack()
		case tea.KeySpace:
			m.machine.HandleChar(' ')
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				m.machine.HandleChar(r)
			}
		}

	case workflow.SelectingOptions:
		switch msg.String() {
		case "up", "k":
			m.machine.Previous()
		case "down", "j":
			m.machine.Next()
		case " ":
			m.machine.ToggleOption()
		case "enter":
			m.machine.AdvanceToConfirmation()
		case "esc":
			m.machine.GoBack()
		}

	case workflow.Confirming:
		switch msg.String() {
		case "enter", "y":
			if sess := m.machine.Accept(); sess != nil {
				return m, m.startScan(sess)
			}
		case "esc", "n":
			m.machine.GoBack()
		}

	case workflow.Scanning:
		if msg.String() == "esc" {
			m.stopScan()
			m.machine.Cancel()
		}

	case workflow.ViewingResults:
		switch msg.String() {
		case "up", "k":
			m.machine.Previous()
		case "down", "j":
			m.machine.Next()
		case "enter", "esc":
			m.machine.Acknowledge()
		case "q":
			m.quitting = true
			return m, tea.Quit
		}

	case workflow.Success, workflow.Error:
		switch msg.String() {
		case "enter", "esc":
			m.machine.Acknowledge()
		case "q":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// startScan runs sess in the background. Progress and completion arrive as
// messages on one channel, so the final progress update is always delivered
// before the completion.
func (m *Model) startScan(sess *session.Session) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	updates := make(chan tea.Msg, 64)

	m.logger.Infow("Starting interactive scan",
		"scan_id", sess.ID.String(),
		"target", sess.Target,
		"scan_type", sess.ScanType.Name(),
		"ports", len(sess.Ports),
	)

	go func() {
		defer close(updates)
		defer cancel()
		outcome, err := m.scanner.Run(ctx, sess, func(completed, total int) {
			// Drop intermediate updates rather than stall the engine.
			select {
			case updates <- progressMsg{id: sess.ID, completed: completed, total: total}:
			default:
			}
		})
		deliver(ctx, updates, scanDoneMsg{id: sess.ID, outcome: outcome, err: err})
	}()

	return listen(updates)
}

// deliver sends msg unless ctx ends first. Once the scan is abandoned nobody
// reads the channel, and the result is stale anyway.
func deliver(ctx context.Context, ch chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// listen delivers one message from ch and re-arms itself until the scan is done.
func listen(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		if _, done := msg.(scanDoneMsg); done {
			return msg
		}
		return batchMsg{msg: msg, next: listen(ch)}
	}
}

// batchMsg carries an update together with the command that waits for the next one.
type batchMsg struct {
	msg  tea.Msg
	next tea.Cmd
}

func (m *Model) stopScan() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Port Scanner"))
	b.WriteString("\n")
	b.WriteString(promptStyle.Render(m.machine.Prompt()))
	b.WriteString("\n\n")

	switch s := m.machine.State().(type) {
	case workflow.SelectingScanType:
		for i, t := range ports.AllScanTypes() {
			b.WriteString(listItem(i == s.Selected, t.Name(), t.Description()))
		}
		b.WriteString(help("↑/↓ navigate • enter select • esc quit"))

	case workflow.EnteringTarget:
		b.WriteString(inputStyle.Render(s.Input + "█"))
		b.WriteString("\n")
		b.WriteString(help("enter continue • esc back"))

	case workflow.EnteringPortRange:
		b.WriteString(dimStyle.Render("Target: " + s.Target))
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(s.Input + "█"))
		b.WriteString("\n")
		b.WriteString(help("digits, ',', '-' • enter continue • esc back"))

	case workflow.SelectingOptions:
		for i, o := range workflow.AllScanOptions() {
			b.WriteString(listItem(i == s.Selected, o.Name(), o.Description(o.Enabled(s.Options))))
		}
		b.WriteString(help("↑/↓ navigate • space toggle • enter continue • esc back"))

	case workflow.Confirming:
		fields, _ := m.machine.ConfirmationData()
		for _, f := range fields {
			b.WriteString(labelStyle.Render(f.Label+":") + itemStyle.Render(f.Value) + "\n")
		}
		b.WriteString(help("enter start scan • esc back"))

	case workflow.Scanning:
		percent := 0.0
		if s.Total > 0 {
			percent = float64(s.Completed) / float64(s.Total)
		}
		b.WriteString(m.spinner.View() + " " + itemStyle.Render(s.Target) + "\n\n")
		b.WriteString(m.progress.ViewAs(percent))
		b.WriteString("\n")
		b.WriteString(help("esc cancel"))

	case workflow.ViewingResults:
		b.WriteString(resultsTable(s))
		for _, path := range s.SavedTo {
			b.WriteString(successStyle.Render("Saved to " + path))
			b.WriteString("\n")
		}
		b.WriteString(help("↑/↓ scroll • enter done • q quit"))

	case workflow.Success:
		b.WriteString(successStyle.Render("✓"))
		b.WriteString("\n")
		b.WriteString(help("enter continue • q quit"))

	case workflow.Error:
		b.WriteString(errorStyle.Render("✗ " + s.Kind.String()))
		b.WriteString("\n")
		if len(s.Results) > 0 {
			b.WriteString(itemStyle.Render(fmt.Sprintf("%d open ports found (not saved)", len(s.Results))))
			b.WriteString("\n")
			b.WriteString(table(s.Results, 0))
		}
		b.WriteString(help("enter continue • q quit"))
	}

	return frameStyle.Render(b.String())
}

func listItem(selected bool, name, description string) string {
	if selected {
		return selectedStyle.Render("> "+name) + "\n" + dimStyle.Render("    "+description) + "\n"
	}
	return itemStyle.Render("  "+name) + "\n"
}

func help(s string) string {
	return "\n" + dimStyle.Render(s)
}

func resultsTable(s workflow.ViewingResults) string {
	return table(s.OpenPorts, s.Scroll)
}

func table(results []scanner.PortInfo, scroll int) string {
	rows := report.Rows(results)
	end := min(scroll+visibleRows, len(rows))

	var b strings.Builder
	b.WriteString(selectedStyle.Render(fmt.Sprintf("%-8s %-8s %s", "PORT", "STATE", "SERVICE")))
	b.WriteString("\n")
	for _, r := range rows[scroll:end] {
		b.WriteString(itemStyle.Render(fmt.Sprintf("%-8s %-8s %s", r.Port, r.State, r.Service)))
		b.WriteString("\n")
	}
	if end < len(rows) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("... %d more", len(rows)-end)))
		b.WriteString("\n")
	}
	return b.String()
}
