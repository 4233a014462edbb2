package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JadenB9/mode/internal/ports"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
	"github.com/JadenB9/mode/internal/target"
)

// Field is one labelled line of the confirmation screen.
type Field struct {
	Label string
	Value string
}

// Machine drives the wizard. Methods that do not apply to the current
// state leave it unchanged. A Machine is not safe for concurrent use.
type Machine struct {
	state State
}

// New returns a machine in its initial state.
func New() *Machine {
	return &Machine{state: SelectingScanType{}}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Previous moves the cursor up. Lists wrap; the results view stops at the top.
func (m *Machine) Previous() {
	switch s := m.state.(type) {
	case SelectingScanType:
		s.Selected = wrapPrev(s.Selected, len(ports.AllScanTypes()))
		m.state = s
	case SelectingOptions:
		s.Selected = wrapPrev(s.Selected, len(AllScanOptions()))
		m.state = s
	case ViewingResults:
		if s.Scroll > 0 {
			s.Scroll--
		}
		m.state = s
	}
}

// Next moves the cursor down. Lists wrap; the results view stops at the
// last port.
func (m *Machine) Next() {
	switch s := m.state.(type) {
	case SelectingScanType:
		s.Selected = (s.Selected + 1) % len(ports.AllScanTypes())
		m.state = s
	case SelectingOptions:
		s.Selected = (s.Selected + 1) % len(AllScanOptions())
		m.state = s
	case ViewingResults:
		if s.Scroll < len(s.OpenPorts)-1 {
			s.Scroll++
		}
		m.state = s
	}
}

func wrapPrev(i, n int) int {
	if i == 0 {
		return n - 1
	}
	return i - 1
}

// ConfirmScanType moves from the type list to target entry.
func (m *Machine) ConfirmScanType() {
	s, ok := m.state.(SelectingScanType)
	if !ok {
		return
	}
	m.state = EnteringTarget{ScanType: ports.AllScanTypes()[s.Selected]}
}

// HandleChar appends c to the active text input. Port range input only
// accepts digits, comma, hyphen and space.
func (m *Machine) HandleChar(c rune) {
	switch s := m.state.(type) {
	case EnteringTarget:
		s.Input += string(c)
		m.state = s
	case EnteringPortRange:
		if (c >= '0' && c <= '9') || c == ',' || c == '-' || c == ' ' {
			s.Input += string(c)
			m.state = s
		}
	}
}

// HandleBackspace removes the last character of the active text input.
func (m *Machine) HandleBackspace() {
	switch s := m.state.(type) {
	case EnteringTarget:
		s.Input = dropLast(s.Input)
		m.state = s
	case EnteringPortRange:
		s.Input = dropLast(s.Input)
		m.state = s
	}
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// AdvanceToOptions submits the target. Custom ranges continue to port range
// entry; an invalid target ends in Error.
func (m *Machine) AdvanceToOptions() {
	s, ok := m.state.(EnteringTarget)
	if !ok {
		return
	}

	tgt := strings.TrimSpace(s.Input)
	if err := target.Validate(tgt); err != nil {
		m.fail(err)
		return
	}

	if s.ScanType == ports.CustomRange {
		m.state = EnteringPortRange{Target: tgt}
		return
	}
	m.state = SelectingOptions{ScanType: s.ScanType, Target: tgt}
}

// AdvanceFromPortRange submits the custom range expression.
func (m *Machine) AdvanceFromPortRange() {
	s, ok := m.state.(EnteringPortRange)
	if !ok {
		return
	}

	portSet, err := ports.ParseRange(s.Input)
	if err != nil {
		m.fail(err)
		return
	}
	m.state = SelectingOptions{
		ScanType:    ports.CustomRange,
		Target:      s.Target,
		CustomPorts: portSet,
	}
}

// ToggleOption flips the option under the cursor.
func (m *Machine) ToggleOption() {
	s, ok := m.state.(SelectingOptions)
	if !ok {
		return
	}
	s.Options = AllScanOptions()[s.Selected].toggle(s.Options)
	m.state = s
}

// AdvanceToConfirmation freezes the options for review.
func (m *Machine) AdvanceToConfirmation() {
	s, ok := m.state.(SelectingOptions)
	if !ok {
		return
	}
	m.state = Confirming{
		ScanType:    s.ScanType,
		Target:      s.Target,
		Options:     s.Options,
		CustomPorts: s.CustomPorts,
	}
}

// Accept starts the scan and returns the session the caller must run.
// It returns nil outside Confirming.
func (m *Machine) Accept() *session.Session {
	s, ok := m.state.(Confirming)
	if !ok {
		return nil
	}

	portSet := s.CustomPorts
	if portSet == nil {
		var err error
		if portSet, err = ports.Resolve(s.ScanType, ""); err != nil {
			m.fail(err)
			return nil
		}
	}

	sess := session.New(s.ScanType, s.Target, portSet, s.Options)
	m.state = Scanning{
		ScanType:    s.ScanType,
		Target:      s.Target,
		Options:     s.Options,
		CustomPorts: s.CustomPorts,
		Session:     sess,
		Total:       len(portSet),
	}
	return sess
}

// Progress records engine progress. Updates that would move backwards are
// ignored.
func (m *Machine) Progress(completed, total int) {
	s, ok := m.state.(Scanning)
	if !ok || completed < s.Completed {
		return
	}
	s.Completed = completed
	s.Total = total
	m.state = s
}

// Complete consumes the scan outcome. Open ports lead to ViewingResults, an
// empty result to Success and any error to Error. A save failure keeps the
// results on the Error state. Calls after Cancel are ignored.
func (m *Machine) Complete(outcome *session.Outcome, err error) {
	s, ok := m.state.(Scanning)
	if !ok {
		return
	}

	switch {
	case err == nil && outcome != nil:
		if len(outcome.Results) > 0 {
			m.state = ViewingResults{
				Target:    s.Target,
				OpenPorts: outcome.Results,
				SavedTo:   outcome.ReportPaths,
			}
			return
		}
		m.state = Success{Message: fmt.Sprintf("Scan completed. No open ports found on %s", s.Target)}
	case err == nil:
		m.state = Error{Message: "Scan failed: no result", Kind: scanerr.ScanIOFailure}
	case scanerr.Is(err, scanerr.ReportWriteError) && outcome != nil:
		m.state = Error{
			Message: fmt.Sprintf("Scan completed but failed to save results: %s", err),
			Kind:    scanerr.ReportWriteError,
			Results: outcome.Results,
		}
	case scanerr.Is(err, scanerr.Cancelled):
		m.state = Error{Message: "Scan cancelled", Kind: scanerr.Cancelled}
	default:
		m.state = Error{Message: fmt.Sprintf("Scan failed: %s", err), Kind: scanerr.KindOf(err)}
	}
}

// Cancel abandons a running scan. The caller is expected to cancel the
// engine's context; its late completion is then ignored.
func (m *Machine) Cancel() {
	if _, ok := m.state.(Scanning); !ok {
		return
	}
	m.state = Error{Message: "Scan cancelled", Kind: scanerr.Cancelled}
}

// GoBack returns to the previous entry step. Leaving port range entry keeps
// the target text; leaving the options step clears the previous input.
// It reports false when there is no previous step and the caller should
// leave the wizard.
func (m *Machine) GoBack() bool {
	switch s := m.state.(type) {
	case EnteringTarget:
		idx := 0
		for i, t := range ports.AllScanTypes() {
			if t == s.ScanType {
				idx = i
			}
		}
		m.state = SelectingScanType{Selected: idx}
	case EnteringPortRange:
		m.state = EnteringTarget{ScanType: ports.CustomRange, Input: s.Target}
	case SelectingOptions:
		if s.ScanType == ports.CustomRange {
			m.state = EnteringPortRange{Target: s.Target}
		} else {
			m.state = EnteringTarget{ScanType: s.ScanType}
		}
	case Confirming:
		m.state = SelectingOptions{
			ScanType:    s.ScanType,
			Target:      s.Target,
			Options:     s.Options,
			CustomPorts: s.CustomPorts,
		}
	default:
		return false
	}
	return true
}

// IsDone reports whether the wizard reached Success or Error.
func (m *Machine) IsDone() bool {
	switch m.state.(type) {
	case Success, Error:
		return true
	}
	return false
}

// Acknowledge dismisses a result or terminal state and resets the wizard.
func (m *Machine) Acknowledge() {
	switch m.state.(type) {
	case ViewingResults, Success, Error:
		m.state = SelectingScanType{}
	}
}

// Selected returns the cursor of list states.
func (m *Machine) Selected() (int, bool) {
	switch s := m.state.(type) {
	case SelectingScanType:
		return s.Selected, true
	case SelectingOptions:
		return s.Selected, true
	}
	return 0, false
}

// Input returns the text of the active input, or "".
func (m *Machine) Input() string {
	switch s := m.state.(type) {
	case EnteringTarget:
		return s.Input
	case EnteringPortRange:
		return s.Input
	}
	return ""
}

// Prompt returns the heading for the current state.
func (m *Machine) Prompt() string {
	switch s := m.state.(type) {
	case SelectingScanType:
		return "Select scan type (↑/↓ to navigate, Enter to select, ESC to cancel):"
	case EnteringTarget:
		return fmt.Sprintf("%s\nEnter target IP address or hostname:", s.ScanType.Name())
	case EnteringPortRange:
		return "Enter port range (e.g., '80,443' or '1-1000' or '80,443,8000-9000'):"
	case SelectingOptions:
		return "Configure scan options (↑/↓ to navigate, Space to toggle, Enter to continue):"
	case Confirming:
		return "Review scan parameters:"
	case Scanning:
		return fmt.Sprintf("Scanning... %d/%d ports", s.Completed, s.Total)
	case ViewingResults:
		return fmt.Sprintf("Scan Results for %s (%d open ports)", s.Target, len(s.OpenPorts))
	case Success:
		return s.Message
	case Error:
		return "Error: " + s.Message
	}
	return ""
}

// ConfirmationData returns the review lines while Confirming.
func (m *Machine) ConfirmationData() ([]Field, bool) {
	s, ok := m.state.(Confirming)
	if !ok {
		return nil, false
	}

	count := len(s.CustomPorts)
	if s.CustomPorts == nil {
		portSet, _ := ports.Resolve(s.ScanType, "")
		count = len(portSet)
	}

	detection := "Disabled"
	if s.Options.ServiceDetection {
		detection = "Enabled"
	}
	save := "No"
	if s.Options.SaveToFile {
		save = "Yes"
	}

	return []Field{
		{Label: "Scan Type", Value: s.ScanType.Name()},
		{Label: "Target", Value: s.Target},
		{Label: "Ports", Value: fmt.Sprintf("%d ports", count)},
		{Label: "Service Detection", Value: detection},
		{Label: "Save to File", Value: save},
	}, true
}

// OptionsState returns the options while they are being configured.
func (m *Machine) OptionsState() (scanner.Options, bool) {
	s, ok := m.state.(SelectingOptions)
	if !ok {
		return scanner.Options{}, false
	}
	return s.Options, true
}

func (m *Machine) fail(err error) {
	msg := err.Error()
	var se *scanerr.Error
	if errors.As(err, &se) {
		msg = se.Message
	}
	m.state = Error{Message: msg, Kind: scanerr.KindOf(err)}
}
