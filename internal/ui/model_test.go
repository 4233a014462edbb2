package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
	"github.com/JadenB9/mode/internal/workflow"
)

type fakeScanner struct {
	results []scanner.PortInfo
	err     error
	block   bool
}

func (f *fakeScanner) Run(ctx context.Context, sess *session.Session, onProgress scanner.ProgressFunc) (*session.Outcome, error) {
	if f.block {
		<-ctx.Done()
		return nil, scanerr.New(scanerr.Cancelled, "scan", "Scan cancelled", ctx.Err())
	}
	for i := range sess.Ports {
		onProgress(i+1, len(sess.Ports))
	}
	if f.err != nil {
		return nil, f.err
	}
	return &session.Outcome{Results: f.results}, nil
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, msgs ...tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

// drain executes cmd and feeds the resulting messages back until no scan
// messages remain.
func drain(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("scan messages did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case batchMsg, progressMsg, scanDoneMsg:
			var c tea.Cmd
			m, c = m.Update(msg)
			queue = append(queue, c)
		}
	}
	return m
}

func state(m tea.Model) workflow.State {
	return m.(Model).machine.State()
}

func TestWizardRunsScan(t *testing.T) {
	fake := &fakeScanner{results: []scanner.PortInfo{{Port: 22, Service: "SSH", State: scanner.Open}}}
	var m tea.Model = New(context.Background(), fake, zap.NewNop().Sugar())

	m, _ = press(t, m, key(tea.KeyEnter), runes("127.0.0.1"), key(tea.KeyEnter))
	if _, ok := state(m).(workflow.SelectingOptions); !ok {
		t.Fatalf("expected SelectingOptions, got %T", state(m))
	}
	if !strings.Contains(m.View(), "Service Detection") {
		t.Fatalf("options view missing option names:\n%s", m.View())
	}

	m, _ = press(t, m, key(tea.KeyEnter))
	if !strings.Contains(m.View(), "14 ports") {
		t.Fatalf("confirmation view missing port count:\n%s", m.View())
	}

	m, cmd := press(t, m, key(tea.KeyEnter))
	if _, ok := state(m).(workflow.Scanning); !ok || cmd == nil {
		t.Fatalf("expected Scanning with a command, got %T", state(m))
	}

	m = drain(t, m, cmd)
	view, ok := state(m).(workflow.ViewingResults)
	if !ok || len(view.OpenPorts) != 1 {
		t.Fatalf("expected results, got %+v", state(m))
	}
	if !strings.Contains(m.View(), "SSH") {
		t.Fatalf("results view missing service:\n%s", m.View())
	}

	m, _ = press(t, m, key(tea.KeyEnter))
	if _, ok := state(m).(workflow.SelectingScanType); !ok {
		t.Fatalf("expected reset, got %T", state(m))
	}
}

func TestWizardCancelScan(t *testing.T) {
	fake := &fakeScanner{block: true}
	var m tea.Model = New(context.Background(), fake, zap.NewNop().Sugar())

	m, _ = press(t, m, key(tea.KeyEnter), runes("10.0.0.1"), key(tea.KeyEnter), key(tea.KeyEnter))
	m, cmd := press(t, m, key(tea.KeyEnter))
	m, _ = press(t, m, key(tea.KeyEsc))

	e, ok := state(m).(workflow.Error)
	if !ok || e.Kind != scanerr.Cancelled {
		t.Fatalf("expected cancelled error, got %+v", state(m))
	}

	// the late completion of the cancelled scan is ignored
	m = drain(t, m, cmd)
	if _, ok := state(m).(workflow.Error); !ok {
		t.Fatalf("state changed to %T", state(m))
	}
}

func TestWizardInvalidTarget(t *testing.T) {
	var m tea.Model = New(context.Background(), &fakeScanner{}, zap.NewNop().Sugar())

	m, _ = press(t, m, key(tea.KeyEnter), runes("-bad.com"), key(tea.KeyEnter))
	if !strings.Contains(m.View(), "Error: ") {
		t.Fatalf("expected error view:\n%s", m.View())
	}
	m, _ = press(t, m, key(tea.KeyEsc))
	if _, ok := state(m).(workflow.SelectingScanType); !ok {
		t.Fatalf("expected reset, got %T", state(m))
	}
}

func TestWizardEscapeNavigatesBack(t *testing.T) {
	var m tea.Model = New(context.Background(), &fakeScanner{}, zap.NewNop().Sugar())

	m, _ = press(t, m, key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyEnter))
	m, _ = press(t, m, runes("host"), key(tea.KeyEnter), runes("80"), key(tea.KeyEsc))
	if et, ok := state(m).(workflow.EnteringTarget); !ok || et.Input != "host" {
		t.Fatalf("expected target preserved, got %+v", state(m))
	}

	m, _ = press(t, m, key(tea.KeyEsc))
	m, cmd := press(t, m, key(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("escape on the first step should quit")
	}
	if m.View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestDeliverGivesUpWhenAbandoned(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	ch <- progressMsg{}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() { result <- deliver(ctx, ch, scanDoneMsg{}) }()

	cancel()
	select {
	case ok := <-result:
		if ok {
			t.Fatal("message should not be delivered to a full, abandoned channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver blocked after cancellation")
	}

	if !deliver(context.Background(), make(chan tea.Msg, 1), scanDoneMsg{}) {
		t.Fatal("expected delivery with buffer space")
	}
}

func TestListenStopsOnClosedChannel(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	close(ch)
	if msg := listen(ch)(); msg != nil {
		t.Fatalf("expected nil message, got %T", msg)
	}
}
