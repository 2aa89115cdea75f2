package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelFinishesOnDone(t *testing.T) {
	m := newModel("seed admin", func() {}, nil)
	next, cmd := m.Update(doneMsg{details: []string{"created user 1"}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	fm := next.(model)
	if !fm.done || fm.err != nil {
		t.Fatalf("unexpected final state done=%v err=%v", fm.done, fm.err)
	}
	if !strings.Contains(fm.View(), "created user 1") {
		t.Fatalf("expected details in view, got %q", fm.View())
	}
}

func TestModelCtrlCCancels(t *testing.T) {
	cancelled := false
	m := newModel("loadgen", func() { cancelled = true }, nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	fm := next.(model)
	if !cancelled || !errors.Is(fm.err, context.Canceled) {
		t.Fatalf("expected cancellation, cancelled=%v err=%v", cancelled, fm.err)
	}
}

func TestModelTickAdvancesUntilDone(t *testing.T) {
	m := newModel("migrate", func() {}, nil)
	next, cmd := m.Update(tickMsg{})
	if next.(model).frame != 1 || cmd == nil {
		t.Fatal("expected tick to advance the spinner")
	}
	m.done = true
	if _, cmd := m.Update(tickMsg{}); cmd != nil {
		t.Fatal("expected no further ticks once done")
	}
}
