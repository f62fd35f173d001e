// Package tui renders the bot's counters as a live terminal dashboard. It is
// a read-only view over the stats monitor; alert delivery never depends on it.
package tui

import (
	"context"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
)

var log = logrus.WithField("module", "tui")

// UI owns the bubbletea program lifecycle.
type UI struct {
	monitor *stats.Monitor

	mu            sync.Mutex
	program       *tea.Program
	programDone   chan struct{}
	stopRequested bool
}

func New(monitor *stats.Monitor) *UI {
	return &UI{
		monitor:     monitor,
		programDone: make(chan struct{}),
	}
}

// Start launches the dashboard in the background. On a non-terminal stdout
// (systemd, docker without tty) it does nothing and the bot just logs.
func (u *UI) Start(ctx context.Context) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		close(u.programDone)
		return
	}

	u.mu.Lock()
	u.program = tea.NewProgram(newModel(u.monitor), tea.WithAltScreen())
	program := u.program
	u.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("dashboard panic: %v", r)
			}
			close(u.programDone)
		}()
		if _, err := program.Run(); err != nil {
			log.Errorf("dashboard: %v", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			program.Quit()
		case <-u.programDone:
		}
	}()
}

// Stop quits the program and waits briefly for the terminal to be restored,
// so shutdown log lines don't land inside the alt screen.
func (u *UI) Stop() {
	u.mu.Lock()
	if u.stopRequested {
		u.mu.Unlock()
		return
	}
	u.stopRequested = true
	program := u.program
	u.mu.Unlock()

	if program == nil {
		return
	}
	program.Quit()
	select {
	case <-u.programDone:
	case <-time.After(time.Second):
	}
}
