package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	connectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type tickMsg time.Time

type model struct {
	monitor *stats.Monitor
	snap    stats.Snapshot
	width   int
	height  int
}

func newModel(monitor *stats.Monitor) model {
	return model{
		monitor: monitor,
		snap:    monitor.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Bubble Tea intercepts ctrl+c, so the signal handler in main
			// never fires on its own. Raise SIGINT ourselves so quitting the
			// dashboard goes through the same graceful shutdown chain.
			_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.snap = m.monitor.Snapshot()
		return m, m.tick()
	}
	return m, nil
}

func (m model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) View() string {
	snap := m.snap
	availableWidth := m.width - 4
	if availableWidth < 72 {
		availableWidth = 72
	}
	leftWidth := availableWidth/2 - 1
	rightWidth := availableWidth/2 - 1

	left := boxStyle.Width(leftWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderFeed(snap, leftWidth),
		"",
		m.renderFilters(snap, leftWidth),
	))
	right := boxStyle.Width(rightWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderAlerts(snap, rightWidth),
		"",
		m.renderRecent(snap, rightWidth),
	))

	content := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	footer := footerStyle.Render(" press q to quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(snap), content, footer)
}

func (m model) renderHeader(snap stats.Snapshot) string {
	state := degradedStyle.Render(snap.FeedState)
	if snap.FeedState == "connected" {
		state = connectedStyle.Render(snap.FeedState)
	}
	title := fmt.Sprintf("Whale Bot | Feed: %s | Uptime: %s | %s",
		state,
		formatUptime(snap.UptimeSeconds),
		time.Now().Format("15:04:05"))
	return headerStyle.Render(title)
}

func (m model) renderFeed(snap stats.Snapshot, width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Feed"))
	lines = append(lines, strings.Repeat("─", width-4))
	lines = append(lines, fmt.Sprintf("Received:%d Malformed:%d", snap.Received, snap.Malformed))
	lines = append(lines, fmt.Sprintf("Queue drops:%d Reconnects:%d", snap.FeedDrops, snap.Reconnects))
	return strings.Join(lines, "\n")
}

func (m model) renderFilters(snap stats.Snapshot, width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Filters"))
	lines = append(lines, strings.Repeat("─", width-4))

	if len(snap.Filtered) == 0 {
		lines = append(lines, "nothing filtered yet")
	} else {
		reasons := make([]string, 0, len(snap.Filtered))
		for reason := range snap.Filtered {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			lines = append(lines, fmt.Sprintf("%-18s %d", reason, snap.Filtered[reason]))
		}
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Enriched:%d Lookup errors:%d", snap.Enriched, snap.LookupErrors))
	return strings.Join(lines, "\n")
}

func (m model) renderAlerts(snap stats.Snapshot, width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Alerts"))
	lines = append(lines, strings.Repeat("─", width-4))
	lines = append(lines, fmt.Sprintf("Scored:%d Eligible:%d", snap.Scored, snap.AlertEligible))
	lines = append(lines, fmt.Sprintf("Sent:%d Failed:%d Dropped:%d", snap.Alerted, snap.AlertFailed, snap.AlertDropped))
	return strings.Join(lines, "\n")
}

func (m model) renderRecent(snap stats.Snapshot, width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Recent"))
	lines = append(lines, strings.Repeat("─", width-4))
	if len(snap.RecentAlerts) == 0 {
		lines = append(lines, "no alerts yet")
		return strings.Join(lines, "\n")
	}
	// Newest last, same order the ring keeps them.
	for _, line := range snap.RecentAlerts {
		lines = append(lines, truncate(line, width-4))
	}
	return strings.Join(lines, "\n")
}

func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
