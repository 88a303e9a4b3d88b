package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vnykmshr/guardrail"
	"github.com/vnykmshr/guardrail/internal/breaker"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	halfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type tickMsg time.Time

type model struct {
	reg      *guardrail.Registry
	interval time.Duration
}

func newModel(reg *guardrail.Registry, interval time.Duration) model {
	return model{reg: reg, interval: interval}
}

func (m model) Init() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-22s %-9s %s", "RESOURCE", "STRATEGY", "STATUS")))
	b.WriteString("\n")

	resources := m.reg.Resources()
	ids := make([]string, 0, len(resources))
	for id := range resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b.WriteString(renderRow(resources[id].Snapshot()))
		b.WriteString("\n")
	}
	if len(ids) == 0 {
		b.WriteString(dimStyle.Render("no resources registered"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	return b.String()
}

func renderRow(s guardrail.Snapshot) string {
	var status string
	switch s.Strategy {
	case "classic":
		status = classicStatus(*s.Classic)
	case "adaptive":
		status = adaptiveStatus(*s.Adaptive)
	case "dual":
		status = dualStatus(*s.Dual)
	default:
		status = dimStyle.Render("no breaker")
	}
	return fmt.Sprintf("%-22s %-9s %s", s.Identifier, s.Strategy, status)
}

func classicStatus(d breaker.Diagnostics) string {
	state := stateStyle(d.State).Render(d.State.String())
	extra := fmt.Sprintf("failures_in_window=%d", d.FailuresInWindow)
	if d.State == breaker.StateOpen {
		extra += fmt.Sprintf(" probe_in=%s", d.TimeUntilProbe.Round(time.Millisecond))
	}
	return fmt.Sprintf("%-18s %s", state, dimStyle.Render(extra))
}

func adaptiveStatus(m breaker.AdaptiveMetrics) string {
	return fmt.Sprintf("rejection=%.2f error_rate=%.2f p99=%.0fms",
		m.RejectionRate, m.ErrorRate, m.LatencyP99)
}

func dualStatus(m breaker.DualMetrics) string {
	state := stateStyle(m.Legacy.State).Render(m.Legacy.State.String())
	return fmt.Sprintf("active=%-8s legacy=%s", m.Active, state)
}

func stateStyle(state breaker.State) lipgloss.Style {
	switch state {
	case breaker.StateOpen:
		return openStyle
	case breaker.StateHalfOpen:
		return halfStyle
	default:
		return closedStyle
	}
}
