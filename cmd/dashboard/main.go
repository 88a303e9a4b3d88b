// Command dashboard is a terminal UI that polls a guardrail Registry
// and renders a live table of every registered resource's breaker
// strategy and current readings.
//
// Run standalone, it registers a handful of illustrative resources and
// drives synthetic traffic through them so the table has something to
// show; an embedding application would instead point newModel at its
// own already-populated Registry.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vnykmshr/guardrail"
)

func main() {
	reg := guardrail.New()
	startDemoTraffic(reg)

	p := tea.NewProgram(newModel(reg, 500*time.Millisecond))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
