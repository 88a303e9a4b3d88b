package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/guardrail"
)

func newInspectCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Register a config file's resources and print their initial snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(resources))
			for id, rc := range resources {
				opts, err := rc.toOptions()
				if err != nil {
					return fmt.Errorf("resource %q: %w", id, err)
				}
				guardrail.Register(id, opts)
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				printSnapshot(cmd, guardrail.Resources()[id].Snapshot())
			}
			return nil
		},
	}
}

func printSnapshot(cmd *cobra.Command, s guardrail.Snapshot) {
	out := cmd.OutOrStdout()
	switch s.Strategy {
	case "classic":
		fmt.Fprintf(out, "%-20s classic  state=%-10s failures_in_window=%d\n",
			s.Identifier, s.Classic.State, s.Classic.FailuresInWindow)
	case "adaptive":
		fmt.Fprintf(out, "%-20s adaptive rejection_rate=%.3f error_rate=%.3f latency_p99=%.1fms\n",
			s.Identifier, s.Adaptive.RejectionRate, s.Adaptive.ErrorRate, s.Adaptive.LatencyP99)
	case "dual":
		fmt.Fprintf(out, "%-20s dual     active=%-9s legacy_state=%-10s\n",
			s.Identifier, s.Dual.Active, s.Dual.Legacy.State)
	default:
		fmt.Fprintf(out, "%-20s no circuit breaker configured\n", s.Identifier)
	}
}
