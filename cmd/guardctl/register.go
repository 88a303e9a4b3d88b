package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/guardrail"
)

func newRegisterCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Validate a config file by registering every resource it defines",
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			for id, rc := range resources {
				opts, err := rc.toOptions()
				if err != nil {
					return fmt.Errorf("resource %q: %w", id, err)
				}
				res := guardrail.Register(id, opts)
				fmt.Fprintf(cmd.OutOrStdout(), "registered %q (%s)\n", id, res.Snapshot().Strategy)
			}
			return nil
		},
	}
}
