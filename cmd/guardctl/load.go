package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/guardrail"
)

var errSynthetic = errors.New("synthetic failure")

func newLoadCmd(cfgFile *string) *cobra.Command {
	var resourceID string
	var requests int
	var failRate float64
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive synthetic traffic through one resource from a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			rc, ok := resources[resourceID]
			if !ok {
				return fmt.Errorf("no resource %q in config", resourceID)
			}
			opts, err := rc.toOptions()
			if err != nil {
				return err
			}
			res := guardrail.Register(resourceID, opts)

			for i := 0; i < requests; i++ {
				err := res.Acquire(func() error {
					if rand.Float64() < failRate {
						return errSynthetic
					}
					return nil
				})
				fmt.Fprintf(cmd.OutOrStdout(), "request %d: %v\n", i+1, err)
				if interval > 0 {
					time.Sleep(interval)
				}
			}

			printSnapshot(cmd, res.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&resourceID, "resource", "", "resource identifier from the config file")
	cmd.Flags().IntVar(&requests, "requests", 20, "number of synthetic requests to run")
	cmd.Flags().Float64Var(&failRate, "fail-rate", 0, "probability in [0,1] that a synthetic request fails")
	cmd.Flags().DurationVar(&interval, "interval", 0, "pause between requests")
	_ = cmd.MarkFlagRequired("resource")

	return cmd
}
