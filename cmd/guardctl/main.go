// Command guardctl is a small operator tool for exercising a guardrail
// configuration file outside of an embedding application: it loads a
// set of resource definitions, registers them against an in-process
// Registry, and either runs a synthetic load generator against one of
// them or prints a snapshot of every registered resource.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/guardrail/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "guardctl",
		Short: "Inspect and exercise guardrail-protected resources",
		Long: `guardctl loads a resource config (bulkhead tickets, breaker
thresholds) and registers it against a Registry, for operators
validating a configuration before wiring it into a service.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a resource config file (yaml)")

	root.AddCommand(newRegisterCmd(&cfgFile))
	root.AddCommand(newInspectCmd(&cfgFile))
	root.AddCommand(newLoadCmd(&cfgFile))

	return root
}

// loadConfig reads cfgFile (if set) via viper and returns the
// identifier -> resourceConfig map it describes. Config keys are the
// lower_snake_case names in resourceConfig's mapstructure tags.
func loadConfig(cfgFile string) (map[string]resourceConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("guardctl")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg struct {
		Resources map[string]resourceConfig `mapstructure:"resources"`
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.Resources) == 0 {
		return nil, fmt.Errorf("config defines no resources")
	}
	return cfg.Resources, nil
}

func init() {
	// Ensure the ambient logger is initialised even when guardctl never
	// touches a ProtectedResource directly (e.g. --help).
	logging.Logger()
}
