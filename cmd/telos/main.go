// Command telos is a thin demonstration front end over the telos library:
// repository lifecycle, intent creation, log rendering, stream management,
// constraint queries, and index maintenance. Apart from internal/config for
// its own settings, it talks only to the public github.com/telos-vcs/telos
// package.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/telos-vcs/telos/internal/config"
)

var (
	cfgFile string
	traceOn bool
	cfg     config.Config
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "telos",
	Short: "telos - content-addressed intent record store",
	Long:  `telos tracks why software changes were made: intents, decisions, constraints, and the code they bind to.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			if home, err := os.UserHomeDir(); err == nil {
				path = filepath.Join(home, ".telos.yaml")
			}
		}
		loaded, err := config.Load(v, path)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		if cmd.Flags().Changed("trace") {
			cfg.Trace = traceOn
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.telos.yaml)")
	rootCmd.PersistentFlags().BoolVar(&traceOn, "trace", false, "emit OpenTelemetry traces and metrics to stdout (only intent add installs the exporters)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(intentCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(constraintCmd)
	rootCmd.AddCommand(indexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
