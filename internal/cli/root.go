// Package cli implements the dialer command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/config"
	"github.com/grez-lucas/dialer-helper/internal/observability"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// app carries state shared by every command after PersistentPreRunE.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	flush   func()
}

func (a *app) close() {
	if a.flush != nil {
		a.flush()
		a.flush = nil
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dialer",
		Short:         "Pre-selects the default country in the Dynamics 365 dialer.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			logger, flush, err := observability.Install(cfg.Logger)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			a.cfg, a.logger, a.flush = cfg, logger, flush
			logger.Debug("Configuration loaded", zap.String("version", Version), zap.String("config", a.cfgFile))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./dialer.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newWatchCommand(a),
		newFillCommand(a),
		newSettingsCommand(a),
		newRulesCommand(a),
		newCountriesCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	a := &app{}
	defer a.close()

	if err := newRootCommand(a).ExecuteContext(context.Background()); err != nil {
		if a.logger != nil {
			a.logger.Error("Command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Overrides the root hook so version works without a valid config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
