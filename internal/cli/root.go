// Package cli implements the elt command line using Cobra.
package cli

import (
	"github.com/DavidD95/Prueba-Data-Engineering/internal/app"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	appOptions []app.Option
}

// NewRootCmd creates the "elt" command with all subcommands attached.
// Options are passed to app.New by every subcommand that builds one.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	ro := &rootOptions{appOptions: opts}

	rootCmd := &cobra.Command{
		Use:           "elt",
		Short:         "Batch ELT orchestrator: load new files, transform once, archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", "", "Path to config.yaml (default ./configs/config.yaml)")

	rootCmd.AddCommand(newRunCmd(ro))
	rootCmd.AddCommand(newHistoryCmd(ro))

	return rootCmd
}

// loadConfig reads the config file and lets non-empty flag values win.
func (ro *rootOptions) loadConfig(apply func(cfg *config.Config)) (*config.Config, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	return cfg, nil
}

func commandLogger(cmd *cobra.Command) *logger.Logger {
	return logger.GetDefault().WithField(logger.FieldComponent, "cli:"+cmd.Name())
}
