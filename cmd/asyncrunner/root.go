package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	color      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "asyncrunner",
		Short: "Cooperative future executor over a primary and a worker queue",
		Long: `asyncrunner polls futures on a single-threaded primary queue and a
goroutine worker pool, and drives the primary queue until no task is pending.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyColorMode(opts.color)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off); overrides the config file")
	root.PersistentFlags().StringVar(&opts.color, "color", "auto", "Colorize output (auto|on|off)")

	root.AddCommand(
		newRunCmd(opts),
		newVersionCmd(),
	)

	return root
}

func applyColorMode(mode string) error {
	switch mode {
	case "auto", "":
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
	}
	return nil
}
