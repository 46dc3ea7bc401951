package cmd

import (
	"github.com/bnema/waydo/internal/config"
	"github.com/bnema/waydo/internal/logger"
	"github.com/spf13/cobra"
)

var (
	forcePortal bool
	configPath  string
	logLevel    string

	rootCmd = &cobra.Command{
		Use:   "waydo",
		Short: "waydo - synthetic input for Wayland",
		Long: `waydo injects keyboard and pointer events into a running Wayland session.
It uses the compositor's virtual keyboard and virtual pointer protocols when they
are available and falls back to the xdg-desktop-portal RemoteDesktop interface.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().BoolVarP(&forcePortal, "force-portal", "f", false, "Inject through xdg-desktop-portal even when the compositor protocols are available")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/waydo/waydo.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads the config and applies the log level, flag first.
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = config.Get().Logging.LogLevel
	}
	return logger.SetLevel(level)
}

// usePortal reports whether the portal backend is forced, by flag or config.
func usePortal(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("force-portal") {
		return forcePortal
	}
	return config.Get().Backend.ForcePortal
}
