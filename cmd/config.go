package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/waydo/internal/config"
	"github.com/bnema/waydo/internal/ui"
	"github.com/bnema/waydo/internal/xkb"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	configForce       bool
	configInteractive bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waydo configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		token := "none"
		if cfg.Portal.RestoreToken != "" {
			token = "saved"
		}
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(LOG_LEVEL)"
		}

		const w = 20
		fmt.Fprintln(out, ui.FormatKeyValue("Config file", w, config.GetConfigPath()))
		fmt.Fprintln(out, ui.CreateSeparator(48))
		fmt.Fprintln(out, ui.FormatKeyValue("Force portal", w, strconv.FormatBool(cfg.Backend.ForcePortal)))
		fmt.Fprintln(out, ui.FormatKeyValue("Keyboard layout", w, cfg.Keyboard.Layout))
		fmt.Fprintln(out, ui.FormatKeyValue("Key delay", w, fmt.Sprintf("%d ms", cfg.Keyboard.KeyDelay)))
		fmt.Fprintln(out, ui.FormatKeyValue("Key hold", w, fmt.Sprintf("%d ms", cfg.Keyboard.KeyHold)))
		fmt.Fprintln(out, ui.FormatKeyValue("Persist portal", w, strconv.FormatBool(cfg.Portal.Persist)))
		fmt.Fprintln(out, ui.FormatKeyValue("Restore token", w, token))
		fmt.Fprintln(out, ui.FormatKeyValue("Capture timeout", w, fmt.Sprintf("%d s", cfg.Capture.NegotiationTimeout)))
		fmt.Fprintln(out, ui.FormatKeyValue("Log level", w, level))
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Configuration saved to "+config.GetConfigPath()))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := config.GetConfigPath()
		if _, err := os.Stat(path); err == nil && !configForce {
			fmt.Fprintln(out, ui.FormatWarning("Configuration already exists at "+path+", use --force to overwrite"))
			return nil
		}

		cfg := *config.Get()
		if configInteractive {
			if err := configForm(&cfg).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return fmt.Errorf("configuration cancelled: %w", err)
			}
		}

		if err := config.Update(cfg); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.FormatSuccess("Configuration initialized at "+path))
		return nil
	},
}

// configForm asks for the settings people actually change.
func configForm(cfg *config.Config) *huh.Form {
	layouts := xkb.Layouts()
	options := make([]huh.Option[string], len(layouts))
	for i, l := range layouts {
		options[i] = huh.NewOption(l, l)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Keyboard layout").
				Description("Layout used to turn text into key codes").
				Options(options...).
				Value(&cfg.Keyboard.Layout),
			huh.NewConfirm().
				Title("Always use the portal?").
				Description("Skip the compositor's virtual keyboard and pointer protocols").
				Value(&cfg.Backend.ForcePortal),
			huh.NewConfirm().
				Title("Remember the remote desktop grant?").
				Description("Saves a restore token so the permission dialog is shown once").
				Value(&cfg.Portal.Persist),
		),
	)
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().BoolVarP(&configInteractive, "interactive", "i", false, "Choose settings interactively")

	rootCmd.AddCommand(configCmd)
}
