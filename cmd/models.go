package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/config"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/terminal"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models and show the selected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			terminal.NewPrinter(cmd.OutOrStdout()).Models(summarize.Models, a.ctrl.Model())
			return nil
		},
	}
	update := &cobra.Command{
		Use:   "update",
		Short: "Refresh provider and model metadata from catwalk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enableDebug(cmd)
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			url, _ := cmd.Flags().GetString("url")
			providers, err := config.UpdateProviders(cfg.DataDir(), url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %d providers in %s\n",
				len(providers), config.ProvidersCachePath(cfg.DataDir()))
			return nil
		},
	}
	update.Flags().String("url", config.DefaultCatwalkURL, "Catwalk server to fetch from")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "Select the model for new questions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.ctrl.ChangeModel(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if _, _, err := a.cfg.Binding(m.ID); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", m.Name)
			return nil
		},
	})
	return cmd
}
