package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/guilhermegouw/voxchat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit the global config file",
		Long: `Read and edit single fields of the global config file using dotted
paths, for example:

  voxchat config set providers.anthropic.api_key '$ANTHROPIC_API_KEY'
  voxchat config set voice.synthesizer '["say", "-v", "Samantha"]'
  voxchat config get options.default_model`,
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config with every provider and model binding",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Replace an existing file")

	cmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), config.GlobalConfigPath())
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one field",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, ok, err := config.GetField(config.GlobalConfigPath(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not set", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one field; JSON values are stored as JSON",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.SetField(config.GlobalConfigPath(), args[0], parseValue(args[1])); err != nil {
					return err
				}
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("config no longer loads: %w", err)
				}
				for _, e := range config.Validate(cfg).Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", e)
				}
				return nil
			},
		},
	)
	return cmd
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GlobalConfigPath()
	}
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to replace it", path)
		}
	}
	if err := config.SaveToFile(config.Defaults().Starter(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// parseValue keeps numbers, booleans, arrays and objects typed; anything
// else is a string.
func parseValue(s string) any {
	if gjson.Valid(s) {
		return gjson.Parse(s).Value()
	}
	return s
}
