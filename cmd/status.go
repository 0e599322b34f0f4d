package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/config"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected model, providers, chats and configuration",
		Long: `Display the voxchat status including:
  - Selected model and the provider it is bound to
  - Whether each provider has a usable API key
  - Number of saved chats and the database location
  - Speech command and config file location`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if config.IsFirstRun() {
		fmt.Fprintln(out, "Status: using defaults (no config file yet)")
		fmt.Fprintln(out)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintln(out, "voxchat status")
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintln(out)

	model := a.ctrl.Model()
	if b, p, err := a.cfg.Binding(model); err != nil {
		fmt.Fprintf(out, "Model: %s (%v)\n", summarize.ModelName(model), err)
	} else {
		fmt.Fprintf(out, "Model: %s -> %s on %s\n", summarize.ModelName(model), b.Model, p.ID)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Providers:")
	ids := make([]string, 0, len(a.cfg.Providers))
	for id := range a.cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printProviderStatus(out, a.cfg, id)
	}
	fmt.Fprintln(out)

	schema, err := a.db.Version()
	if err != nil {
		schema = -1
	}
	fmt.Fprintf(out, "Chats: %d\n", len(a.ctrl.Sessions()))
	fmt.Fprintf(out, "Database: %s (schema %d)\n", a.db.Path(), schema)
	fmt.Fprintf(out, "Speech: %s (%s)\n", strings.Join(a.cfg.Voice.Synthesizer, " "), a.cfg.Voice.Lang)
	fmt.Fprintf(out, "Config File: %s\n", config.GlobalConfigPath())
	return nil
}

func printProviderStatus(out io.Writer, cfg *config.Config, id string) {
	p := cfg.Providers[id]
	name := p.Name
	if name == "" {
		name = id
	}

	status := "API key set"
	switch {
	case p.Disable:
		status = "Disabled"
	case p.APIKey == "":
		status = "No API key"
	default:
		if _, err := cfg.Resolve(p.APIKey); err != nil {
			status = "API key missing: " + err.Error()
		}
	}
	fmt.Fprintf(out, "  %s (%s): %s\n", name, p.Type, status)
}
