package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [chat]",
		Short: "Export a chat (default: the current chat)",
		Long: `Export a chat as text, markdown, json or yaml.

With no --output the file is written to the working directory, named
after the chat title and today's date. Use --output - for stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}
	cmd.Flags().StringP("format", "f", "md", "Output format: text, md, json or yaml")
	cmd.Flags().StringP("output", "o", "", "Output file or directory, - for stdout")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	exp, err := export.NewExporter(format)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := currentOrRef(a.ctrl, args)
	if err != nil {
		return err
	}
	t := export.Transcript{Session: s, History: a.ctrl.SessionHistory(s.ID)}

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		return exp.Export(t, cmd.OutOrStdout())
	}

	path := exportPath(output, export.FileName(s.Title, time.Now(), exp.Extension()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeExport(exp, t, f); err != nil {
		os.Remove(path)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", s.Title, path)
	return nil
}

// exportPath joins name to output when output is a directory or empty.
func exportPath(output, name string) string {
	if output == "" {
		return name
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}

func writeExport(exp export.Exporter, t export.Transcript, f io.WriteCloser) error {
	if err := exp.Export(t, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
