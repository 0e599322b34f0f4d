// Package cmd provides the CLI commands for voxchat.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/config"
	"github.com/guilhermegouw/voxchat/internal/terminal"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voxchat",
		Short: "Voice-driven chat assistant",
		Long: `voxchat answers questions and summarizes web pages, and can be
driven by spoken commands.

Without a subcommand it starts an interactive session: type a question,
or /listen to treat each line as a spoken command such as "new chat",
"read", "delete chat" or "summarize <text>". Answers are read aloud with
the configured speech command.`,
		RunE:          runChat,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging to the data directory")
	cmd.PersistentFlags().String("config", "", "Config file to use instead of the standard locations")
	cmd.Flags().Bool("listen", false, "Start in listening mode")

	cmd.AddCommand(
		newAskCmd(),
		newSessionsCmd(),
		newExportCmd(),
		newModelsCmd(),
		newServeCmd(),
		newResetCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// signalContext is cancelled on interrupt or terminate.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newSpeechSession builds a voice session speaking through the configured
// command. Without a usable command the session cannot speak.
func newSpeechSession(a *app, rec voice.Recognizer) *voice.Session {
	var synth voice.Synthesizer
	if es := terminal.NewExecSynthesizer(a.cfg.Voice.Synthesizer); es.Available() {
		synth = es
	}
	opts := voice.SpeakOptions{Lang: a.cfg.Voice.Lang, Rate: a.cfg.Voice.Rate}
	return voice.New(rec, synth,
		voice.WithBroker(a.hub.Voice),
		voice.WithFallback(a.ctrl.Fallback),
		voice.WithLang(a.cfg.Voice.Lang),
		voice.WithSpeakOptions(opts),
	)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if config.NeedsSetup(a.cfg) {
		fmt.Fprintf(os.Stderr, "No API key for the default model. Set it in %s or the environment.\n",
			config.GlobalConfigPath())
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rec := terminal.NewLineRecognizer()
	vs := newSpeechSession(a, rec)
	vs.RegisterActions(a.ctrl.Actions())
	a.ctrl.SetSpeaker(vs)

	printer := terminal.NewPrinter(cmd.OutOrStdout())
	printer.Notice("voxchat %s, /help for commands", version)
	if listen, _ := cmd.Flags().GetBool("listen"); listen {
		if err := vs.Start(ctx); err != nil {
			printer.Error(err)
		}
	}

	return terminal.NewREPL(a.ctrl, vs, rec, a.hub, cmd.InOrStdin(), printer).Run(ctx)
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
