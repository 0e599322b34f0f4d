package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/terminal"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question or URL>",
		Short: "Ask one question in the current chat",
		Long: `Ask a question, or pass a URL to summarize the page. The answer is
added to the current chat; --new starts a fresh one first. With
--action-items a second answer lists next steps based on the first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
	cmd.Flags().Bool("new", false, "Start a new chat first")
	cmd.Flags().Bool("speak", false, "Read the answer aloud")
	cmd.Flags().String("model", "", "Model to use (for example claude or chatgpt)")
	cmd.Flags().Bool("action-items", false, "Follow the answer with a list of action items")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if model, _ := cmd.Flags().GetString("model"); model != "" {
		if _, err := a.ctrl.ChangeModel(model); err != nil {
			return err
		}
	}
	if fresh, _ := cmd.Flags().GetBool("new"); fresh {
		a.ctrl.NewChat()
	}

	content := strings.Join(args, " ")
	typ := summarize.DetectInputType(content)
	var entries []session.HistoryEntry
	if withItems, _ := cmd.Flags().GetBool("action-items"); withItems {
		entries, err = a.ctrl.SubmitWithActionItems(ctx, content, typ)
	} else {
		var entry session.HistoryEntry
		entry, err = a.ctrl.Submit(ctx, content, typ)
		entries = []session.HistoryEntry{entry}
	}
	var be *summarize.BackendError
	if err != nil && !errors.As(err, &be) {
		return err
	}

	printer := terminal.NewPrinter(cmd.OutOrStdout())
	spoken := make([]string, 0, len(entries))
	for _, e := range entries {
		printer.Entry(e)
		if t := e.SpokenText(); t != "" {
			spoken = append(spoken, t)
		}
	}

	if speak, _ := cmd.Flags().GetBool("speak"); speak {
		vs := newSpeechSession(a, nil)
		if outcome := vs.Speak(ctx, strings.Join(spoken, "\n\n")); outcome == voice.OutcomeFailed {
			printer.Notice("could not speak the answer, check voice.synthesizer in the config")
		}
	}
	return err
}
