package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/terminal"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"chats"},
		Short:   "Manage saved chats",
		Long: `Manage saved chats. A chat can be referred to by its number in
"voxchat sessions list" or by its id.`,
	}
	cmd.AddCommand(
		newSessionsListCmd(),
		newSessionsShowCmd(),
		newSessionsRenameCmd(),
		newSessionsDeleteCmd(),
		newSessionsClearCmd(),
	)
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			list := a.ctrl.Sessions()
			if kw, _ := cmd.Flags().GetString("search"); kw != "" {
				list = a.ctrl.Search(kw)
			}
			cur, _ := a.ctrl.CurrentID()
			terminal.NewPrinter(cmd.OutOrStdout()).Sessions(list, cur)
			return nil
		},
	}
	cmd.Flags().StringP("search", "s", "", "Only chats whose title or first question contains this text")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [chat]",
		Short: "Print a chat's history (default: the current chat)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := currentOrRef(a.ctrl, args)
			if err != nil {
				return err
			}
			p := terminal.NewPrinter(cmd.OutOrStdout())
			p.Notice("%s", s.Title)
			p.History(a.ctrl.SessionHistory(s.ID))
			return nil
		},
	}
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <chat> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := resolveSession(a.ctrl, args[0])
			if err != nil {
				return err
			}
			renamed, err := a.ctrl.RenameSession(s.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q\n", renamed.Title)
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <chat>",
		Aliases: []string{"rm"},
		Short:   "Delete a chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := resolveSession(a.ctrl, args[0])
			if err != nil {
				return err
			}
			a.ctrl.DeleteSession(s.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", s.Title)
			return nil
		},
	}
}

var errNotConfirmed = errors.New("refusing to delete everything without --yes")

func newSessionsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errNotConfirmed
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			n := len(a.ctrl.Sessions())
			a.ctrl.DeleteAllSessions()
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chats\n", n)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm")
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every chat and forget preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errNotConfirmed
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			a.ctrl.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "All chats and preferences cleared")
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm")
	return cmd
}
