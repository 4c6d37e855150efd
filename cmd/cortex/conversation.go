package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/conversation"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage stored conversations",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  withStore(runConversationList),
}

var conversationShowCmd = &cobra.Command{
	Use:               "show <id>",
	Short:             "Show every turn of a conversation",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: internal.CompleteConversationIDs(openStore),
	RunE:              withStore(runConversationShow),
}

var conversationRenameCmd = &cobra.Command{
	Use:               "rename <id> <name>",
	Short:             "Set the display name of a conversation",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: internal.CompleteConversationIDs(openStore),
	RunE:              withStore(runConversationRename),
}

var conversationDeleteCmd = &cobra.Command{
	Use:               "delete <id>",
	Short:             "Delete a conversation",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: internal.CompleteConversationIDs(openStore),
	RunE:              withStore(runConversationDelete),
}

func init() {
	conversationCmd.AddCommand(conversationListCmd, conversationShowCmd, conversationRenameCmd, conversationDeleteCmd)
}

type storeRunE func(cmd *cobra.Command, args []string, store conversation.Store) error

// withStore opens the conversation store for the duration of one command.
func withStore(run storeRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return run(cmd, args, store)
	}
}

func runConversationList(cmd *cobra.Command, args []string, store conversation.Store) error {
	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	f := formatter(cmd)
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return f.PrintJSON(list)
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.TurnCount), s.UpdatedAt.Local().Format(time.DateTime)})
	}
	return f.PrintTable([]string{"ID", "NAME", "TURNS", "UPDATED"}, rows)
}

func runConversationShow(cmd *cobra.Command, args []string, store conversation.Store) error {
	c, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return formatter(cmd).PrintJSON(c)
	}

	out := cmd.OutOrStdout()
	title := c.ID
	if c.Name != "" {
		title = c.Name + " (" + c.ID + ")"
	}
	fmt.Fprintln(out, diagramTitleStyle.Render(title))
	for i, t := range c.Turns {
		fmt.Fprintf(out, "\n%s\n%s\n", userStyle.Render(fmt.Sprintf("[%d] > %s", i+1, t.UserText)), t.ResponseText)
		for _, d := range t.Diagrams {
			fmt.Fprintf(out, "\n%s\n```mermaid\n%s\n```\n", mutedStyle.Render(d.SourceQuestion), d.Code)
		}
	}
	return nil
}

func runConversationRename(cmd *cobra.Command, args []string, store conversation.Store) error {
	if _, err := store.Get(cmd.Context(), args[0]); err != nil {
		return err
	}
	if err := store.Save(cmd.Context(), args[0], args[1], nil); err != nil {
		return err
	}
	return formatter(cmd).PrintSuccess(fmt.Sprintf("renamed %s to %q", args[0], args[1]))
}

func runConversationDelete(cmd *cobra.Command, args []string, store conversation.Store) error {
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	return formatter(cmd).PrintSuccess("deleted " + args[0])
}
