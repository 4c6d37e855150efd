package internal

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/internal/conversation"
)

// CompleteConversationIDs returns a ValidArgsFunction suggesting stored
// conversation ids. open is called lazily so completion works without a
// fully loaded config; any failure yields no suggestions.
func CompleteConversationIDs(open func() (conversation.Store, error)) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		store, err := open()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer store.Close()

		list, err := store.List(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []cobra.Completion
		for _, s := range list {
			if strings.HasPrefix(s.ID, toComplete) {
				out = append(out, cobra.CompletionWithDesc(s.ID, s.Name))
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
