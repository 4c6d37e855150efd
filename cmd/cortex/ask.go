package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/turn"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask one question and stream the answer",
	Long: `Answer a single question. The question is taken from the arguments, or
from standard input when none are given.

Pass --conversation to continue an earlier conversation; otherwise a new
conversation is started and its id printed to stderr. With -o json every
stream event is written as one JSON object per line.`,
	Example: `  cortex ask "How did the exile shape the later reforms?"
  cortex ask -c 3f2c9a1e-... "And what came after?"
  echo "What is civic virtue?" | cortex ask -o json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("conversation", "c", "", "Conversation id to continue")
	_ = askCmd.RegisterFlagCompletionFunc("conversation", internal.CompleteConversationIDs(openStore))
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	id, _ := cmd.Flags().GetString("conversation")
	generated := id == ""
	if generated {
		id = conversation.NewID()
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p := &eventPrinter{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), format: globalFlags.GetOutputFormat()}
	err = p.drain(a.handler.Handle(cmd.Context(), turn.Request{Question: question, ConversationID: id}))

	if p.format == internal.FormatText {
		if p.wroteChunk {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if generated && err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", id)
		}
	}
	return err
}

func readQuestion(args []string, stdin io.Reader) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", internal.WrapError(internal.ExitError, "failed to read question", err)
		}
		question = strings.TrimSpace(string(b))
	}
	if question == "" {
		return "", internal.NewCLIError(internal.ExitError, "a question is required")
	}
	return question, nil
}
