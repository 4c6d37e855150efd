package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/server"
	"github.com/zero-day-ai/cortex/internal/turn"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive question session",
	Long: `Start an interactive console. Every line is a question in the same
conversation, so follow-up questions see the earlier turns.

The console supports:
  - /new - start a new conversation
  - /id - print the current conversation id
  - /history - show the turns so far
  - /help - show available commands
  - /quit or /exit - exit console`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringP("conversation", "c", "", "Conversation id to resume")
	_ = consoleCmd.RegisterFlagCompletionFunc("conversation", internal.CompleteConversationIDs(openStore))
}

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// consoleState holds the state of the interactive console
type consoleState struct {
	asker          server.Asker
	store          conversation.Store
	conversationID string
	isTerminal     bool
	out            io.Writer
	errOut         io.Writer
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	id, _ := cmd.Flags().GetString("conversation")
	if id == "" {
		id = conversation.NewID()
	} else if err := conversation.ValidateID(id); err != nil {
		return internal.WrapError(internal.ExitError, "invalid conversation id", err)
	}

	s := &consoleState{
		asker:          a.handler,
		store:          a.store,
		conversationID: id,
		isTerminal:     term.IsTerminal(int(os.Stdin.Fd())),
		out:            cmd.OutOrStdout(),
		errOut:         cmd.ErrOrStderr(),
	}
	if s.isTerminal {
		fmt.Fprintln(s.out, promptStyle.Render("Cortex console")+mutedStyle.Render(" (type /help for commands)"))
		fmt.Fprintln(s.out, mutedStyle.Render("conversation "+s.conversationID))
	}
	return s.run(ctx, cmd.InOrStdin())
}

// run is the main console loop
func (s *consoleState) run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		if s.isTerminal {
			fmt.Fprint(s.out, promptStyle.Render("cortex> "))
		}

		line, err := reader.ReadString('\n')
		input := strings.TrimSpace(line)
		if err != nil && input == "" {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if s.handleSlashCommand(ctx, input) {
				return nil
			}
			continue
		}

		p := &eventPrinter{out: s.out, errOut: s.errOut, format: internal.FormatText}
		if err := p.drain(s.asker.Handle(ctx, turn.Request{Question: input, ConversationID: s.conversationID})); err != nil {
			fmt.Fprintln(s.errOut, streamWarnStyle.Render(err.Error()))
		}
		fmt.Fprintln(s.out)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handleSlashCommand processes slash commands
// Returns true if the console should exit
func (s *consoleState) handleSlashCommand(ctx context.Context, input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true
	case "/new":
		s.conversationID = conversation.NewID()
		fmt.Fprintln(s.out, mutedStyle.Render("conversation "+s.conversationID))
	case "/id":
		fmt.Fprintln(s.out, s.conversationID)
	case "/history":
		s.printHistory(ctx)
	case "/help":
		fmt.Fprint(s.out, consoleHelp)
	default:
		fmt.Fprintf(s.errOut, "Unknown command: %s (type /help for available commands)\n", input)
	}
	return false
}

func (s *consoleState) printHistory(ctx context.Context) {
	turns, err := s.store.Load(ctx, s.conversationID)
	if err != nil {
		fmt.Fprintf(s.errOut, "failed to load history: %v\n", err)
		return
	}
	if len(turns) == 0 {
		fmt.Fprintln(s.out, mutedStyle.Render("no turns yet"))
		return
	}
	for _, t := range turns {
		fmt.Fprintln(s.out, userStyle.Render("> "+t.UserText))
		fmt.Fprintln(s.out, t.ResponseText)
		fmt.Fprintln(s.out)
	}
}

const consoleHelp = `Commands:
  /new       start a new conversation
  /id        print the current conversation id
  /history   show the turns so far
  /help      show this help
  /quit      exit the console
`
