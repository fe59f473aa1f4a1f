package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/repo"
	errx "github.com/tickertalk/server/internal/core/error"
)

func newRootCmd() *cobra.Command {
	var session string

	root := &cobra.Command{
		Use:   "tickertalk",
		Short: "Ask about stock prices and company news",
		Long: `tickertalk routes a question to a price specialist (SQL over daily OHLCV rows),
a news specialist (recent and similar headlines) or a fallback, then writes one
answer. Conversation memory is kept in Redis per session.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&session, "session", "", "conversation id (default: a new random id)")

	sessionID := func() string {
		if session == "" {
			session = uuid.NewString()
		}
		return session
	}

	root.AddCommand(newAskCmd(sessionID), newChatCmd(sessionID), newResetCmd(sessionID))
	return root
}

func newAskCmd(sessionID func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.runner.Invoke(ctx, model.QueryInput{
				ConversationID: sessionID(),
				Query:          strings.Join(args, " "),
			})
			if answer != "" {
				fmt.Fprintln(cmd.OutOrStdout(), answer)
			}
			return err
		},
	}
}

func newChatCmd(sessionID func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			id := sessionID()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (type 'exit' to quit)\n", id)

			return chatLoop(cmd.InOrStdin(), out, func(q string) string {
				answer, err := a.runner.Invoke(ctx, model.QueryInput{ConversationID: id, Query: q})
				if err != nil && answer == "" {
					return "error: " + errx.SafeMessage(err)
				}
				return answer
			})
		},
	}
}

// chatLoop reads one question per line until EOF or an exit word.
func chatLoop(in io.Reader, out io.Writer, ask func(string) string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		fmt.Fprintf(out, "bot> %s\n", ask(q))
	}
}

func newResetCmd(sessionID func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget a session's conversation memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rdb, err := cfg.Redis.New(ctx)
			if err != nil {
				return fmt.Errorf("initialise redis client: %w", err)
			}
			defer rdb.Close()

			id := sessionID()
			if err := repo.NewRedisMemoryRepository(rdb, cfg.Conversation.TTL).Clear(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s cleared\n", id)
			return nil
		},
	}
}
