package cmd

import (
	"fmt"
	"strings"

	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask a single question and print the reply",
	Long: `Sends one question to the remote function and prints the formatted reply.
This mode is designed for scripts; with --raw the undecoded JSON body is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&overrides.Raw, "raw", false, "Print the raw JSON reply")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	rt, err := setupRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	query := strings.Join(args, " ")

	if overrides.Raw {
		payload, err := rt.invoker.Invoke(rt.ctx, query)
		if payload.Raw != "" {
			fmt.Fprintln(cmd.OutOrStdout(), payload.Raw)
		}
		if err != nil {
			return fmt.Errorf("failed to invoke remote function: %w", err)
		}
		return nil
	}

	session := chat.NewSession(rt.invoker, chat.WithLogger(rt.log), chat.WithMetrics(rt.metrics))
	turn, err := session.Submit(rt.ctx, query)
	if err != nil {
		return fmt.Errorf("failed to submit query: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), turn.Text)
	return nil
}
