package cmd

import (
	"os"

	"github.com/cchalm/cloudops-assistant/internal/console"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat (default)",
	Long: `Starts an interactive chat session in the terminal. Type a question and press
Enter to send it; type /help for commands such as quick actions and /save.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := setupRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	repl := console.New(rt.invoker, os.Stdin, os.Stdout,
		console.WithLogger(rt.log),
		console.WithMetrics(rt.metrics),
	)
	return repl.Run(rt.ctx)
}
