package cmd

import (
	"github.com/cchalm/cloudops-assistant/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat in a browser",
	Long: `Starts an HTTP server with a single-page chat. Every browser tab gets its own
session and transcript. Prometheus metrics are exposed on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&overrides.ListenAddr, "addr", "", "Address to listen on (default $LISTEN_ADDR or :8080)")
	serveCmd.Flags().IntVar(&overrides.MaxSessions, "max-sessions", 0, "Maximum number of live sessions (default $MAX_SESSIONS or 100)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setupRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	rt.log.Info("Starting CloudOps Assistant web chat", logrus.Fields{
		"addr":         cfg.ListenAddr,
		"max_sessions": cfg.MaxSessions,
	})
	srv := server.New(rt.invoker, server.Options{
		Addr:        cfg.ListenAddr,
		MaxSessions: cfg.MaxSessions,
		Logger:      rt.log,
		Metrics:     rt.metrics,
	})
	return srv.ListenAndServe(rt.ctx)
}
