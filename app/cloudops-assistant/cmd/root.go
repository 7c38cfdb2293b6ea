package cmd

import (
	"log"

	"github.com/cchalm/cloudops-assistant/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cloudops-assistant",
	Short: "Chat with your AWS cloud-operations assistant",
	Long: `CloudOps Assistant forwards natural-language cloud-operations questions, such as
"list my EC2 instances" or "show billing summary", to a remote Lambda function
and shows its replies in a chat transcript. Requests are signed with AWS SigV4
using the credentials from the environment or a .env file.

Run without a subcommand to start an interactive chat.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRootConfig,
	RunE:              runChat,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(_ *cobra.Command, _ []string) error {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg = config.Load()
	applyFlagOverrides(&cfg)
	return cfg.Validate()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&overrides.Region, "region", "", "AWS region to sign requests for (default $AWS_DEFAULT_REGION or us-east-1)")
	rootCmd.PersistentFlags().StringVar(&overrides.EndpointURL, "endpoint", "", "Lambda function URL to send queries to (default $CLOUDOPS_ENDPOINT_URL)")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&overrides.LogJSON, "log-json", false, "Log as JSON")
}
