package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question against the knowledge base",
	Long: `Runs one question through the chat pipeline and prints the answer.
Answers grounded in synced documents include a numbered sources section;
questions the knowledge base cannot answer fall back to general knowledge
with a disclaimer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if services.Chat == nil {
		return errors.New("chat service not configured; run 'knowbase auth set' first")
	}

	result := services.Chat.Run(cmd.Context(), args[0])

	cmd.Println(result.Response)
	if result.ResponseType == domain.ResponseError && result.Err != "" {
		cmd.PrintErrf("(error: %s)\n", result.Err)
	}
	return nil
}
