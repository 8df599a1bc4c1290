package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authProvider string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
	Long: `Configure and verify credentials for OpenAI, Jira and Confluence.

Credentials are stored in the knowbase config file with restricted
permissions. Jira and Confluence use basic auth with an Atlassian API
token; OpenAI uses an API key.

Examples:
  knowbase auth set --provider openai
  knowbase auth set --provider jira
  knowbase auth test`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Interactively configure a provider",
	RunE:  runAuthSet,
}

var authTestCmd = &cobra.Command{
	Use:   "test [provider]",
	Short: "Verify that configured providers are reachable",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthTest,
}

func init() {
	authSetCmd.Flags().StringVar(&authProvider, "provider", "", "provider to configure (openai, jira, confluence)")
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authTestCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errors.New("config store not available")
	}

	settings, err := services.Settings.Load()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	switch authProvider {
	case "openai":
		key, err := promptSecret(cmd, reader, "OpenAI API key: ")
		if err != nil {
			return err
		}
		settings.OpenAI.APIKey = key
	case "jira":
		settings.Jira.BaseURL = promptLine(cmd, reader, "Jira base URL (https://yoursite.atlassian.net): ")
		settings.Jira.Email = promptLine(cmd, reader, "Account email: ")
		token, err := promptSecret(cmd, reader, "API token: ")
		if err != nil {
			return err
		}
		settings.Jira.APIToken = token
		settings.Jira.ProjectKeys = splitCSV(promptLine(cmd, reader, "Project keys (comma-separated, empty for all): "))
	case "confluence":
		settings.Confluence.BaseURL = promptLine(cmd, reader, "Confluence base URL (https://yoursite.atlassian.net/wiki): ")
		settings.Confluence.Email = promptLine(cmd, reader, "Account email: ")
		token, err := promptSecret(cmd, reader, "API token: ")
		if err != nil {
			return err
		}
		settings.Confluence.APIToken = token
		settings.Confluence.SpaceKeys = splitCSV(promptLine(cmd, reader, "Space keys (comma-separated, empty for all): "))
	case "":
		return errors.New("--provider is required (openai, jira, confluence)")
	default:
		return fmt.Errorf("unknown provider %q (expected openai, jira or confluence)", authProvider)
	}

	if err := services.Settings.Save(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	cmd.Printf("Saved %s credentials to %s\n", authProvider, services.Settings.Path())
	return nil
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	if len(services.Testers) == 0 {
		return errors.New("no providers configured")
	}

	var names []string
	if len(args) > 0 {
		if _, ok := services.Testers[args[0]]; !ok {
			return fmt.Errorf("provider %q is not configured", args[0])
		}
		names = args
	} else {
		for name := range services.Testers {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var failed bool
	for _, name := range names {
		if err := services.Testers[name](cmd.Context()); err != nil {
			cmd.Printf("  %-10s FAILED: %v\n", name, err)
			failed = true
			continue
		}
		cmd.Printf("  %-10s ok\n", name)
	}
	if failed {
		return errors.New("one or more providers failed the connection test")
	}
	return nil
}

func promptLine(cmd *cobra.Command, reader *bufio.Reader, prompt string) string {
	cmd.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptSecret reads without echo when stdin is a terminal, falling back to
// a plain line read otherwise so piped input and tests still work.
func promptSecret(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
