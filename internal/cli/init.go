package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Prepare a workspace for membank",
	Long: `Create a starter membank.yaml and the .membank data directory
in the given directory, or the current one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, ".membank"), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	configPath := filepath.Join(dir, "membank.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	content := `# membank.yaml - memory bank configuration
name: membank

# Default workspace for MCP sessions that never pick one.
# Leave empty to use the server's working directory.
workspace: ""

store:
  filename: .membank/membank.db

# Embedding provider for semantic search: openai, local, or off.
embedding:
  provider: off
  model: text-embedding-3-small
  # api_key: ${env.OPENAI_API_KEY}
  # base_url: http://localhost:11434   # for provider: local

logging:
  level: info
  format: text  # text | json
  # file: .membank/membank.log

# metrics:
#   file: .membank/metrics.jsonl
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := writeGitignore(dir); err != nil {
		return err
	}

	fmt.Printf("Initialized membank workspace in %s\n", dir)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point your MCP client at 'membank serve'")
	fmt.Println("  2. Enable semantic search by setting embedding.provider in membank.yaml")

	return nil
}

func writeGitignore(dir string) error {
	path := filepath.Join(dir, ".membank", ".gitignore")
	content := `*.db
*.db-wal
*.db-shm
*.log
*.jsonl
`
	return os.WriteFile(path, []byte(content), 0644)
}
