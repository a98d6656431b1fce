package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/membank-oss/membank/internal/config"
	"github.com/membank-oss/membank/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and configuration",
	Long:  "Validate that configuration, storage, and the embedding provider are properly set up.",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("membank doctor: checking your environment")
	fmt.Println()
	allOK := true

	fmt.Printf("  Go version: %s ✓\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s ✓\n", runtime.GOOS, runtime.GOARCH)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  Config:     FAILED (%s) ✗\n", err)
		fmt.Println("    → Run 'membank init' to create a workspace")
		allOK = false
	} else if err := config.Validate(cfg); err != nil {
		fmt.Printf("  Config:     INVALID (%s) ✗\n", err)
		allOK = false
	} else {
		fmt.Printf("  Config:     %s ✓\n", cfg.Name)
	}

	if cfg != nil {
		dir, err := os.Getwd()
		if err == nil {
			registry := store.NewRegistry(cfg.Store.Filename)
			if _, err := registry.Get(dir); err != nil {
				fmt.Printf("  Store:      FAILED (%s) ✗\n", err)
				allOK = false
			} else {
				fmt.Printf("  Store:      %s ✓\n", cfg.Store.Filename)
			}
			registry.Close()
		}

		switch cfg.Embedding.Provider {
		case "off", "":
			fmt.Println("  Embedding:  off (semantic search unavailable)")
		case "openai":
			if cfg.Embedding.APIKey == "" {
				fmt.Println("  Embedding:  openai, API key NOT SET ✗")
				fmt.Println("    → Set embedding.api_key or OPENAI_API_KEY")
				allOK = false
			} else {
				key := cfg.Embedding.APIKey
				fmt.Printf("  Embedding:  openai %s (***%s) ✓\n", cfg.Embedding.Model, key[max(0, len(key)-4):])
			}
		case "local":
			url := cfg.Embedding.BaseURL
			if url == "" {
				url = "http://localhost:11434"
			}
			fmt.Printf("  Embedding:  local %s at %s ✓\n", cfg.Embedding.Model, url)
		}
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See above for details.")
	}

	return nil
}
