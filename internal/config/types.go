package config

// Config is the top-level membank.yaml configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Workspace string          `yaml:"workspace"` // process-level default workspace path
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig controls the per-workspace SQLite store.
type StoreConfig struct {
	// Filename is the store path relative to the workspace root.
	Filename string `yaml:"filename"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, local, off
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`
}

// MetricsConfig controls the optional JSONL metrics export.
type MetricsConfig struct {
	File string `yaml:"file"`
}
