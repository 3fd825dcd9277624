package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChromemConfig configures the embedded chromem-go index.
type ChromemConfig struct {
	Path       string `yaml:"path"`
	Compress   bool   `yaml:"compress"`
	Collection string `yaml:"collection"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKeyEnv  string `yaml:"api_key_env"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// IndexConfig selects and configures the document index implementation.
type IndexConfig struct {
	Type      string         `yaml:"type"`
	BlevePath string         `yaml:"bleve_path,omitempty"`
	Dimension int            `yaml:"dimension,omitempty"`
	Chromem   *ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant    *QdrantConfig  `yaml:"qdrant,omitempty"`
}

// ValueTableConfig selects where learned values are persisted.
type ValueTableConfig struct {
	Type  string  `yaml:"type"`
	Path  string  `yaml:"path"`
	Alpha float64 `yaml:"alpha"`
}

// RankingConfig configures candidate retrieval and the default policy.
type RankingConfig struct {
	Policy      string  `yaml:"policy"`
	TopN        int     `yaml:"top_n"`
	BlendWeight float64 `yaml:"blend_weight"`
}

// VersionsConfig configures where version files are written.
type VersionsConfig struct {
	Dir             string `yaml:"dir"`
	DuplicatePolicy string `yaml:"duplicate_policy"`
}

// RewriterConfig selects and configures the chapter rewriter.
type RewriterConfig struct {
	Type        string   `yaml:"type"`
	Model       string   `yaml:"model,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	TimeoutSecs int      `yaml:"timeout_secs,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SummarizerConfig configures the preview summarizer.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Index      IndexConfig      `yaml:"index"`
	ValueTable ValueTableConfig `yaml:"value_table"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Versions   VersionsConfig   `yaml:"versions"`
	Rewriter   RewriterConfig   `yaml:"rewriter"`
	Logging    LoggingConfig    `yaml:"logging"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./versionrank.yaml first, then ~/.config/versionrank/config.yaml.
// If neither exists, it writes defaults to ~/.config/versionrank/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "versionrank.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values no component can work with.
func (c *AppConfig) Validate() error {
	switch c.Index.Type {
	case "memory", "bleve", "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown index type %q", c.Index.Type)
	}
	switch c.ValueTable.Type {
	case "json", "badger":
	default:
		return fmt.Errorf("unknown value_table type %q", c.ValueTable.Type)
	}
	if c.ValueTable.Alpha <= 0 || c.ValueTable.Alpha > 1 {
		return fmt.Errorf("value_table.alpha must be in (0,1], got %v", c.ValueTable.Alpha)
	}
	switch c.Ranking.Policy {
	case "learned", "lexical", "blend":
	default:
		return fmt.Errorf("unknown ranking policy %q", c.Ranking.Policy)
	}
	if c.Ranking.TopN < 1 {
		return fmt.Errorf("ranking.top_n must be at least 1, got %d", c.Ranking.TopN)
	}
	if c.Ranking.BlendWeight < 0 || c.Ranking.BlendWeight > 1 {
		return fmt.Errorf("ranking.blend_weight must be in [0,1], got %v", c.Ranking.BlendWeight)
	}
	switch c.Versions.DuplicatePolicy {
	case "overwrite", "reject":
	default:
		return fmt.Errorf("unknown versions.duplicate_policy %q", c.Versions.DuplicatePolicy)
	}
	switch c.Rewriter.Type {
	case "none", "gemini", "openai":
	default:
		return fmt.Errorf("unknown rewriter type %q", c.Rewriter.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "versionrank", "config.yaml"), nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".versionrank"
	}
	return filepath.Join(home, ".local", "share", "versionrank")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	data := defaultDataDir()
	if cfg.Index.Type == "" {
		cfg.Index.Type = "bleve"
	}
	switch cfg.Index.Type {
	case "bleve":
		if cfg.Index.BlevePath == "" {
			cfg.Index.BlevePath = filepath.Join(data, "versions.bleve")
		}
	case "chromem":
		if cfg.Index.Chromem == nil {
			cfg.Index.Chromem = &ChromemConfig{}
		}
		if cfg.Index.Chromem.Path == "" {
			cfg.Index.Chromem.Path = filepath.Join(data, "chromem")
		}
		if cfg.Index.Chromem.Collection == "" {
			cfg.Index.Chromem.Collection = "chapter_versions"
		}
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{}
		}
		if cfg.Index.Qdrant.Host == "" {
			cfg.Index.Qdrant.Host = "localhost"
		}
		if cfg.Index.Qdrant.Port == 0 {
			cfg.Index.Qdrant.Port = 6334
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "chapter_versions"
		}
	}
	if cfg.ValueTable.Type == "" {
		cfg.ValueTable.Type = "json"
	}
	if cfg.ValueTable.Path == "" {
		if cfg.ValueTable.Type == "badger" {
			cfg.ValueTable.Path = filepath.Join(data, "q_table.badger")
		} else {
			cfg.ValueTable.Path = filepath.Join(data, "q_table.json")
		}
	}
	if cfg.ValueTable.Alpha == 0 {
		cfg.ValueTable.Alpha = 0.5
	}
	if cfg.Ranking.Policy == "" {
		cfg.Ranking.Policy = "learned"
	}
	if cfg.Ranking.TopN == 0 {
		cfg.Ranking.TopN = 3
	}
	if cfg.Ranking.BlendWeight == 0 {
		cfg.Ranking.BlendWeight = 0.5
	}
	if cfg.Versions.Dir == "" {
		cfg.Versions.Dir = filepath.Join(data, "versions")
	}
	if cfg.Versions.DuplicatePolicy == "" {
		cfg.Versions.DuplicatePolicy = "overwrite"
	}
	if cfg.Rewriter.Type == "" {
		cfg.Rewriter.Type = "gemini"
	}
	switch cfg.Rewriter.Type {
	case "gemini":
		if cfg.Rewriter.APIKeyEnv == "" {
			cfg.Rewriter.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Rewriter.Model == "" {
			cfg.Rewriter.Model = "gemini-1.5-flash"
		}
	case "openai":
		if cfg.Rewriter.BaseURL == "" {
			cfg.Rewriter.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Rewriter.APIKeyEnv == "" {
			cfg.Rewriter.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Rewriter.Model == "" {
			cfg.Rewriter.Model = "gpt-4o-mini"
		}
		if cfg.Rewriter.TimeoutSecs == 0 {
			cfg.Rewriter.TimeoutSecs = 60
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
}
