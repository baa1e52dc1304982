package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"astock-agent/internal/ledger"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/timestamp"
)

type AgentConfig struct {
	Signature string `yaml:"signature"`
	BaseModel string `yaml:"basemodel"`
	Enabled   bool   `yaml:"enabled"`
}

type Config struct {
	Market      string        `yaml:"market"`
	DataDir     string        `yaml:"data_dir"`
	LogPath     string        `yaml:"log_path"`
	InitDate    string        `yaml:"init_date"`
	EndDate     string        `yaml:"end_date"`
	InitialCash float64       `yaml:"initial_cash"`
	Symbols     []string      `yaml:"symbols"`
	Agents      []AgentConfig `yaml:"agents"`
	Runner      struct {
		MaxSteps    int `yaml:"max_steps"`
		MaxRetries  int `yaml:"max_retries"`
		BaseDelayMs int `yaml:"base_delay_ms"`
		// LogRetentionDays gzips session logs older than this; 0 keeps them.
		LogRetentionDays int `yaml:"log_retention_days"`
	} `yaml:"runner"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		APIKeyEnv   string  `yaml:"api_key_env"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`
	Memory struct {
		Enabled       bool   `yaml:"enabled"`
		DBFile        string `yaml:"db_file"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"memory"`
	News struct {
		Enabled        bool     `yaml:"enabled"`
		Sources        []string `yaml:"sources"`
		MaxArticles    int      `yaml:"max_articles"`
		CacheMinutes   int      `yaml:"cache_minutes"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"news"`
}

// SSE50 is the default symbol universe.
var SSE50 = []string{
	"600519.SH", "601318.SH", "600036.SH", "601899.SH", "600900.SH",
	"601166.SH", "600276.SH", "600030.SH", "603259.SH", "688981.SH",
	"688256.SH", "601398.SH", "688041.SH", "601211.SH", "601288.SH",
	"601328.SH", "688008.SH", "600887.SH", "600150.SH", "601816.SH",
	"601127.SH", "600031.SH", "688012.SH", "603501.SH", "601088.SH",
	"600309.SH", "601601.SH", "601668.SH", "603993.SH", "601012.SH",
	"601728.SH", "600690.SH", "600809.SH", "600941.SH", "600406.SH",
	"601857.SH", "601766.SH", "601919.SH", "600050.SH", "600760.SH",
	"601225.SH", "600028.SH", "601988.SH", "688111.SH", "601985.SH",
	"601888.SH", "601628.SH", "601600.SH", "601658.SH", "600048.SH",
}

func (c *Config) Validate() error {
	switch c.Market {
	case pricelog.MarketCN, pricelog.MarketUS, pricelog.MarketCrypto:
	default:
		return fmt.Errorf("invalid market '%s': must be 'cn', 'us' or 'crypto'", c.Market)
	}
	if c.DataDir == "" {
		return errors.New("data_dir cannot be empty")
	}
	if _, err := timestamp.Parse(c.InitDate); err != nil {
		return fmt.Errorf("invalid init_date '%s': %w", c.InitDate, err)
	}
	if _, err := timestamp.Parse(c.EndDate); err != nil {
		return fmt.Errorf("invalid end_date '%s': %w", c.EndDate, err)
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive, got %.2f", c.InitialCash)
	}
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if strings.TrimSpace(a.Signature) == "" {
			return errors.New("agent signature cannot be empty")
		}
		if seen[a.Signature] {
			return fmt.Errorf("duplicate agent signature '%s'", a.Signature)
		}
		seen[a.Signature] = true
	}
	if c.Runner.MaxRetries < 1 {
		return fmt.Errorf("runner.max_retries must be at least 1, got %d", c.Runner.MaxRetries)
	}
	switch c.LLM.Provider {
	case "noop", "openai", "claude":
	default:
		return fmt.Errorf("llm.provider must be 'noop', 'openai' or 'claude', got '%s'", c.LLM.Provider)
	}
	return nil
}

// LedgerRoot is the directory holding every agent's position file.
func (c *Config) LedgerRoot() string {
	return ledger.ResolveRoot(c.LogPath, c.DataDir)
}

// PricePaths locates the market's price logs under the data directory.
func (c *Config) PricePaths() pricelog.Paths {
	return pricelog.DefaultPaths(c.DataDir, c.Market)
}

// MemoryPath is the decision memory database, relative paths resolved under
// the ledger root.
func (c *Config) MemoryPath() string {
	if filepath.IsAbs(c.Memory.DBFile) {
		return c.Memory.DBFile
	}
	return filepath.Join(c.LedgerRoot(), c.Memory.DBFile)
}

// EnabledAgents returns agents with enabled set, in configuration order.
func (c *Config) EnabledAgents() []AgentConfig {
	var out []AgentConfig
	for _, a := range c.Agents {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// Agent looks up an agent by signature.
func (c *Config) Agent(signature string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Signature == signature {
			return a, true
		}
	}
	return AgentConfig{}, false
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, applies defaults and environment overrides, and
// validates the result.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MARKET"); v != "" {
		c.Market = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("INIT_DATE"); v != "" {
		c.InitDate = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		c.EndDate = v
	}
	// SIGNATURE narrows the run to a single agent, adding it when unknown.
	if v := os.Getenv("SIGNATURE"); v != "" {
		a, ok := c.Agent(v)
		if !ok {
			a = AgentConfig{Signature: v, BaseModel: v}
		}
		a.Enabled = true
		c.Agents = []AgentConfig{a}
	}
}

func (c *Config) applyDefaults() {
	if c.Market == "" {
		c.Market = pricelog.MarketCN
	}
	c.Market = strings.ToLower(c.Market)
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogPath == "" {
		c.LogPath = "./data/agent_data_astock"
	}
	if c.InitialCash == 0 {
		c.InitialCash = 100000
	}
	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), SSE50...)
	}
	if c.Runner.MaxSteps == 0 {
		c.Runner.MaxSteps = 10
	}
	if c.Runner.MaxRetries == 0 {
		c.Runner.MaxRetries = 3
	}
	if c.Runner.BaseDelayMs == 0 {
		c.Runner.BaseDelayMs = 500
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "noop"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	if c.Memory.DBFile == "" {
		c.Memory.DBFile = "memory.db"
	}
	if c.Memory.RetentionDays == 0 {
		c.Memory.RetentionDays = 90
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 15
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 60
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 30
	}
}
