package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when PHOENIX_CONFIG is unset.
const DefaultConfigPath = "phoenix.yaml"

// ConfigEnv names the environment variable that overrides the config path.
const ConfigEnv = "PHOENIX_CONFIG"

// Config is the top-level engine configuration.
type Config struct {
	Provider   ProviderConfig `yaml:"provider"`
	Loop       LoopConfig     `yaml:"loop"`
	Memory     MemoryConfig   `yaml:"memory"`
	Fetch      FetchConfig    `yaml:"fetch"`
	MCPServers []MCPConfig    `yaml:"mcp_servers"`
	Task       string         `yaml:"task"` // Overrides DefaultTask when set.
}

// ProviderConfig selects and tunes the model backend.
type ProviderConfig struct {
	Kind        string      `yaml:"kind"` // openai | ollama
	BaseURL     string      `yaml:"base_url"`
	APIKey      string      `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model       string      `yaml:"model"`
	MaxTokens   int         `yaml:"max_tokens"`
	Temperature float64     `yaml:"temperature"`
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig enables retrying rate-limited completions. Zero MaxRetries
// leaves the provider unwrapped.
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"` // Duration string, e.g. "1s" or "500ms".
}

// LoopConfig bounds an agent run.
type LoopConfig struct {
	MaxLoop int    `yaml:"max_loop"` // 0 selects the per-variant default.
	Timeout string `yaml:"timeout"`  // Optional whole-run deadline.
}

// MemoryConfig locates the memory file.
type MemoryConfig struct {
	Path      string `yaml:"path"`
	ReadLimit int    `yaml:"read_limit"`
}

// FetchConfig tunes the fetch_url tool.
type FetchConfig struct {
	MaxChars int    `yaml:"max_chars"`
	Timeout  string `yaml:"timeout"`
}

// MCPConfig describes an MCP server whose tools are registered. Exactly one
// of Command or URL is set; URL connects over SSE.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// Defaults returns the configuration used when no file exists: OpenAI gpt-5
// with the key taken from OPENAI_API_KEY. The loop budget is left to
// Engine.MaxLoop.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:      KindOpenAI,
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     "gpt-5",
			MaxTokens: 2048,
		},
		Memory: MemoryConfig{
			Path:      "memory.md",
			ReadLimit: 1000,
		},
		Fetch: FetchConfig{
			MaxChars: 1000,
			Timeout:  "30s",
		},
	}
}

// ConfigPath returns PHOENIX_CONFIG, or DefaultConfigPath when it is unset.
func ConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}

	return DefaultConfigPath
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so secrets can live in the environment (or a .env file).
// Sections the file leaves out keep the values from Defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// Load reads the config at path, or at ConfigPath when path is empty. A
// missing file yields Defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}

	return cfg, err
}

// Validate reports the first inconsistency in the configuration.
func (c Config) Validate() error {
	p := c.Provider
	if _, ok := getFactory(p.Kind); !ok {
		return fmt.Errorf("engine: config: unknown provider kind %q", p.Kind)
	}
	if p.Kind == KindOpenAI && p.APIKey == "" {
		return errors.New("engine: config: OPENAI_API_KEY not found")
	}

	if p.MaxTokens < 0 {
		return fmt.Errorf("engine: config: max_tokens must not be negative, got %d", p.MaxTokens)
	}
	if p.Retry.MaxRetries < 0 {
		return fmt.Errorf("engine: config: retry.max_retries must not be negative, got %d", p.Retry.MaxRetries)
	}
	if err := checkDuration("retry.base_delay", p.Retry.BaseDelay); err != nil {
		return err
	}

	if c.Loop.MaxLoop < 0 {
		return fmt.Errorf("engine: config: max_loop must not be negative, got %d", c.Loop.MaxLoop)
	}
	if err := checkDuration("loop.timeout", c.Loop.Timeout); err != nil {
		return err
	}

	if c.Memory.Path == "" {
		return errors.New("engine: config: memory.path is required")
	}
	if err := checkDuration("fetch.timeout", c.Fetch.Timeout); err != nil {
		return err
	}

	mcpNames := make(map[string]struct{}, len(c.MCPServers))
	for _, m := range c.MCPServers {
		if m.Name == "" {
			return errors.New("engine: config: mcp server name is required")
		}
		if (m.Command == "") == (m.URL == "") {
			return fmt.Errorf("engine: config: mcp server %q: exactly one of command or url is required", m.Name)
		}
		if _, dup := mcpNames[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		mcpNames[m.Name] = struct{}{}
	}

	return nil
}

func checkDuration(field, s string) error {
	if _, err := parseDuration(s); err != nil {
		return fmt.Errorf("engine: config: invalid %s %q: %w", field, s, err)
	}

	return nil
}

// parseDuration treats the empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	return time.ParseDuration(s)
}
