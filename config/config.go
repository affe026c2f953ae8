package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/memory"
	"github.com/hupe1980/mcpagents/transform"
)

// Defaults applied to documents that omit a value.
const (
	DefaultStepLimit            = 15
	DefaultMaxParallelToolCalls = 5
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultServerTimeout        = 30 * time.Second
	DefaultPlanningInterval     = 5
)

// Server transports. Servers with a url default to TransportHTTP, all
// others to TransportStdio.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "streamable-http"
	TransportSSE   = "sse"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the root document.
type Config struct {
	Settings Settings                `yaml:"settings" json:"settings"`
	LLM      LLMConfig               `yaml:"llm" json:"llm"`
	Servers  map[string]ServerConfig `yaml:"servers,omitempty" json:"servers,omitempty"`
	Agents   []AgentConfig           `yaml:"agents,omitempty" json:"agents,omitempty"`
	// ExposeTools lists transformed backend tools the proxy serves directly,
	// next to the agents. Names refer to the transformed tool names.
	ExposeTools []string `yaml:"expose_tools,omitempty" json:"expose_tools,omitempty"`
}

// Settings holds process wide defaults.
type Settings struct {
	LogLevel             string `yaml:"log_level" json:"log_level"`
	LogFormat            string `yaml:"log_format" json:"log_format"`
	StepLimit            int    `yaml:"step_limit" json:"step_limit"`
	MaxParallelToolCalls int    `yaml:"max_parallel_tool_calls" json:"max_parallel_tool_calls"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int64   `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// ServerConfig describes an MCP server and the overrides applied to its
// tools. Stdio servers are launched from Command; remote servers are reached
// at URL.
type ServerConfig struct {
	Transport     string                        `yaml:"transport,omitempty" json:"transport,omitempty"`
	Command       string                        `yaml:"command,omitempty" json:"command,omitempty"`
	Args          []string                      `yaml:"args,omitempty" json:"args,omitempty"`
	Env           map[string]string             `yaml:"env,omitempty" json:"env,omitempty"`
	URL           string                        `yaml:"url,omitempty" json:"url,omitempty"`
	Headers       map[string]string             `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout       time.Duration                 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ToolOverrides map[string]transform.Override `yaml:"tool_overrides,omitempty" json:"tool_overrides,omitempty"`
}

// Remote reports whether the server is reached over HTTP.
func (s ServerConfig) Remote() bool {
	return s.Transport == TransportHTTP || s.Transport == TransportSSE
}

// EnvList renders Env as sorted KEY=VALUE entries.
func (s ServerConfig) EnvList() []string {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+s.Env[k])
	}

	return env
}

// AgentConfig describes one agent. Zero limits inherit from Settings.
type AgentConfig struct {
	Name                 string   `yaml:"name" json:"name"`
	Description          string   `yaml:"description,omitempty" json:"description,omitempty"`
	Instructions         string   `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	SystemPrompt         string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Servers              []string `yaml:"servers,omitempty" json:"servers,omitempty"`
	AllowedTools         []string `yaml:"allowed_tools,omitempty" json:"allowed_tools,omitempty"`
	BlockedTools         []string `yaml:"blocked_tools,omitempty" json:"blocked_tools,omitempty"`
	StepLimit            int      `yaml:"step_limit,omitempty" json:"step_limit,omitempty"`
	MaxParallelToolCalls int      `yaml:"max_parallel_tool_calls,omitempty" json:"max_parallel_tool_calls,omitempty"`
	Memory               string   `yaml:"memory,omitempty" json:"memory,omitempty"`
	Planning             bool     `yaml:"planning,omitempty" json:"planning,omitempty"`
	PlanningInterval     int      `yaml:"planning_interval,omitempty" json:"planning_interval,omitempty"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references. Unset variables
// without a default expand to the empty string.
func ExpandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		parts := envRef.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(parts[1])); ok && v != "" {
			return []byte(v)
		}
		return parts[3]
	})
}

// Parse expands environment references, decodes the document, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(ExpandEnv(data)))
		dec.KnownFields(true)

		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// LoadEnvFiles loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
// Without arguments ".env" is tried.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	return nil
}

// ApplyDefaults fills unset settings and propagates them to agents.
func (c *Config) ApplyDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = DefaultLogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = DefaultLogFormat
	}
	if c.Settings.StepLimit == 0 {
		c.Settings.StepLimit = DefaultStepLimit
	}
	if c.Settings.MaxParallelToolCalls == 0 {
		c.Settings.MaxParallelToolCalls = DefaultMaxParallelToolCalls
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}

	for name, s := range c.Servers {
		if s.Timeout == 0 {
			s.Timeout = DefaultServerTimeout
		}
		if s.Transport == "" {
			s.Transport = TransportStdio
			if s.URL != "" {
				s.Transport = TransportHTTP
			}
		}
		c.Servers[name] = s
	}

	for i := range c.Agents {
		a := &c.Agents[i]
		if a.StepLimit == 0 {
			a.StepLimit = c.Settings.StepLimit
		}
		if a.MaxParallelToolCalls == 0 {
			a.MaxParallelToolCalls = c.Settings.MaxParallelToolCalls
		}
		if a.Memory == "" {
			a.Memory = string(memory.PolicyPrivate)
		}
		if a.Planning && a.PlanningInterval == 0 {
			a.PlanningInterval = DefaultPlanningInterval
		}
	}
}

// Validate reports every problem found in the document.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("settings: %w", err))
	}
	if c.Settings.LogFormat != "json" && c.Settings.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("settings: unknown log format %q", c.Settings.LogFormat))
	}
	if c.Settings.StepLimit < 0 {
		errs = append(errs, fmt.Errorf("settings: step_limit must be positive"))
	}
	if c.Settings.MaxParallelToolCalls < 0 {
		errs = append(errs, fmt.Errorf("settings: max_parallel_tool_calls must be positive"))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm: unknown provider %q", c.LLM.Provider))
	}

	for _, name := range c.ServerNames() {
		s := c.Servers[name]
		switch s.Transport {
		case TransportStdio:
			if s.Command == "" {
				errs = append(errs, fmt.Errorf("server %s: command is required", name))
			}
			if s.URL != "" {
				errs = append(errs, fmt.Errorf("server %s: url is not supported by the stdio transport", name))
			}
		case TransportHTTP, TransportSSE:
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("server %s: url is required", name))
			}
			if s.Command != "" {
				errs = append(errs, fmt.Errorf("server %s: command is not supported by the %s transport", name, s.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("server %s: unknown transport %q", name, s.Transport))
		}
		if s.Timeout < 0 {
			errs = append(errs, fmt.Errorf("server %s: timeout must be positive", name))
		}
		for toolName, o := range s.ToolOverrides {
			for param, po := range o.Parameters {
				if po.Default != nil && po.Constant != nil {
					errs = append(errs, fmt.Errorf("server %s: tool %s: parameter %s sets both default and constant", name, toolName, param))
				}
			}
		}
	}

	seen := map[string]bool{}
	for i, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agent #%d: name is required", i))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("agent %s: duplicate name", a.Name))
		}
		seen[a.Name] = true

		if a.StepLimit < 0 {
			errs = append(errs, fmt.Errorf("agent %s: step_limit must be positive", a.Name))
		}
		if a.MaxParallelToolCalls < 0 {
			errs = append(errs, fmt.Errorf("agent %s: max_parallel_tool_calls must be positive", a.Name))
		}
		if a.PlanningInterval < 0 {
			errs = append(errs, fmt.Errorf("agent %s: planning_interval must be positive", a.Name))
		}
		if _, err := memory.ParsePolicy(a.Memory); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", a.Name, err))
		}
		for _, s := range a.Servers {
			if _, ok := c.Servers[s]; !ok {
				errs = append(errs, fmt.Errorf("agent %s: unknown server %q", a.Name, s))
			}
		}
	}

	return errors.Join(errs...)
}

// ServerNames returns the configured server names, sorted.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for n := range c.Servers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Agent returns the agent configuration named name.
func (c *Config) Agent(name string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// LoggerConfig converts the settings into a logging configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	if lvl, err := logging.ParseLevel(c.Settings.LogLevel); err == nil {
		cfg.Level = lvl
	}
	cfg.Format = c.Settings.LogFormat
	return cfg
}
