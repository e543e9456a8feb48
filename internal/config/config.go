package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxSteps    = 5
	defaultPushTimeout = 30 * time.Second
)

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Name   string `yaml:"name"`
}

// StorageConfig holds the SQLite settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// A2AConfig holds settings for the A2A route.
type A2AConfig struct {
	PushTimeout time.Duration `yaml:"push_timeout"`
}

// MCPServerConfig describes a Streamable HTTP MCP server.
type MCPServerConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AgentConfig describes one agent exposed by the runtime.
// Exactly one of Model (local LLM agent) or URL (remote A2A agent) is set.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Instructions string   `yaml:"instructions"`
	Model        string   `yaml:"model"`
	URL          string   `yaml:"url"`
	Tools        []string `yaml:"tools"`
	MaxSteps     int      `yaml:"max_steps"`
}

// Config holds the runtime configuration loaded from agent.yaml.
type Config struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	BaseURL    string            `yaml:"base_url"`
	Log        LogConfig         `yaml:"log"`
	Storage    StorageConfig     `yaml:"storage"`
	A2A        A2AConfig         `yaml:"a2a"`
	MCPServers []MCPServerConfig `yaml:"mcp_servers"`
	Agents     []AgentConfig     `yaml:"agents"`
}

// Load reads, defaults and validates the agent.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "weather-a2a"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://%s:%d", c.Host, c.Port)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Name == "" {
		c.Log.Name = "Runtime"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = ":memory:"
	}
	if c.A2A.PushTimeout == 0 {
		c.A2A.PushTimeout = defaultPushTimeout
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Name == "" {
			a.Name = a.ID
		}
		if a.MaxSteps == 0 {
			a.MaxSteps = defaultMaxSteps
		}
	}
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}

	servers := make(map[string]bool, len(c.MCPServers))
	for _, s := range c.MCPServers {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("mcp server requires name and url")
		}
		if servers[s.Name] {
			return fmt.Errorf("duplicate mcp server %q", s.Name)
		}
		servers[s.Name] = true
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent id is required")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true

		if (a.Model == "") == (a.URL == "") {
			return fmt.Errorf("agent %q: exactly one of model or url is required", a.ID)
		}
		if a.URL != "" && len(a.Tools) > 0 {
			return fmt.Errorf("agent %q: remote agents cannot use tools", a.ID)
		}
		for _, t := range a.Tools {
			if !servers[t] {
				return fmt.Errorf("agent %q: unknown mcp server %q", a.ID, t)
			}
		}
	}

	return nil
}

// MCPServer returns the MCP server config with the given name.
func (c *Config) MCPServer(name string) (MCPServerConfig, bool) {
	for _, s := range c.MCPServers {
		if s.Name == name {
			return s, true
		}
	}
	return MCPServerConfig{}, false
}
