// Package config reads the workspace definition from .hunklock/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// ErrNotInitialized is returned by Load when the config file does not exist.
var ErrNotInitialized = errors.New("no .hunklock/config.yaml (run: git-hunklock stacks add <name> --tip <ref>)")

// Config is the workspace definition plus tool settings.
type Config struct {
	LogLevel string `yaml:"log_level,omitempty"`
	// Workers bounds parallel diff collection. 0 means one per CPU.
	Workers int `yaml:"workers,omitempty"`
	// MaxDiffBytes marks larger worktree files as too large to diff.
	MaxDiffBytes int64   `yaml:"max_diff_bytes,omitempty"`
	Stacks       []Stack `yaml:"stacks"`
}

// Stack is one line of commits between Base and Tip applied to the
// workspace. Commits reachable from Base belong to the shared history.
type Stack struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Base    string `yaml:"base"`
	Tip     string `yaml:"tip"`
	Applied bool   `yaml:"applied"`
}

const defaultMaxDiffBytes = 5 << 20

// StackID parses the stack's id.
func (s Stack) StackID() (hunk.StackID, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return hunk.StackID{}, fmt.Errorf("stack %q: invalid id %q: %w", s.Name, s.ID, err)
	}
	return id, nil
}

// Load reads and validates the config file. HUNKLOCK_LOG_LEVEL overrides
// the log level.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if lvl := os.Getenv("HUNKLOCK_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns an empty workspace definition.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxDiffBytes == 0 {
		c.MaxDiffBytes = defaultMaxDiffBytes
	}
}

// Validate checks ids, names and refs of all stacks.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	names := make(map[string]bool)
	ids := make(map[string]bool)
	for i, s := range c.Stacks {
		if s.Name == "" {
			return fmt.Errorf("stack %d: missing name", i+1)
		}
		if s.Tip == "" {
			return fmt.Errorf("stack %q: missing tip", s.Name)
		}
		if _, err := s.StackID(); err != nil {
			return err
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate stack name %q", s.Name)
		}
		if ids[strings.ToLower(s.ID)] {
			return fmt.Errorf("duplicate stack id %s", s.ID)
		}
		names[s.Name] = true
		ids[strings.ToLower(s.ID)] = true
	}
	return nil
}

// Save writes the config, creating its directory.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// AddStack appends a new applied stack with a fresh id.
func (c *Config) AddStack(name, base, tip string) (Stack, error) {
	s := Stack{ID: hunk.NewStackID().String(), Name: name, Base: base, Tip: tip, Applied: true}
	c.Stacks = append(c.Stacks, s)
	if err := c.Validate(); err != nil {
		c.Stacks = c.Stacks[:len(c.Stacks)-1]
		return Stack{}, err
	}
	return s, nil
}

// Find returns the stack whose name or id equals ref.
func (c *Config) Find(ref string) (Stack, bool) {
	for _, s := range c.Stacks {
		if s.Name == ref || strings.EqualFold(s.ID, ref) {
			return s, true
		}
	}
	return Stack{}, false
}

// Name returns the name of the stack with the given id, or its short id.
func (c *Config) Name(id hunk.StackID) string {
	for _, s := range c.Stacks {
		if sid, err := s.StackID(); err == nil && sid == id {
			return s.Name
		}
	}
	return id.String()[:8]
}

// Applied returns the ids of the applied stacks in config order.
func (c *Config) Applied() []hunk.StackID {
	var out []hunk.StackID
	for _, s := range c.Stacks {
		if !s.Applied {
			continue
		}
		if id, err := s.StackID(); err == nil {
			out = append(out, id)
		}
	}
	return out
}
