// Package config provides configuration loading and management for kbgraph.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/kbgraph/pkg/kb"
)

// Config represents the complete kbgraph configuration
type Config struct {
	Log            LogConfig             `yaml:"log"`
	Store          StoreConfig           `yaml:"store"`
	KnowledgeBases []KnowledgeBaseConfig `yaml:"knowledge_bases"`
}

// LogConfig configures structured logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
	// Format is text or json (default: text)
	Format string `yaml:"format"`
}

// StoreConfig configures the triple repositories
type StoreConfig struct {
	// Path is the SQLite database journaling every knowledge base
	// (empty = in-memory only)
	Path string `yaml:"path"`
	// QueryTimeout bounds the evaluation of each query
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// KnowledgeBaseConfig defines one knowledge base. Unset schema IRIs take the
// RDFS defaults.
type KnowledgeBaseConfig struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name,omitempty"`
	Reification     string `yaml:"reification,omitempty"`
	ReadOnly        bool   `yaml:"read_only,omitempty"`
	DefaultLanguage string `yaml:"default_language,omitempty"`

	BaseNamespace      string `yaml:"base_namespace,omitempty"`
	StatementNamespace string `yaml:"statement_namespace,omitempty"`

	Label         string   `yaml:"label,omitempty"`
	Description   string   `yaml:"description,omitempty"`
	Type          string   `yaml:"type,omitempty"`
	Subclass      string   `yaml:"subclass,omitempty"`
	Subproperty   string   `yaml:"subproperty,omitempty"`
	PropertyTypes []string `yaml:"property_types,omitempty"`
	ClassTypes    []string `yaml:"class_types,omitempty"`

	ClaimNamespace          string `yaml:"claim_namespace,omitempty"`
	StatementValueNamespace string `yaml:"statement_value_namespace,omitempty"`
	QualifierNamespace      string `yaml:"qualifier_namespace,omitempty"`

	// Import lists N-Triples files loaded into an empty
	// knowledge base at startup
	Import []string `yaml:"import,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Path:         "", // In-memory
			QueryTimeout: kb.DefaultQueryTimeout,
		},
		KnowledgeBases: []KnowledgeBaseConfig{
			{ID: "default", Reification: string(kb.ReificationNone)},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Store.QueryTimeout < 0 {
		return fmt.Errorf("store.query_timeout must not be negative")
	}

	seen := make(map[string]bool)
	for i, kbc := range c.KnowledgeBases {
		if seen[kbc.ID] {
			return fmt.Errorf("knowledge_bases[%d]: duplicate id %q", i, kbc.ID)
		}
		seen[kbc.ID] = true

		if _, err := kbc.KnowledgeBase(); err != nil {
			return fmt.Errorf("knowledge_bases[%d]: %w", i, err)
		}
	}
	return nil
}

// KnowledgeBase converts the definition into a validated knowledge base with
// defaults applied.
func (k KnowledgeBaseConfig) KnowledgeBase() (kb.KnowledgeBase, error) {
	mode, err := kb.ParseReificationMode(k.Reification)
	if err != nil {
		return kb.KnowledgeBase{}, err
	}
	knowledgeBase := kb.KnowledgeBase{
		ID:                      k.ID,
		Name:                    k.Name,
		ReificationMode:         mode,
		ReadOnly:                k.ReadOnly,
		DefaultLanguage:         k.DefaultLanguage,
		BaseNamespace:           k.BaseNamespace,
		StatementNamespace:      k.StatementNamespace,
		LabelIRI:                k.Label,
		DescriptionIRI:          k.Description,
		TypeIRI:                 k.Type,
		SubclassIRI:             k.Subclass,
		SubpropertyIRI:          k.Subproperty,
		PropertyTypeIRIs:        k.PropertyTypes,
		ClassTypeIRIs:           k.ClassTypes,
		ClaimNamespace:          k.ClaimNamespace,
		StatementValueNamespace: k.StatementValueNamespace,
		QualifierNamespace:      k.QualifierNamespace,
	}.WithDefaults()
	if err := knowledgeBase.Validate(); err != nil {
		return kb.KnowledgeBase{}, err
	}
	return knowledgeBase, nil
}

// KnowledgeBase returns the definition with the given ID.
func (c *Config) KnowledgeBase(id string) (KnowledgeBaseConfig, bool) {
	for _, kbc := range c.KnowledgeBases {
		if kbc.ID == id {
			return kbc, true
		}
	}
	return KnowledgeBaseConfig{}, false
}

// NewLogger builds the logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values). Knowledge bases are merged by ID: a definition in other
// replaces the one with the same ID, new ones are appended.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	// Store
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.QueryTimeout != 0 {
		c.Store.QueryTimeout = other.Store.QueryTimeout
	}

	// Knowledge bases
	for _, kbc := range other.KnowledgeBases {
		replaced := false
		for i := range c.KnowledgeBases {
			if c.KnowledgeBases[i].ID == kbc.ID {
				c.KnowledgeBases[i] = kbc
				replaced = true
				break
			}
		}
		if !replaced {
			c.KnowledgeBases = append(c.KnowledgeBases, kbc)
		}
	}
}
