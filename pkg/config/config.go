package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/embeddings"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// keyOrder lists config keys in TOML section order.
var keyOrder = []string{
	"storage.driver",
	"storage.postgres_dsn",
	"storage.sqlite_path",
	"storage.table",
	"storage.embeddings",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"model.provider",
	"model.name",
	"model.target",
	"model.agent_name",
	"model.instruction",
	"model.max_tokens",
	"model.timeout",
	"memory.mode",
	"memory.user_id",
	"memory.app_name",
	"memory.session_prefix",
	"memory.known_names",
	"memory.top_k",
	"memory.store_timeout",
	"memory.embed_timeout",
	"memory.remote_timeout",
	"remote.target",
	"remote.project_name",
	"remote.engine_name",
	"events.provider",
	"events.brokers",
	"events.topic",
	"api.listen",
}

// ValidConfigKeys returns all supported configuration key names in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range keyOrder {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .recall/ directory.
// A missing file yields NewDefaultConfig(). Fields set in the file override
// the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func setIfEmpty(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Booleans and optional providers are left as loaded.
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	setIfEmpty(&cfg.Storage.Driver, d.Storage.Driver)
	setIfEmpty(&cfg.Storage.PostgresDSN, d.Storage.PostgresDSN)
	setIfEmpty(&cfg.Storage.Table, d.Storage.Table)

	setIfEmpty(&cfg.Embedding.Provider, d.Embedding.Provider)
	setIfEmpty(&cfg.Embedding.Model, d.Embedding.Model)
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = d.Embedding.Dimensions
	}

	setIfEmpty(&cfg.VectorStore.Collection, d.VectorStore.Collection)

	setIfEmpty(&cfg.Model.Provider, d.Model.Provider)
	setIfEmpty(&cfg.Model.Name, d.Model.Name)
	setIfEmpty(&cfg.Model.AgentName, d.Model.AgentName)
	setIfEmpty(&cfg.Model.Instruction, d.Model.Instruction)
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = d.Model.MaxTokens
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = d.Model.Timeout
	}

	setIfEmpty(&cfg.Memory.Mode, d.Memory.Mode)
	setIfEmpty(&cfg.Memory.UserID, d.Memory.UserID)
	setIfEmpty(&cfg.Memory.AppName, d.Memory.AppName)
	setIfEmpty(&cfg.Memory.SessionPrefix, d.Memory.SessionPrefix)
	if cfg.Memory.KnownNames == nil {
		cfg.Memory.KnownNames = d.Memory.KnownNames
	}
	if cfg.Memory.StoreTimeout == 0 {
		cfg.Memory.StoreTimeout = d.Memory.StoreTimeout
	}
	if cfg.Memory.EmbedTimeout == 0 {
		cfg.Memory.EmbedTimeout = d.Memory.EmbedTimeout
	}
	if cfg.Memory.RemoteTimeout == 0 {
		cfg.Memory.RemoteTimeout = d.Memory.RemoteTimeout
	}

	setIfEmpty(&cfg.Remote.Target, d.Remote.Target)
	setIfEmpty(&cfg.Remote.ProjectName, d.Remote.ProjectName)
	setIfEmpty(&cfg.Remote.EngineName, d.Remote.EngineName)

	setIfEmpty(&cfg.Events.Topic, d.Events.Topic)

	setIfEmpty(&cfg.API.Listen, d.API.Listen)
}

// SaveConfig persists the configuration to config.toml in the target .recall/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// GetValue returns the string form of key on an already loaded config.
func (cfg *Config) GetValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named model provider.
// Supported presets: "gemini", "openai", "anthropic", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "gemini":
		return cfg, nil

	case "openai":
		cfg.Model.Provider = "openai"
		cfg.Model.Name = "gpt-4o-mini"
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.Model = "text-embedding-3-small"
		cfg.Embedding.Dimensions = 1536
		return cfg, nil

	case "anthropic":
		cfg.Model.Provider = "anthropic"
		cfg.Model.Name = "claude-sonnet-4-5"
		return cfg, nil

	case "ollama":
		cfg.Model.Provider = "ollama"
		cfg.Model.Name = "llama3.2"
		cfg.Model.Target = "http://localhost:11434"
		cfg.Embedding.Provider = "ollama"
		cfg.Embedding.Target = "http://localhost:11434"
		cfg.Embedding.Model = "nomic-embed-text"
		cfg.Embedding.Dimensions = 768
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"gemini", "openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// Validate checks enumerated fields and cross-field requirements.
func (cfg *Config) Validate() error {
	switch cfg.Storage.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q (expected postgres, sqlite or memory)", cfg.Storage.Driver)
	}

	switch cfg.Memory.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("invalid memory.mode %q (expected local or remote)", cfg.Memory.Mode)
	}

	if cfg.Memory.UserID == "" {
		return errors.New("memory.user_id must not be empty")
	}

	if cfg.Storage.Embeddings && cfg.Embedding.Dimensions == 0 {
		return errors.New("embedding.dimensions is required when storage.embeddings is enabled")
	}

	if cfg.Storage.Embeddings {
		native, known := embeddings.NativeDimensions(cfg.Embedding.Provider, cfg.Embedding.Model)
		if known && native != cfg.Embedding.Dimensions {
			return fmt.Errorf("embedding.dimensions %d does not match %s model %q, which returns %d",
				cfg.Embedding.Dimensions, cfg.Embedding.Provider, cfg.Embedding.Model, native)
		}
	}

	if cfg.Memory.TopK > 0 && !cfg.Storage.Embeddings {
		return errors.New("memory.top_k requires storage.embeddings")
	}

	switch cfg.VectorStore.Provider {
	case "":
	case "qdrant", "chroma", "sqlite":
		if !cfg.Storage.Embeddings {
			return errors.New("vector_store.provider requires storage.embeddings")
		}
	default:
		return fmt.Errorf("invalid vector_store.provider %q (expected qdrant, chroma, sqlite or empty)", cfg.VectorStore.Provider)
	}

	switch cfg.Events.Provider {
	case "":
	case "kafka":
		if len(cfg.Events.Brokers) == 0 {
			return errors.New("events.brokers is required for the kafka provider")
		}
	default:
		return fmt.Errorf("invalid events.provider %q (expected kafka or empty)", cfg.Events.Provider)
	}

	return nil
}
