package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
// Every component receives the parts it needs from this struct; nothing reads
// process-wide state.
type Config struct {
	Version     int               `toml:"version" mapstructure:"version"`
	Storage     StorageConfig     `toml:"storage" mapstructure:"storage"`
	Embedding   EmbeddingConfig   `toml:"embedding" mapstructure:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store" mapstructure:"vector_store"`
	Model       ModelConfig       `toml:"model" mapstructure:"model"`
	Memory      MemoryConfig      `toml:"memory" mapstructure:"memory"`
	Remote      RemoteConfig      `toml:"remote" mapstructure:"remote"`
	Events      EventsConfig      `toml:"events" mapstructure:"events"`
	API         APIConfig         `toml:"api" mapstructure:"api"`
}

// StorageConfig selects the turn store and its schema variant.
type StorageConfig struct {
	// Driver is one of "postgres", "sqlite" or "memory".
	Driver      string `toml:"driver,omitempty" mapstructure:"driver"`
	PostgresDSN string `toml:"postgres_dsn,omitempty" mapstructure:"postgres_dsn"`
	SQLitePath  string `toml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	Table       string `toml:"table,omitempty" mapstructure:"table"`

	// Embeddings selects the schema variant that carries an embedding column.
	Embeddings bool `toml:"embeddings,omitempty" mapstructure:"embeddings"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Target     string `toml:"target,omitempty" mapstructure:"target"`
	Model      string `toml:"model,omitempty" mapstructure:"model"`
	Dimensions uint   `toml:"dimensions,omitempty" mapstructure:"dimensions"`
}

// VectorStoreConfig holds the optional provider-side similarity index.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Target     string `toml:"target,omitempty" mapstructure:"target"`
	Collection string `toml:"collection,omitempty" mapstructure:"collection"`
}

// ModelConfig selects the language model that answers chat turns.
type ModelConfig struct {
	Provider    string        `toml:"provider,omitempty" mapstructure:"provider"`
	Name        string        `toml:"name,omitempty" mapstructure:"name"`
	Target      string        `toml:"target,omitempty" mapstructure:"target"`
	AgentName   string        `toml:"agent_name,omitempty" mapstructure:"agent_name"`
	Instruction string        `toml:"instruction,omitempty" mapstructure:"instruction"`
	MaxTokens   int           `toml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	Timeout     time.Duration `toml:"timeout,omitempty" mapstructure:"timeout"`
}

// MemoryConfig holds the cross-session memory settings.
type MemoryConfig struct {
	// Mode is "local" (turn store) or "remote" (memory API).
	Mode          string        `toml:"mode,omitempty" mapstructure:"mode"`
	UserID        string        `toml:"user_id,omitempty" mapstructure:"user_id"`
	AppName       string        `toml:"app_name,omitempty" mapstructure:"app_name"`
	SessionPrefix string        `toml:"session_prefix,omitempty" mapstructure:"session_prefix"`
	KnownNames    []string      `toml:"known_names,omitempty" mapstructure:"known_names"`
	TopK          int           `toml:"top_k,omitempty" mapstructure:"top_k"`
	StoreTimeout  time.Duration `toml:"store_timeout,omitempty" mapstructure:"store_timeout"`
	EmbedTimeout  time.Duration `toml:"embed_timeout,omitempty" mapstructure:"embed_timeout"`
	RemoteTimeout time.Duration `toml:"remote_timeout,omitempty" mapstructure:"remote_timeout"`
}

// RemoteConfig addresses the remote memory API.
type RemoteConfig struct {
	Target      string `toml:"target,omitempty" mapstructure:"target"`
	ProjectName string `toml:"project_name,omitempty" mapstructure:"project_name"`
	EngineName  string `toml:"engine_name,omitempty" mapstructure:"engine_name"`
}

// EventsConfig holds the turn event stream settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty" mapstructure:"provider"`
	Brokers  []string `toml:"brokers,omitempty" mapstructure:"brokers"`
	Topic    string   `toml:"topic,omitempty" mapstructure:"topic"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty" mapstructure:"listen"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *time.Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return field(c).String()
		},
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if d <= 0 {
				return fmt.Errorf("invalid value for %s: must be positive", name)
			}
			*field(c) = d
			return nil
		},
	}
}

func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			*field(c) = splitList(v)
			return nil
		},
	}
}

// splitList parses a comma separated list, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.table":        stringKey(func(c *Config) *string { return &c.Storage.Table }),
	"storage.embeddings":   boolKey("storage.embeddings", func(c *Config) *bool { return &c.Storage.Embeddings }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"model.provider":    stringKey(func(c *Config) *string { return &c.Model.Provider }),
	"model.name":        stringKey(func(c *Config) *string { return &c.Model.Name }),
	"model.target":      stringKey(func(c *Config) *string { return &c.Model.Target }),
	"model.agent_name":  stringKey(func(c *Config) *string { return &c.Model.AgentName }),
	"model.instruction": stringKey(func(c *Config) *string { return &c.Model.Instruction }),
	"model.max_tokens":  intKey("model.max_tokens", func(c *Config) *int { return &c.Model.MaxTokens }),
	"model.timeout":     durationKey("model.timeout", func(c *Config) *time.Duration { return &c.Model.Timeout }),

	"memory.mode":           stringKey(func(c *Config) *string { return &c.Memory.Mode }),
	"memory.user_id":        stringKey(func(c *Config) *string { return &c.Memory.UserID }),
	"memory.app_name":       stringKey(func(c *Config) *string { return &c.Memory.AppName }),
	"memory.session_prefix": stringKey(func(c *Config) *string { return &c.Memory.SessionPrefix }),
	"memory.known_names":    listKey(func(c *Config) *[]string { return &c.Memory.KnownNames }),
	"memory.top_k":          intKey("memory.top_k", func(c *Config) *int { return &c.Memory.TopK }),
	"memory.store_timeout":  durationKey("memory.store_timeout", func(c *Config) *time.Duration { return &c.Memory.StoreTimeout }),
	"memory.embed_timeout":  durationKey("memory.embed_timeout", func(c *Config) *time.Duration { return &c.Memory.EmbedTimeout }),
	"memory.remote_timeout": durationKey("memory.remote_timeout", func(c *Config) *time.Duration { return &c.Memory.RemoteTimeout }),

	"remote.target":       stringKey(func(c *Config) *string { return &c.Remote.Target }),
	"remote.project_name": stringKey(func(c *Config) *string { return &c.Remote.ProjectName }),
	"remote.engine_name":  stringKey(func(c *Config) *string { return &c.Remote.EngineName }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  listKey(func(c *Config) *[]string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),
}
