package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RECALL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RECALL_STORAGE_DRIVER, RECALL_MEMORY_USER_ID, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load decodes the merged viper state into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.table", d.Storage.Table)
	v.SetDefault("storage.embeddings", d.Storage.Embeddings)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Model
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.target", d.Model.Target)
	v.SetDefault("model.agent_name", d.Model.AgentName)
	v.SetDefault("model.instruction", d.Model.Instruction)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	v.SetDefault("model.timeout", d.Model.Timeout)

	// Memory
	v.SetDefault("memory.mode", d.Memory.Mode)
	v.SetDefault("memory.user_id", d.Memory.UserID)
	v.SetDefault("memory.app_name", d.Memory.AppName)
	v.SetDefault("memory.session_prefix", d.Memory.SessionPrefix)
	v.SetDefault("memory.known_names", d.Memory.KnownNames)
	v.SetDefault("memory.top_k", d.Memory.TopK)
	v.SetDefault("memory.store_timeout", d.Memory.StoreTimeout)
	v.SetDefault("memory.embed_timeout", d.Memory.EmbedTimeout)
	v.SetDefault("memory.remote_timeout", d.Memory.RemoteTimeout)

	// Remote
	v.SetDefault("remote.target", d.Remote.Target)
	v.SetDefault("remote.project_name", d.Remote.ProjectName)
	v.SetDefault("remote.engine_name", d.Remote.EngineName)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// API
	v.SetDefault("api.listen", d.API.Listen)
}
