package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// stays identical on "recall chat", "recall history" and "recall serve".
type Flag struct {
	// Name is the long flag name (e.g. "storage-driver").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.driver").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagStorageDriver   = "storage-driver"
	FlagPostgresDSN     = "postgres-dsn"
	FlagSQLite          = "sqlite"
	FlagTable           = "table"
	FlagEmbeddings      = "embeddings"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagModelProvider   = "model-provider"
	FlagModel           = "model"
	FlagModelTarget     = "model-target"
	FlagMemoryMode      = "memory-mode"
	FlagUserID          = "user"
	FlagTopK            = "top-k"
	FlagRemoteTarget    = "remote-target"
	FlagEventsProvider  = "events-provider"
	FlagAPIListen       = "listen"
)

// Flags is the registry shared by every recall command.
var Flags = FlagSet{
	FlagStorageDriver:   {Name: "storage-driver", ViperKey: "storage.driver", Description: "Turn store driver (postgres, sqlite, memory)"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database"},
	FlagTable:           {Name: "table", ViperKey: "storage.table", Description: "Turn table name"},
	FlagEmbeddings:      {Name: "embeddings", ViperKey: "storage.embeddings", Description: "Store an embedding with every turn"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (gemini, openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector index provider (qdrant, chroma, sqlite)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector index URL, or database path for sqlite"},
	FlagModelProvider:   {Name: "model-provider", ViperKey: "model.provider", Description: "Chat model provider (gemini, openai, anthropic, ollama)"},
	FlagModel:           {Name: "model", Shorthand: "m", ViperKey: "model.name", Description: "Chat model name"},
	FlagModelTarget:     {Name: "model-target", ViperKey: "model.target", Description: "Chat model provider URL"},
	FlagMemoryMode:      {Name: "memory-mode", ViperKey: "memory.mode", Description: "Memory source (local, remote)"},
	FlagUserID:          {Name: "user", Shorthand: "u", ViperKey: "memory.user_id", Description: "User identity that owns the memory"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "memory.top_k", Description: "Similarity-selected turns to recall (0 recalls everything)"},
	FlagRemoteTarget:    {Name: "remote-target", ViperKey: "remote.target", Description: "Remote memory API URL"},
	FlagEventsProvider:  {Name: "events-provider", ViperKey: "events.provider", Description: "Turn event stream provider (kafka)"},
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
}

// StoreFlags are the flags every command that opens the turn store registers.
var StoreFlags = []string{
	FlagStorageDriver,
	FlagPostgresDSN,
	FlagSQLite,
	FlagTable,
	FlagEmbeddings,
	FlagEmbeddingProv,
	FlagEmbeddingTgt,
	FlagEmbeddingModel,
	FlagEmbeddingDims,
	FlagVectorStoreProv,
	FlagVectorStoreTgt,
	FlagUserID,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// Scratch holds flag destinations for commands that read their values back
// through viper rather than through the bound variables.
type Scratch struct {
	strings map[string]*string
	uints   map[string]*uint
	ints    map[string]*int
	bools   map[string]*bool
}

// AddFlags registers every key in registryKeys on cmd, choosing the flag type
// from the default value's type, and returns the destinations.
func AddFlags(cmd *cobra.Command, fs FlagSet, registryKeys []string) *Scratch {
	s := &Scratch{
		strings: map[string]*string{},
		uints:   map[string]*uint{},
		ints:    map[string]*int{},
		bools:   map[string]*bool{},
	}

	d := defaultViper()
	for _, key := range registryKeys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		switch d.Get(def.ViperKey).(type) {
		case bool:
			s.bools[key] = new(bool)
			AddBoolFlag(cmd, fs, key, s.bools[key])
		case uint:
			s.uints[key] = new(uint)
			AddUintFlag(cmd, fs, key, s.uints[key])
		case int:
			s.ints[key] = new(int)
			AddIntFlag(cmd, fs, key, s.ints[key])
		default:
			s.strings[key] = new(string)
			AddStringFlag(cmd, fs, key, s.strings[key])
		}
	}

	return s
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaultViper().GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	return defaultViper().GetUint(viperKey)
}
