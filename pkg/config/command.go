package config

import (
	"github.com/spf13/cobra"
)

// ConfigDirFlag is the persistent root flag that overrides .recall/ discovery.
const ConfigDirFlag = "config-dir"

// FromCommand resolves the effective configuration for cmd: defaults, then
// config.toml, then RECALL_* environment, then the registry flags set on cmd.
func FromCommand(cmd *cobra.Command, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString(ConfigDirFlag)

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	return Load(v)
}
