// Package initcmder provides the init command for initializing a local
// .recall directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
)

type initCommander struct {
	preset string
	force  bool
}

const initLongDesc string = `Initialize a new .recall/ directory in the current working directory.

Creates a local .recall/ directory that takes precedence over ~/.recall/ for
configuration and the chat session record. This keeps memory settings per
project.

With --preset a config.toml is written with defaults for that provider
(gemini, openai, anthropic, ollama). An existing config.toml is only replaced
with --force, which also forgets the last chat session.

Examples:
  recall init
  recall init --preset ollama
  recall init --preset openai --force`

const initShortDesc string = "Initialize a local .recall/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString(config.ConfigDirFlag)
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting current directory: %w", err)
				}
				dir = filepath.Join(cwd, dotdir.DirName)
			}
			return cmder.run(cmd.OutOrStdout(), dir)
		},
	}

	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "",
		"Write a config.toml for a provider ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Replace an existing config.toml")

	return cmd
}

func (c *initCommander) run(w io.Writer, dir string) error {
	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .recall directory: %w", err)
	}

	if existed {
		fmt.Fprintf(w, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	} else {
		fmt.Fprintf(w, "  %s Initialized .recall directory: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	}

	if c.preset == "" {
		return nil
	}
	return c.writePreset(w, dir)
}

func (c *initCommander) writePreset(w io.Writer, dir string) error {
	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil && !c.force {
		return fmt.Errorf("%s already exists, pass --force to replace it", cfger.GetTarget())
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if c.force {
		if err := dotdir.NewManager().ClearSessionState(dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(strings.ToLower(c.preset)),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
