// Package initcmder provides the init command for initializing a local
// .genrelay directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/genrelay/pkg/cliui"
	"github.com/papercomputeco/genrelay/pkg/config"
)

const dirName = ".genrelay"

const initLongDesc string = `Initialize a new .genrelay/ directory in the current working directory.

Creates a local .genrelay/ directory that takes precedence over the default
~/.genrelay/ directory for configuration, credentials, and saved chat
sessions, and writes a config.toml with default values.

Use --preset to point every capability at one provider stack:
  openai    chat, images, and speech through OpenAI
  gemini    chat and images through Gemini, speech through Google TTS
  bedrock   chat through Amazon Bedrock with the helper persona

An existing config.toml is never overwritten.

Examples:
  genrelay init
  genrelay init --preset gemini`

const initShortDesc string = "Initialize a local .genrelay/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Provider preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(w io.Writer, preset string) error {
	cfg := config.NewDefaultConfig()
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating .genrelay directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .genrelay directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil:
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("config.toml already exists, leaving it unchanged"))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s\n", cliui.SuccessMark, cfger.GetTarget())
	return nil
}
