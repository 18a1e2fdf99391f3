// Package voicescmder provides the voices command, which lists the
// ElevenLabs speech models available to the configured key.
package voicescmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/cliui"
	"github.com/papercomputeco/genrelay/pkg/config"
	"github.com/papercomputeco/genrelay/pkg/credentials"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/elevenlabs"
	"github.com/papercomputeco/genrelay/pkg/logger"
)

const voicesLongDesc string = `List the ElevenLabs speech models available to your key.

The key is read from ELEVENLABS_API_KEY or from the key stored with
'genrelay auth elevenlabs'. The base URL, default model, and voice come from
the elevenlabs section of config.toml.

Examples:
  genrelay voices
  genrelay config set elevenlabs.model eleven_turbo_v2_5`

const voicesShortDesc string = "List ElevenLabs speech models"

type voicesCommander struct {
	configDir string
	debug     bool
	out       io.Writer
	logger    *zap.Logger
}

func NewVoicesCmd() *cobra.Command {
	cmder := &voicesCommander{}

	cmd := &cobra.Command{
		Use:   "voices",
		Short: voicesShortDesc,
		Long:  voicesLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx)
		},
	}

	return cmd
}

func (c *voicesCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	key, source, err := creds.Resolve("elevenlabs")
	if err != nil {
		return fmt.Errorf("resolving elevenlabs key: %w", err)
	}
	c.logger.Debug("resolved elevenlabs key", zap.String("source", source))

	p := elevenlabs.New(elevenlabs.Options{
		APIKey:     key,
		BaseURL:    cfg.ElevenLabs.BaseURL,
		Model:      cfg.ElevenLabs.Model,
		VoiceID:    cfg.ElevenLabs.VoiceID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     c.logger.Named("elevenlabs"),
	})

	var models []elevenlabs.Model
	err = cliui.Step(c.out, "fetching ElevenLabs models", func() error {
		models, err = p.ListModels(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("ElevenLabs models"))
	for _, m := range models {
		mark := "  "
		if m.ModelID == cfg.ElevenLabs.Model {
			mark = cliui.SuccessMark + " "
		}
		fmt.Fprintf(c.out, "  %s%s  %s\n", mark, cliui.NameStyle.Render(m.ModelID), cliui.ValueStyle.Render(m.Name))
		if m.Description != "" {
			fmt.Fprintf(c.out, "      %s\n", cliui.DimStyle.Render(m.Description))
		}
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Voice:"),
		cliui.ValueStyle.Render(cfg.ElevenLabs.VoiceID),
	)
	return nil
}
