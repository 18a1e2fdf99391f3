// Package genrelaycmder
package genrelaycmder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/genrelay/cmd/genrelay/auth"
	chatcmder "github.com/papercomputeco/genrelay/cmd/genrelay/chat"
	configcmder "github.com/papercomputeco/genrelay/cmd/genrelay/config"
	initcmder "github.com/papercomputeco/genrelay/cmd/genrelay/init"
	servecmder "github.com/papercomputeco/genrelay/cmd/genrelay/serve"
	voicescmder "github.com/papercomputeco/genrelay/cmd/genrelay/voices"
	versioncmder "github.com/papercomputeco/genrelay/cmd/version"
)

const genrelayLongDesc string = `genrelay forwards browser requests to generative AI providers.

Chat goes to OpenAI, Gemini or AWS Bedrock; speech to OpenAI, ElevenLabs or
Google Cloud Text-to-Speech; transcription to OpenAI; images to Gemini or
OpenAI. The relay keeps no state: every request carries its own history.

Run the relay using:
  genrelay serve       Run the relay server
  genrelay chat        Talk to a running relay from the terminal

Set it up using:
  genrelay init        Create a local .genrelay/ directory
  genrelay auth        Store provider API keys`

const genrelayShortDesc string = "genrelay - generative AI relay"

func NewGenrelayCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "genrelay",
		Short:        genrelayShortDesc,
		Long:         genrelayLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnv(envFile)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .genrelay/ directory")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: ./.env when present)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(voicescmder.NewVoicesCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadEnv reads a dotenv file without overriding variables already set. An
// explicit file must exist; the implicit ./.env is optional.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}
