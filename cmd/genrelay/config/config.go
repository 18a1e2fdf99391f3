// Package configcmder provides the config command for managing persistent
// relay configuration stored in the .genrelay/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/genrelay/pkg/cliui"
	"github.com/papercomputeco/genrelay/pkg/config"
)

const configLongDesc string = `Manage persistent relay configuration.

Configuration is stored as config.toml in the .genrelay/ directory and
provides default values for command flags. Environment variables prefixed
with GENRELAY_ override the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure, for example:
  server.listen, server.upstream_timeout,
  chat.provider, chat.persona, chat.history_limit,
  speech.provider, speech.max_chars,
  image.provider, openai.chat_model, gemini.image_model,
  elevenlabs.voice_id, search.engine_id, client.target

Use subcommands to get, set, or list configuration values:
  genrelay config set <key> <value>    Set a configuration value
  genrelay config get <key>            Get a configuration value
  genrelay config list                 List all configuration values

Examples:
  genrelay config set chat.provider gemini
  genrelay config set speech.max_chars 400
  genrelay config get chat.provider
  genrelay config list`

const configShortDesc string = "Manage persistent relay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
