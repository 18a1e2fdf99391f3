// Package authcmder provides the auth command for storing provider API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/genrelay/pkg/cliui"
	"github.com/papercomputeco/genrelay/pkg/credentials"
)

const authLongDesc string = `Store API keys for upstream providers.

Keys are stored in credentials.toml in the .genrelay/ directory with
owner-only permissions. When the relay starts, an environment variable for
a provider always wins over the stored key, so a deployment can keep using
plain environment configuration.

Amazon Bedrock is not listed here: it authenticates through the standard
AWS credential chain.

Supported providers: openai, gemini, elevenlabs, google_tts, search

Examples:
  genrelay auth openai              Prompt for the OpenAI API key
  genrelay auth elevenlabs          Prompt for the ElevenLabs API key
  genrelay auth --list              List stored keys and where each provider resolves
  genrelay auth --remove gemini     Remove the stored Gemini key
  echo $KEY | genrelay auth openai  Pipe the API key from stdin`

const authShortDesc string = "Store API keys for upstream providers"

type authCommander struct {
	configDir string
	in        io.Reader
	out       io.Writer
}

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder := &authCommander{
				configDir: configDir,
				in:        cmd.InOrStdin(),
				out:       cmd.OutOrStdout(),
			}

			switch {
			case listFlag:
				return cmder.list()
			case removeFlag != "":
				return cmder.remove(removeFlag)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.store(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored keys and how each provider resolves")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored key for a provider")

	return cmd
}

func (c *authCommander) store(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s key %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	for _, name := range credentials.EnvVarsForProvider(provider) {
		if os.Getenv(name) != "" {
			fmt.Fprintf(c.out, "  %s %s is set and takes precedence over the stored key.\n",
				cliui.WarnStyle.Render("!"), name)
			break
		}
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *authCommander) list() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	stored, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'genrelay auth <provider>' to store a key.\n")
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Provider keys"))
	for _, p := range credentials.SupportedProviders() {
		_, source, err := mgr.Resolve(p)
		vars := cliui.DimStyle.Render(strings.Join(credentials.EnvVarsForProvider(p), ", "))
		if err != nil || source == "" {
			fmt.Fprintf(c.out, "  %s  %-11s %s  %s\n",
				cliui.FailMark, cliui.NameStyle.Render(p), cliui.DimStyle.Render("not configured"), vars)
			continue
		}
		if stored, ok, _ := mgr.Stored(p); ok && !stored.StoredAt.IsZero() && !strings.HasPrefix(source, "env:") {
			source += " (" + stored.StoredAt.Local().Format("2006-01-02") + ")"
		}
		fmt.Fprintf(c.out, "  %s  %-11s %s  %s\n",
			cliui.SuccessMark, cliui.NameStyle.Render(p), cliui.ValueStyle.Render(source), vars)
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) remove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s key.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

// readAPIKey prompts with hidden input when stdin is a terminal and reads
// the first line otherwise.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
