// Package chatcmder provides the chat command, an interactive terminal
// client for a running relay.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/cliui"
	"github.com/papercomputeco/genrelay/pkg/config"
	"github.com/papercomputeco/genrelay/pkg/dotdir"
	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("relay> ")
)

type chatCommander struct {
	target    string
	genre     string
	fresh     bool
	raw       bool
	configDir string
	debug     bool

	in  io.Reader
	out io.Writer

	client  *relayClient
	session *dotdir.Session
	ddm     *dotdir.Manager
	logger  *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session with a running relay.

Every message is posted to the relay's /chat endpoint together with the
whole conversation so far. The conversation is saved to session.json in the
.genrelay/ directory and resumed on the next run; use --new to start over.

Replies are rendered as markdown. Game actions and hit point changes the
StoryForge persona emits are shown under the reply.

Commands inside the session:
  /new     Start a new conversation
  /exit    Quit (Ctrl+D works too)

Examples:
  genrelay chat
  genrelay chat --genre "space opera" --new
  genrelay chat --target http://localhost:8080`

const chatShortDesc string = "Interactive chat with a running relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{in: os.Stdin, out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed(config.ClientFlags[config.FlagTarget].Name) {
				cmder.target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVarP(&cmder.genre, "genre", "g", "", "Story genre for the storyforge persona")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved conversation")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	c.client = newRelayClient(c.target)
	c.ddm = dotdir.NewManager()

	if err := c.loadSession(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Relay:"), cliui.NameStyle.Render(c.client.target))
	if c.session.Genre != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Genre:"), cliui.NameStyle.Render(c.session.Genre))
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			c.session = &dotdir.Session{Genre: c.genre}
			if err := c.ddm.ClearSession(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.SuccessMark)
			continue
		}

		if err := c.turn(ctx, input); err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loadSession() error {
	if c.fresh {
		if err := c.ddm.ClearSession(c.configDir); err != nil {
			return err
		}
	}

	session, err := c.ddm.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	fmt.Fprintln(c.out)
	if session != nil {
		fmt.Fprintf(c.out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", len(session.Turns))),
		)
	} else {
		session = &dotdir.Session{}
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	if c.genre != "" {
		session.Genre = c.genre
	}
	c.session = session
	return nil
}

// turn sends one message and, on success, records both sides of the
// exchange. A failed message is not added so it can be retried.
func (c *chatCommander) turn(ctx context.Context, input string) error {
	c.logger.Debug("sending chat request",
		zap.String("target", c.client.target),
		zap.Int("history", len(c.session.Turns)),
	)

	// A new conversation goes out as an empty array, never null.
	history := c.session.Turns
	if history == nil {
		history = make([]llm.Turn, 0)
	}

	var resp *chatResponse
	err := cliui.Step(c.out, "waiting for the relay", func() error {
		var err error
		resp, err = c.client.send(ctx, &chatRequest{
			Message: input,
			History: history,
			Genre:   c.session.Genre,
		})
		return err
	})
	if err != nil {
		return err
	}

	c.session.Turns = append(c.session.Turns,
		llm.NewTurn(llm.RoleUser, input),
		llm.NewTurn(llm.RoleAssistant, resp.Reply),
	)
	if err := c.ddm.SaveSession(c.session, c.configDir); err != nil {
		c.logger.Warn("could not save session", zap.Error(err))
	}

	c.render(resp)
	return nil
}

func (c *chatCommander) render(resp *chatResponse) {
	fmt.Fprintln(c.out, assistantPrompt)

	text := resp.Reply
	if !c.raw {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(c.out, text)

	if hp := cliui.HP(resp.HPDelta); hp != "" {
		fmt.Fprintf(c.out, "  %s\n", hp)
	}
	for _, a := range resp.Actions {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("action:"), cliui.ValueStyle.Render(a.Name()))
	}
	fmt.Fprintln(c.out)
}
