// Package servecmder provides the serve command that runs the relay server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/config"
	"github.com/papercomputeco/genrelay/pkg/credentials"
	"github.com/papercomputeco/genrelay/pkg/logger"
)

type ServeCommander struct {
	listen         string
	staticDir      string
	chatProvider   string
	speechProvider string
	imageProvider  string
	persona        string
	historyLimit   int
	logFile        string

	configDir string
	debug     bool
	cfg       *config.Config
	logger    *zap.Logger
}

const serveLongDesc string = `Run the genrelay server.

Settings come from, in order of precedence: flags, environment variables
(GENRELAY_SERVER_LISTEN, GENRELAY_CHAT_PROVIDER, ... and the legacy PORT,
MODEL, TTS_MODEL, S2T_MODEL, GEMINI_MODEL), config.toml in the .genrelay/
directory, and built-in defaults.

API keys come from the environment (OPENAI_API_KEY, GEMINI_API_KEY,
ELEVENLABS_API_KEY, GOOGLE_API_KEY, ...) or from "genrelay auth".
Bedrock uses the standard AWS credential chain.

Examples:
  genrelay serve
  genrelay serve --listen :8080 --static-dir ./public
  genrelay serve --chat-provider openai --persona helper`

const serveShortDesc string = "Run the genrelay server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagStaticDir,
	config.FlagChatProvider,
	config.FlagSpeechProvider,
	config.FlagImageProvider,
	config.FlagPersona,
	config.FlagHistoryLimit,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStaticDir, &cmder.staticDir)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagChatProvider, &cmder.chatProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSpeechProvider, &cmder.speechProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagImageProvider, &cmder.imageProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPersona, &cmder.persona)
	config.AddIntFlag(cmd, config.ServeFlags, config.FlagHistoryLimit, &cmder.historyLimit)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *ServeCommander) newLogger() (*zap.Logger, func(), error) {
	console := logger.NewLogger(c.debug)
	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(logger.WithWriter(f), logger.WithJSON(true), logger.WithDebug(c.debug))
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		closeLog func()
		err      error
	)
	c.logger, closeLog, err = c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = c.logger.Sync() }()

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	r, err := BuildRelay(ctx, c.cfg, creds, c.logger)
	if err != nil {
		return err
	}
	defer r.Close()

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}
