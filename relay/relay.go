// Package relay provides the HTTP server that forwards browser requests to
// generative AI providers and relays their answers back.
//
// The relay is stateless: each inbound request carries its whole context
// (history, prompt, reference images) and produces at most one upstream
// call, two when an image request is retried without search grounding.
package relay

import (
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

// BodyLimit caps request bodies, including multipart audio and image uploads.
const BodyLimit = 25 * 1024 * 1024

// Relay is the HTTP front of the provider adapters.
type Relay struct {
	config    Config
	providers Providers
	logger    *zap.Logger
	server    *fiber.App
}

// New creates a Relay. Providers are injected so tests and the serve
// command decide which upstreams are reachable.
func New(config Config, providers Providers, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HistoryLimit == 0 {
		config.HistoryLimit = llm.DefaultHistoryLimit
	}
	if config.CORSOrigins == "" {
		config.CORSOrigins = "*"
	}

	r := &Relay{
		config:    config,
		providers: providers,
		logger:    logger,
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		BodyLimit:             BodyLimit,
		ErrorHandler:          r.handleFiberError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(r.logRequests)
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CORSOrigins,
	}))
	app.Use(compress.New())

	r.server = app
	r.routes()

	return r
}

func (r *Relay) routes() {
	app := r.server

	app.Get("/health", r.handleHealth)

	for _, path := range []string{"/chat", "/api/chat"} {
		app.Post(path, r.handleChat)
	}
	for _, path := range []string{"/speech", "/tts", "/api/speech"} {
		app.Post(path, r.handleSpeech)
	}
	for _, path := range []string{"/transcribe", "/api/transcribe"} {
		app.Post(path, r.handleTranscribe)
	}

	app.Post("/generate-image", r.handleGenerateImage)
	app.Post("/image-edit", r.handleImageEdit)
	app.Post("/image", r.handleImageURL)
	app.Post("/api/analyze", r.handleAnalyze)

	if r.config.StaticDir != "" {
		app.Static("/", r.config.StaticDir)
	} else {
		app.Get("/", r.handleHealth)
	}
}

// App exposes the underlying fiber app, mainly for app.Test in tests.
func (r *Relay) App() *fiber.App {
	return r.server
}

// Run starts the relay on the configured listening address.
func (r *Relay) Run() error {
	r.logStart(r.config.ListenAddr)
	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logStart(listener.Addr().String())
	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay, waiting for in-flight requests.
func (r *Relay) Close() error {
	return r.server.Shutdown()
}

func (r *Relay) logStart(addr string) {
	fields := []zap.Field{zap.String("listen", addr)}
	if p := r.providers.Chat; p != nil {
		fields = append(fields, zap.String("chat", p.Name()))
	}
	if r.providers.DefaultSpeech != "" {
		fields = append(fields, zap.String("speech", r.providers.DefaultSpeech))
	}
	if p := r.providers.Transcriber; p != nil {
		fields = append(fields, zap.String("transcribe", p.Name()))
	}
	if p := r.providers.Image; p != nil {
		fields = append(fields, zap.String("image", p.Name()))
	}
	if r.config.StaticDir != "" {
		fields = append(fields, zap.String("static_dir", r.config.StaticDir))
	}
	r.logger.Info("starting relay server", fields...)
}

// logRequests records one line per request once the handler has finished.
func (r *Relay) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}

	r.logger.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID(c)),
	)
	return err
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}

func (r *Relay) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
