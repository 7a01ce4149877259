package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/parla/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/parla/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/parla/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/parla/internal/widget"
	"github.com/saturnino-fabrica-de-software/parla/internal/ws"
)

type Dependencies struct {
	Manager *widget.Manager
	Hub     *ws.Hub
}

type Router struct {
	app       *fiber.App
	logger    *slog.Logger
	deps      *Dependencies
	cancelHub context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Parla API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Session-ID",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler()
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	if r.deps != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		widgetHandler := handler.NewWidgetHandler(r.deps.Manager, r.logger)

		w := v1.Group("/widget")
		w.Post("/session", widgetHandler.CreateSession)
		w.Get("/state", widgetHandler.GetState)
		w.Get("/messages", widgetHandler.GetMessages)
		w.Post("/message", widgetHandler.SendMessage)
		w.Post("/message/:index/done", widgetHandler.MarkAnimationDone)

		w.Post("/otp/request", widgetHandler.RequestOtp)
		w.Post("/otp/verify", widgetHandler.VerifyOtp)
		w.Post("/otp/cancel", widgetHandler.CancelOtp)

		w.Post("/audio/play", widgetHandler.PlayReply)
		w.Post("/audio/stop", widgetHandler.StopPlayback)
		w.Post("/audio/mute", widgetHandler.SetMuted)
		w.Post("/audio/ended", widgetHandler.PlaybackEnded)

		w.Post("/record/start", widgetHandler.StartRecording)
		w.Post("/record/chunk", widgetHandler.PushChunk)
		w.Post("/record/stop", widgetHandler.StopRecording)

		// WebSocket event channel: playback commands and gate events
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}

	if r.deps != nil && r.deps.Manager != nil {
		r.deps.Manager.Close()
	}

	return r.app.Shutdown()
}
