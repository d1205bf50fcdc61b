package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/archiconstruct/chatbot/pkg/api/handler"
	"github.com/archiconstruct/chatbot/pkg/api/response"
	"github.com/archiconstruct/chatbot/pkg/auth"
	"github.com/archiconstruct/chatbot/pkg/gemini"
	"github.com/archiconstruct/chatbot/pkg/logger"
	"github.com/archiconstruct/chatbot/pkg/repository"
	"github.com/archiconstruct/chatbot/pkg/services"
	"github.com/archiconstruct/chatbot/pkg/workers"
)

type Config struct {
	// GeminiAPIKey is intentionally not required at parse time: a missing key
	// is surfaced on each request so the widget can show a helpful fault.
	GeminiAPIKey         string        `env:"API_KEY"`
	ServerAddr           string        `env:"SERVER_ADDR" envDefault:":8080"`
	ChatbotURL           string        `env:"CHATBOT_URL" envDefault:"http://localhost:8080"`
	VideoPollInterval    time.Duration `env:"VIDEO_POLL_INTERVAL" envDefault:"5s"`
	VideoPollMaxAttempts uint          `env:"VIDEO_POLL_MAX_ATTEMPTS" envDefault:"120"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	workerGroup, err := setupWorkers()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers() (workers.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		slog.Warn("API_KEY is not set; generation requests will fail until it is configured")
	}

	geminiClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	conversationRepository := repository.NewConversationRepository()

	keyState := auth.NewKeyState()
	if cfg.GeminiAPIKey != "" {
		keyState.MarkReady()
	}

	conversationService := services.NewConversationService(
		geminiClient,
		conversationRepository,
		keyState,
		cfg.VideoPollInterval,
		cfg.VideoPollMaxAttempts,
	)

	router, err := setupRouter(geminiClient, conversationService, keyState, cfg.ChatbotURL)
	if err != nil {
		return nil, err
	}

	var workerGroup workers.Group

	server, err := workers.NewHTTPServer(cfg.ServerAddr, router)
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	workerGroup = append(workerGroup, server)

	return workerGroup, nil
}

func setupRouter(
	provider handler.GeminiProvider,
	orchestrator handler.Orchestrator,
	keyStatus handler.KeyStatus,
	chatbotURL string,
) (*chi.Mux, error) {
	proxyHandler := handler.NewProxy(provider)
	chatHandler := handler.NewChat(orchestrator, keyStatus)
	widgetHandler, err := handler.NewWidget(chatbotURL)
	if err != nil {
		return nil, fmt.Errorf("creating widget handler: %w", err)
	}

	jsonWriter := &response.JSONResponseWriter{}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors.AllowAll().Handler)
	router.Post("/api/proxy", proxyHandler.Handle)
	router.Get("/api/proxy", proxyHandler.Handle)
	router.Post("/api/chat", chatHandler.SendMessage)
	router.Get("/api/chat/messages", chatHandler.ListMessages)
	router.Get("/api/chat/video/{messageID}", chatHandler.GetVideo)
	router.Get("/api/chat/key-status", chatHandler.KeyStatus)
	router.Get("/widget-loader.js", widgetHandler.ServeLoader)
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonWriter.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router, nil
}
