// ABOUTME: Gateway orchestrator that wires storage, AI pipeline, realtime hub and channel adapters
// ABOUTME: Manages the HTTP server, route registration and graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Valey88/Profit-AI/internal/assemble"
	"github.com/Valey88/Profit-AI/internal/channel"
	"github.com/Valey88/Profit-AI/internal/config"
	"github.com/Valey88/Profit-AI/internal/inbox"
	"github.com/Valey88/Profit-AI/internal/pipeline"
	"github.com/Valey88/Profit-AI/internal/provider"
	"github.com/Valey88/Profit-AI/internal/realtime"
	"github.com/Valey88/Profit-AI/internal/store"
)

// Gateway owns every long-lived component of the profit-gateway server.
type Gateway struct {
	config     *config.Config
	store      store.Store
	inbox      *inbox.Service
	hub        *realtime.Hub
	telegram   *channel.Telegram
	vk         *channel.VK
	httpServer *http.Server
	logger     *slog.Logger

	// aiHealth checks generation-backend reachability for the health endpoint.
	aiHealth func(ctx context.Context) error
}

// New creates a Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	gen := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.AI.APIKey,
		APIBase: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
		Logger:  logger,
	})

	asm := assemble.New(s, logger)
	pipe := pipeline.New(asm, gen, cfg.AI.Timeout, logger)

	// The hub forwards widget frames into the inbox; the inbox broadcasts
	// through the hub. The closure breaks the construction cycle.
	var svc *inbox.Service
	hub := realtime.NewHub(func(ctx context.Context, conversationID, text string) {
		svc.HandleWidgetMessage(ctx, conversationID, text)
	}, logger)
	svc = inbox.NewService(s, pipe, hub, logger)

	gw := &Gateway{
		config:   cfg,
		store:    s,
		inbox:    svc,
		hub:      hub,
		logger:   logger.With("component", "gateway"),
		aiHealth: gen.Healthy,
	}

	if err := gw.setupChannels(cfg, logger); err != nil {
		s.Close()
		return nil, err
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// setupChannels connects the enabled channel adapters and registers their
// deliverers.
func (g *Gateway) setupChannels(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Channels.Telegram.Enabled {
		tg, err := channel.NewTelegram(cfg.Channels.Telegram.Token, g.inbox, logger)
		if err != nil {
			return fmt.Errorf("setting up telegram: %w", err)
		}
		if cfg.Server.PublicURL != "" {
			if err := tg.SetWebhook(cfg.Server.PublicURL); err != nil {
				logger.Warn("telegram webhook registration failed", "error", err)
			}
		}
		g.telegram = tg
		g.inbox.RegisterDeliverer(store.ChannelTelegram, tg)
	}

	if cfg.Channels.VK.Enabled {
		vk := channel.NewVK(channel.VKConfig{
			AccessToken:  cfg.Channels.VK.AccessToken,
			Confirmation: cfg.Channels.VK.Confirmation,
			Secret:       cfg.Channels.VK.Secret,
			Logger:       logger,
		}, g.inbox)
		g.vk = vk
		g.inbox.RegisterDeliverer(store.ChannelVK, vk)
	}

	return nil
}

// routes builds the HTTP mux for the full API surface.
func (g *Gateway) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)

	mux.HandleFunc("/api/chats", g.handleChats)
	mux.HandleFunc("/api/chats/", g.handleChatRoutes)
	mux.HandleFunc("/api/agent/profile", g.handleAgentProfile)
	mux.HandleFunc("/api/agent/knowledge", g.handleKnowledge)
	mux.HandleFunc("/api/agent/knowledge/", g.handleKnowledgeByID)

	if g.telegram != nil {
		mux.HandleFunc("/integrations/telegram/webhook", g.telegram.WebhookHandler)
		mux.HandleFunc("/integrations/telegram/health", g.telegram.HealthHandler)
	}
	if g.vk != nil {
		mux.HandleFunc("/integrations/vk/webhook", g.vk.WebhookHandler)
	}

	mux.HandleFunc("/ws", g.hub.ServeWS)

	return mux
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth reports server liveness plus the generation backend's
// reachability. An unreachable backend degrades the report, never the
// status code: it is a problem for replies, not for the process.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if g.aiHealth != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := g.aiHealth(ctx); err != nil {
			status["status"] = "degraded"
			status["ai"] = err.Error()
		} else {
			status["ai"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, status)
}
