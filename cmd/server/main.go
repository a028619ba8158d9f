// Command server is the process entrypoint: it validates configuration,
// loads the content packs, wires the Room Registry, Connection Index, Lobby
// Manager, Quiz Engine/Orchestrator, Janitor and optional autoplay driver
// together, and serves the REST + websocket surface until an interrupt
// signal arrives.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partyquiz/server/internal/autoplay"
	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/config"
	"github.com/partyquiz/server/internal/content"
	"github.com/partyquiz/server/internal/health"
	"github.com/partyquiz/server/internal/httpapi"
	"github.com/partyquiz/server/internal/janitor"
	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/orchestrator"
	"github.com/partyquiz/server/internal/quiz"
	"github.com/partyquiz/server/internal/ratelimit"
	"github.com/partyquiz/server/internal/registry"
	"github.com/partyquiz/server/internal/tracing"
	"github.com/partyquiz/server/internal/transport"
)

func main() {
	log.SetFlags(0)

	// .env is optional; a deployed container sets these directly.
	_ = godotenv.Load()

	f := &flags{}
	cmd := newCmd(f, runServer)
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, f *flags) error {
	f.exportEnv(os.Setenv)

	cfg, err := config.ValidateEnv()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.GoEnv == "development"); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, "partyquiz-server", cfg.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	store, err := content.LoadDir(cfg.ContentDir)
	if err != nil {
		logging.Fatal(ctx, "failed to load content packs", zap.Error(err))
		return err
	}

	clk := clock.New()
	reg := registry.New(clk)
	connIndex := registry.NewConnectionIndex()

	limiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		return err
	}

	hub := transport.NewHub(connIndex, limiter)
	lobbyMgr := lobby.New(reg, connIndex, clk, hub)
	hub.SetLobby(lobbyMgr)

	orch := orchestrator.New(reg, connIndex, store, clk, hub, quiz.DefaultDurations(), time.Now().UnixNano())
	lobbyMgr.SetGameStarter(orch)
	hub.SetGames(orch)

	healthHandler := health.NewHandler(store)

	var janitorLoop *janitor.Janitor
	if cfg.RoomCleanupEnabled {
		janitorLoop = janitor.New(lobbyMgr, orch, janitor.Config{
			Interval:                time.Duration(cfg.RoomCleanupIntervalSeconds) * time.Second,
			RoomWithoutHostTTL:      time.Duration(cfg.RoomWithoutHostTTLMinutes) * time.Minute,
			DisconnectedPlayerGrace: time.Duration(cfg.DisconnectedPlayerGraceSeconds) * time.Second,
		})
		healthHandler.WithJanitorChecker(janitorLoop)
		go janitorLoop.Run(ctx)
		defer janitorLoop.Stop()
	}

	if cfg.AutoplayEnabled {
		bots := autoplay.New(orch, lobbyMgr, autoplay.Config{
			PollInterval:   time.Duration(cfg.AutoplayPollIntervalMs) * time.Millisecond,
			MinActionDelay: time.Duration(cfg.AutoplayMinActionDelayMs) * time.Millisecond,
			MaxActionDelay: time.Duration(cfg.AutoplayMaxActionDelayMs) * time.Millisecond,
		}, time.Now().UnixNano())
		go bots.Run(ctx)
	}

	var origins []string
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	router := httpapi.New(httpapi.Config{
		Rooms:          lobbyMgr,
		Hub:            hub,
		Health:         healthHandler,
		AllowedOrigins: origins,
		PublicBaseURL:  f.publicBaseURL,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "party quiz server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
