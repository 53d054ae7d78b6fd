package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"minigames/internal/api"
	"minigames/internal/auth"
	"minigames/internal/broadcast"
	"minigames/internal/config"
	"minigames/internal/game"
	"minigames/internal/game/deduction"
	"minigames/internal/game/shooter"
	"minigames/internal/lobby"
	"minigames/internal/network"
	"minigames/internal/presence"
	"minigames/internal/services/bus"
	"minigames/internal/services/cluster"
	"minigames/internal/session"
	"minigames/internal/storage/sqlite"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	base, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer base.Sync()
	log := base.Sugar()

	if err := run(cfg, log); err != nil {
		log.Fatalf("[Main] %v", err)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Stores and shared registries.
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	deck := deduction.DefaultDeck()
	if cfg.ConceptsFile != "" {
		if deck, err = deduction.LoadDeck(cfg.ConceptsFile); err != nil {
			return err
		}
	}

	pres := presence.NewRegistry()
	channels := broadcast.New(pres, log)
	sessions := game.NewRegistry()
	sessions.OnRemove(func(info game.SessionInfo) {
		log.Infof("[Registry] %s session %s for room %s unregistered", info.Kind, info.ID, info.Room)
	})

	health := cluster.NewHealthAggregator(2 * time.Second)
	health.AddCheck("database", store.Ping)

	if cfg.NATSURL != "" {
		publisher, err := bus.Connect(cfg.NATSURL, cfg.ServiceName, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		pres.Observe(publisher.PresenceObserver())
		sessions.OnRemove(publisher.SessionEnded)
		health.AddCheck("bus", func(context.Context) error { return publisher.Healthy() })
	}

	// 2. Engines and the lobby manager.
	tuning := shooter.DefaultTuning()
	tuning.TickHz = cfg.ShooterTickHz
	engines := []game.Engine{
		shooter.NewEngine(sessions, channels, log, shooter.WithTuning(tuning)),
		deduction.NewEngine(sessions, channels, log, deduction.WithRules(cfg.DeductionRules()), deduction.WithDeck(deck)),
	}
	lobbies := lobby.NewManager(cfg.Lobby(), store, sessions, channels, log, engines...)
	go lobbies.Run(ctx)
	health.AddCheck("lobbies", lobbies.Ping)

	// 3. Transport and HTTP endpoints.
	resolver := auth.NewResolver(cfg.JWTSecret)
	handler := session.NewGameHandler(ctx, pres, channels, lobbies, sessions, store, log)
	ws := network.NewServer(handler, resolver, nil, log)
	go ws.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", ws)
	mux.HandleFunc("GET /health", health.Handler())
	api.Register(mux, store, resolver, sessions, lobbies, log)

	// 4. Consul registration, when configured.
	if cfg.ConsulAddr != "" {
		client, err := cluster.NewConsulClient(cfg.ConsulAddr, log)
		if err != nil {
			return err
		}
		registrar := cluster.NewRegistrar(client, log)
		if err := registrar.Register(cluster.Registration{
			Name:       cfg.ServiceName,
			Port:       cfg.ServicePort,
			HealthPort: cfg.ServicePort,
			Tags:       []string{"websocket", "minigames"},
		}); err != nil {
			return err
		}
		defer func() {
			if err := registrar.Deregister(); err != nil {
				log.Warnf("[Main] %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("[Main] listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Infof("[Main] shutting down")
	}

	for _, info := range sessions.List() {
		if s, err := sessions.Get(info.ID); err == nil {
			s.Stop("server shutting down")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
