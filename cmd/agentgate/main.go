package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/agentgate/internal/app"
	"github.com/dropDatabas3/agentgate/internal/cache"
	memcache "github.com/dropDatabas3/agentgate/internal/cache/memory"
	rediscache "github.com/dropDatabas3/agentgate/internal/cache/redis"
	"github.com/dropDatabas3/agentgate/internal/config"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/http/handlers"
	"github.com/dropDatabas3/agentgate/internal/jwt"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	"github.com/dropDatabas3/agentgate/internal/rate"
	"github.com/dropDatabas3/agentgate/internal/store"
	"github.com/dropDatabas3/agentgate/internal/store/core"
	memstore "github.com/dropDatabas3/agentgate/internal/store/memory"
	pgstore "github.com/dropDatabas3/agentgate/internal/store/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentgate:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env es opcional; las vars reales del entorno tienen precedencia
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("AGENTGATE_CONFIG"), "ruta al YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "agentgate",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Store ──
	var repo core.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		repo = pg
		log.Info("store ready", logger.Component("postgres"))
	case "memory", "":
		repo = memstore.New()
		log.Info("store ready", logger.Component("memory"))
	default:
		return fmt.Errorf("storage.driver desconocido: %q", cfg.Storage.Driver)
	}

	// ── Cache + rate limiter ──
	var (
		ccache     cache.Cache
		limiter    rate.Limiter
		checkCache func(context.Context) error
	)
	switch cfg.Cache.Kind {
	case "redis":
		rc := rediscache.New(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.Prefix)
		ccache = rc
		checkCache = func(ctx context.Context) error { return rc.Client().Ping(ctx).Err() }
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rc.Client(), cfg.Cache.Prefix+":rl:", int(cfg.Rate.Max), cfg.RateWindow())
		}
		log.Info("cache ready", logger.Component("redis"))
	case "memory", "":
		ccache = memcache.New(cfg.AccessTTL())
		if cfg.Rate.Enabled {
			limiter = rate.NewMemoryLimiter(int(cfg.Rate.Max), cfg.RateWindow())
		}
		log.Info("cache ready", logger.Component("memory"))
	default:
		return fmt.Errorf("cache.kind desconocido: %q", cfg.Cache.Kind)
	}

	issuer := jwt.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.Secret), cfg.AccessTTL())

	c := &app.Container{
		Cfg:          cfg,
		Store:        repo,
		Issuer:       issuer,
		Cache:        ccache,
		Limit:        limiter,
		RefreshTTL:   cfg.RefreshTTL(),
		RequestTTL:   cfg.RequestTTL(),
		DefaultScope: cfg.Authz.DefaultScope,
	}
	if c.DefaultScope == "" {
		c.DefaultScope = "openid profile"
	}

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	mux := httpx.NewMux(httpx.MuxDeps{
		Authorize:   handlers.NewOAuthAuthorizeHandler(c),
		AgentAuth:   handlers.NewAgentAuthenticateHandler(c),
		CheckStatus: handlers.NewCheckStatusHandler(c),
		Token:       handlers.NewOAuthTokenHandler(c),
		Introspect:  handlers.NewOAuthIntrospectHandler(c),
		Revoke:      handlers.NewOAuthRevokeHandler(c),
		Discovery:   handlers.NewDiscoveryHandler(cfg.JWT.Issuer, cfg.Server.PublicURL),
		JWKS:        handlers.NewJWKSHandler(),
		Readyz:      handlers.NewReadyzHandler(c, checkCache),
		Metrics:     metricsHandler,
		Admin: []httpx.AdminRegistrar{
			handlers.NewAdminAgentsHandler(c),
			handlers.NewAdminClientsHandler(c),
		},
		Limiter: limiter,
	})

	srv := httpx.NewServer(cfg.Server.Addr, mux)
	sweeper := store.NewSweeper(repo, cfg.SweepInterval())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", logger.Any("addr", cfg.Server.Addr))
		return httpx.Serve(gctx, srv)
	})
	g.Go(func() error {
		err := sweeper.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	log.Info("shutdown complete")
	// dejar que zap flushee antes de salir
	time.Sleep(50 * time.Millisecond)
	return nil
}
