package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"trendbot/internal/bot"
	"trendbot/internal/cache"
	"trendbot/internal/chart"
	"trendbot/internal/chain"
	"trendbot/internal/config"
	"trendbot/internal/db"
	"trendbot/internal/handler"
	"trendbot/internal/job"
	"trendbot/internal/logger"
	mcpserver "trendbot/internal/mcp"
	"trendbot/internal/provider"
	"trendbot/internal/repository"
	"trendbot/internal/service"
	signalengine "trendbot/internal/signal"
	"trendbot/internal/tui"
	"trendbot/pkg/tracing"

	"github.com/charmbracelet/ssh"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "trendbot/docs"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	newLoggerFunc     = logger.New
	initTracerFunc    = tracing.InitTracer
	connectDBFunc     = db.Connect
	runMigrationsFunc = func(ctx context.Context, pool *pgxpool.Pool) error {
		return repository.RunMigrations(ctx, pool)
	}
	connectRedisFunc       = cache.Connect
	startTelegramBotFunc   = bot.StartTelegramBot
	runSchedulerFunc       = func(s *job.TrendScheduler, ctx context.Context) { s.Start(ctx) }
	runPricePollerFunc     = func(p *job.PricePoller, ctx context.Context) { p.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	newSSHServerFunc       = tui.NewSSHServer
	startSSHServerFunc     = func(srv *ssh.Server) error { return srv.ListenAndServe() }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func httpAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// @title           Trendbot API
// @version         1.0
// @description     Trend signals and automated Solana swaps.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	bootLogger, err := newLoggerFunc("info", "json")
	if err != nil {
		bootLogger = zap.NewNop()
	}
	cfg := loadConfigFunc(bootLogger)
	log, err := newLoggerFunc(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLogger.Warn("invalid log settings, keeping defaults", zap.Error(err))
		log = bootLogger
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Stores
	pool, err := connectDBFunc(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
		if err := runMigrationsFunc(ctx, pool); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var lease job.AssetLease
	redisClient, err := connectRedisFunc(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warn("redis unavailable, cross-process lease disabled", zap.Error(err))
	} else if redisClient != nil {
		defer redisClient.Close()
		lease = cache.NewLease(redisClient, seconds(cfg.TrendLockTTL))
	}

	// Chain and swap pipeline
	jupiter := provider.NewJupiterClient(tracer, provider.JupiterOptions{
		BaseURL:    cfg.JupiterAPIURL,
		PriceURL:   cfg.JupiterPriceURL,
		APIKey:     cfg.JupiterAPIKey,
		RatePerSec: cfg.JupiterRatePerSec,
	})
	node := chain.WithCallTimeout(chain.NewRPCClient(cfg.SolanaRPCEndpoint), seconds(cfg.RPCTimeoutSecs))
	relay := chain.NewRelayClient(tracer, log, cfg.RelayEndpoints, seconds(cfg.RelayTimeoutSecs))
	broadcaster, err := chain.NewBroadcaster(tracer, log, node, relay, chain.BroadcasterOptions{
		MaxAttempts: cfg.BroadcastMaxAttempts,
		TipLamports: cfg.RelayTipLamports,
	})
	if err != nil {
		log.Fatal("failed to create broadcaster", zap.Error(err))
	}
	swaps := service.NewSwapService(
		tracer, log, jupiter,
		chain.NewBuilder(tracer, log, node),
		broadcaster,
		chain.NewPoller(tracer, log, node),
		seconds(cfg.QuoteTimeoutSecs),
	)

	// Trend state lives in postgres; without it only the HTTP and bot
	// surfaces run.
	var (
		trends   *service.TrendService
		tokens   *repository.TokenRepository
		accounts *repository.AccountRepository
		prices   *repository.PriceRepository
		querier  bot.TrendQuerier
		lookup   bot.TokenLookup
		catalog  tui.AssetCatalog
	)
	if pool != nil {
		prices = repository.NewPriceRepository(pool, tracer)
		tokens = repository.NewTokenRepository(pool, tracer)
		accounts = repository.NewAccountRepository(pool, tracer)
		trends = service.NewTrendService(
			tracer, log, prices,
			repository.NewTrendRepository(pool, tracer),
			signalengine.NewEngine(),
			signalengine.Classify,
			time.Duration(cfg.TrendWindowMins)*time.Minute,
		)
		querier, lookup, catalog = trends, tokens, tokens
	}

	charts := chart.NewRenderer()
	notifier, err := startTelegramBotFunc(cfg.TelegramBotToken, log, querier, lookup, charts)
	if err != nil {
		log.Error("failed to start Telegram bot", zap.Error(err))
	}

	// Background work (stopped by ctx cancel)
	var (
		workers    sync.WaitGroup
		recomputer handler.Recomputer
	)
	if pool != nil {
		trades := service.NewTradeService(
			tracer, log,
			accounts, accounts, accounts,
			chain.NewHoldings(tracer, log, node),
			tokens, notifier, swaps,
			service.TradeOptions{
				SlippageBps: cfg.SlippageBps,
				UseRelay:    cfg.UseRelay,
				Concurrency: cfg.TradeConcurrency,
			},
		)
		scheduler := job.NewTrendScheduler(tracer, log, trends, trades, tokens, lease, seconds(cfg.TrendTickSecs))
		recomputer = scheduler
		workers.Go(func() { runSchedulerFunc(scheduler, ctx) })

		if cfg.PriceIngestEnabled {
			poller := job.NewPricePoller(tracer, log, jupiter, prices, tokens, seconds(cfg.PricePollSecs))
			workers.Go(func() { runPricePollerFunc(poller, ctx) })
		}
	}

	// HTTP surface
	h := handler.New(tracer, log, querier, recomputer, notifier, charts)

	r := newRouterFunc()
	r.Use(cors.Default())
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.MCPAuthToken != "" {
		mcpSrv := mcpserver.NewServer(tracer, querier, catalog, recomputer, mcpserver.ServerConfig{
			RequestTimeout: seconds(cfg.MCPRequestTimeoutSecs),
			Logger:         log,
		})
		mcpserver.Mount(r, "/mcp", mcpSrv, mcpserver.HTTPHandlerConfig{
			AuthToken:       cfg.MCPAuthToken,
			RateLimitPerMin: cfg.MCPRateLimitPerMin,
		})
		log.Info("mcp endpoint mounted", zap.String("path", "/mcp"))
	}

	srv := &http.Server{
		Addr:    httpAddr(cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("addr", srv.Addr))

	var dashboard *ssh.Server
	if cfg.SSHAddr != "" {
		dashboard, err = newSSHServerFunc(log, tui.Services{Trends: querier, Assets: catalog}, tui.ServerOptions{
			Addr:           cfg.SSHAddr,
			HostKeyPath:    cfg.SSHHostKeyPath,
			AuthorizedKeys: cfg.SSHAuthorizedKeys,
		})
		if err != nil {
			log.Error("failed to create ssh dashboard", zap.Error(err))
		} else {
			go func() {
				if err := startSSHServerFunc(dashboard); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
					log.Error("ssh dashboard stopped", zap.Error(err))
				}
			}()
			log.Info("ssh dashboard started", zap.String("addr", cfg.SSHAddr))
		}
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if dashboard != nil {
		if err := dashboard.Shutdown(shutdownCtx); err != nil {
			log.Error("ssh dashboard forced to shutdown", zap.Error(err))
		}
	}
	workers.Wait()

	log.Info("server exiting")
}
