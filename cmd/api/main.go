package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"taxgateway/external/getway"
	"taxgateway/internal/auth"
	"taxgateway/internal/config"
	"taxgateway/internal/database"
	"taxgateway/internal/handler"
	"taxgateway/internal/service"
)

var (
	configPath string
	listenAddr string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "taxgateway",
	Short: "Deduction settings and tax calculation gateway",
	Long: `taxgateway serves the admin deduction settings and tax calculation
endpoints used by the tax form, relaying every call to the calculation service.

Admin credentials come from ADMIN_USERNAME / ADMIN_PASSWORD or the config file.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address, overrides the configured port")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

type historyStore interface {
	service.HistoryStore
	Close() error
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

func newHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (historyStore, error) {
	if cfg.Redis.URL == "" {
		logger.Info("calculation history kept in memory")
		return database.NewMemStore(cfg.History.MaxRecords), nil
	}

	store := database.NewRedisStore(database.NewRedisClient(cfg.Redis.URL), cfg.History.MaxRecords)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetUpstreamTimeout())
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.URL, err)
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.URL))
	return store, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, err := newHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer history.Close()

	upstream := getway.NewUpstream(cfg.Upstream.BaseURL, cfg.GetUpstreamTimeout())
	settings := service.NewSettingsGateway(getway.NewDeductionsClient(upstream), logger)
	admin := service.NewAdminSession(auth.NewVerifier(cfg.Admin.Username, cfg.Admin.Password), settings, logger)
	calculator := service.NewCalculator(getway.NewCalculationsClient(upstream), history, logger)

	h := handler.New(
		settings,
		admin,
		calculator,
		service.NewSummaryService(history),
		getway.NewUpstreamHealth(upstream),
		logger,
	)

	srv := &fasthttp.Server{
		Handler:      h.Router(),
		Name:         "taxgateway",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	addr := cfg.Addr()
	if listenAddr != "" {
		addr = listenAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.Duration("upstream_timeout", cfg.GetUpstreamTimeout()))
		return srv.ListenAndServe(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
