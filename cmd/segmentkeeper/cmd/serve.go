package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/solatis/segmentkeeper/internal/audience"
	"github.com/solatis/segmentkeeper/internal/core/api"
	"github.com/solatis/segmentkeeper/internal/core/auth"
	"github.com/solatis/segmentkeeper/internal/core/config"
	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/solatis/segmentkeeper/internal/core/server"
	"github.com/solatis/segmentkeeper/internal/core/store"
	"github.com/solatis/segmentkeeper/internal/messages"
	"github.com/solatis/segmentkeeper/internal/segments"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 3000, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	jwtKey, err := secrets.JWTKey()
	if err != nil {
		return err
	}

	url, err := storeURL()
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if sqlStore, ok := st.(*store.SQLStore); ok {
		if err := requireMigrated(ctx, sqlStore); err != nil {
			return err
		}
	}

	estimator, err := newEstimator(cfg.Audience, st)
	if err != nil {
		return err
	}

	generator, err := newGenerator(ctx, cfg.AI, secrets.GoogleAPIKey)
	if err != nil {
		return err
	}
	suggester := messages.NewSuggester(generator, messages.SuggesterOptions{
		Timeout: cfg.AI.Timeout,
		Limiter: rate.NewLimiter(rate.Limit(cfg.AI.RatePerSecond), cfg.AI.Burst),
		Logger:  logger.Named("messages"),
	})

	svc := segments.NewService(st, estimator, segments.Options{
		DefaultPageSize: cfg.Segments.DefaultPageSize,
		MaxPageSize:     cfg.Segments.MaxPageSize,
		Logger:          logger.Named("segments"),
	})

	handler, err := api.NewHandler(svc, suggester, auth.NewAuthenticator(jwtKey, logger.Named("auth")), api.Options{
		Logger:      logger.Named("api"),
		Development: cfg.Server.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	router := server.NewRouter(cfg.Server, handler, st, logger.Named("http"))
	httpServer, err := server.NewHTTPServer(cfg.Server, router, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting segmentkeeper",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("environment", cfg.Server.Environment),
		zap.String("estimator", cfg.Audience.Estimator),
		zap.Bool("ai_enabled", generator != nil))

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		return httpServer.Shutdown(context.Background())
	}
}

// requireMigrated refuses to serve from a SQL store with pending migrations.
func requireMigrated(ctx context.Context, s *store.SQLStore) error {
	statuses, err := db.MigrateStatus(ctx, s.DB())
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, st := range statuses {
		if !st.Applied {
			return fmt.Errorf("migration %s not applied - run 'segmentkeeper migrate up' first", st.ID)
		}
	}
	return nil
}

func newEstimator(cfg config.AudienceConfig, st store.Store) (audience.Estimator, error) {
	switch cfg.Estimator {
	case config.EstimatorRandom:
		return audience.NewRandomEstimator(nil), nil
	case config.EstimatorDataset:
		return audience.NewDatasetEstimator(st), nil
	default:
		return nil, fmt.Errorf("unknown audience estimator %q", cfg.Estimator)
	}
}

// newGenerator returns nil when no API key is configured; suggestions then use templates only.
func newGenerator(ctx context.Context, cfg config.AIConfig, apiKey string) (messages.Generator, error) {
	if apiKey == "" {
		logger.Info("GOOGLE_API_KEY not set, message enrichment disabled")
		return nil, nil
	}
	g, err := messages.NewGeminiGenerator(ctx, apiKey, cfg.Model)
	if err != nil {
		logger.Warn("message enrichment disabled", zap.Error(err))
		return nil, nil
	}
	logger.Info("message enrichment enabled", zap.String("generator", g.Name()))
	return g, nil
}
