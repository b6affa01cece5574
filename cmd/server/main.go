package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/api"
	"productboards-backend/internal/config"
	"productboards-backend/internal/crypto"
	"productboards-backend/internal/handlers"
	"productboards-backend/internal/integrations/slack"
	"productboards-backend/internal/logging"
	"productboards-backend/internal/metrics"
	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/services"
	"productboards-backend/internal/store"
	"productboards-backend/internal/store/memory"
	"productboards-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	rootCmd = &cobra.Command{
		Use:          "server",
		Short:        "Backend for AI shopping conversations and product boards.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env before flags and environment are read (ignore error if file doesn't exist)
			_ = godotenv.Load()
			v := viper.GetViper()
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
			v.AutomaticEnv()
			config.SetDefaults(v)
			return logging.Setup(os.Stderr, v.GetString("log_level"), v.GetString("log_format"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			pool, err := connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			slog.Info("Schema applied")
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("port", "8080", "HTTP port to listen on")
	rootCmd.PersistentFlags().String("store-driver", config.DriverPostgres, "storage backend (postgres or memory)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")
	rootCmd.Flags().Bool("auto-migrate", true, "apply the schema on startup when using postgres")

	for key, flag := range map[string]string{
		"http_port":    "port",
		"store_driver": "store-driver",
		"database_url": "database-url",
		"log_level":    "log-level",
		"log_format":   "log-format",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("auto_migrate", rootCmd.Flags().Lookup("auto-migrate")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	// Timeout for initial connection
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(dbCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create database connection pool: %w", err)
	}
	if err := pool.Ping(dbCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	slog.Info("Database connection pool established")
	return pool, nil
}

func serve(ctx context.Context) error {
	slog.Info("Starting ProductBoards backend")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m := metrics.New()
	messageFeed := realtime.NewHub[models.Message](realtime.WithSubscriberGauge(m.SubscriberGauge("messages")))
	priceFeed := realtime.NewHub[models.PriceHistory](realtime.WithSubscriberGauge(m.SubscriberGauge("prices")))
	publishMessage := func(msg models.Message) { messageFeed.Publish(msg.ConversationID, msg) }
	publishPrice := func(p models.PriceHistory) { priceFeed.Publish(p.ProductLinkID, p) }

	g, ctx := errgroup.WithContext(ctx)

	// Postgres feeds the hubs through LISTEN/NOTIFY so inserts made by other replicas reach
	// local subscribers too. The memory store publishes from its own write path.
	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if viper.GetBool("auto_migrate") {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		pgStore := postgres.NewPostgresStore(pool)
		listener := postgres.NewListener(pool, pgStore, publishMessage, publishPrice, messageFeed.Resync)
		g.Go(func() error { return listener.Run(ctx) })
		st = pgStore
	case config.DriverMemory:
		slog.Warn("Using the in-memory store; data is lost on exit")
		st = memory.New(memory.WithMessageHook(publishMessage), memory.WithPriceHook(publishPrice))
	}

	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to create sealer: %w", err)
	}

	if cfg.AIAPIKey == "" {
		slog.Warn("AI_API_KEY is not set; assistant calls will fail")
	}
	aiClient := ai.NewOpenAIClient(ai.Config{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
		Metrics: m,
	})

	// --- Initialize Services ---
	gate := services.NewGate(st)
	authService := services.NewAuthService(st, cfg)
	conversationService := services.NewConversationService(st, gate)
	messageService := services.NewMessageService(st, gate, messageFeed)
	pipeline := services.NewSendPipeline(st, gate, aiClient, cfg.AITimeout, m)
	boardService := services.NewBoardService(st, gate, aiClient)
	alertService := services.NewAlertService(st, sealer, slack.SendPriceAlert)
	productService := services.NewProductService(st, gate, aiClient, alertService, priceFeed)
	assistantService := services.NewAssistantService(aiClient)

	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:          handlers.NewAuthHandler(authService),
		ConversationHandlers: handlers.NewConversationHandlers(conversationService, messageService, pipeline, cfg.AITimeout),
		StreamHandlers:       handlers.NewStreamHandlers(messageService, productService, cfg.AllowedOrigins),
		BoardHandlers:        handlers.NewBoardHandlers(boardService),
		ProductHandlers:      handlers.NewProductHandlers(productService),
		SharedHandlers:       handlers.NewSharedHandlers(boardService, cfg.PublicBaseURL),
		AIHandlers:           handlers.NewAIHandlers(assistantService),
		AlertHandlers:        handlers.NewAlertHandlers(alertService),
		Metrics:              m,
		Config:               cfg,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long enough for an assistant reply; WebSockets manage their own write deadlines.
		WriteTimeout: cfg.AITimeout + 45*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("Server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", cfg.HTTPPort, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received, initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	slog.Info("Server shutdown complete")
	return nil
}
