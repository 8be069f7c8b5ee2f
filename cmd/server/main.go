package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/udhaarpay/backend/docs"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/database"
	"github.com/udhaarpay/backend/internal/database/memory"
	"github.com/udhaarpay/backend/internal/handlers"
	mW "github.com/udhaarpay/backend/internal/middleware"
	"github.com/udhaarpay/backend/internal/services"
	"github.com/udhaarpay/backend/internal/store"
)

// @title Udhaar Ledger API
// @version 1.0
// @description Credit ledger and settlement engine for neighbourhood shops
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("ledger.store_driver", "LEDGER_STORE_DRIVER")
	viper.BindEnv("ledger.currency", "LEDGER_CURRENCY")
	viper.BindEnv("ledger.default_credit_limit", "LEDGER_DEFAULT_CREDIT_LIMIT")
	viper.BindEnv("ledger.min_credit_limit", "LEDGER_MIN_CREDIT_LIMIT")
	viper.BindEnv("ledger.max_credit_limit", "LEDGER_MAX_CREDIT_LIMIT")
	viper.BindEnv("ledger.default_commission_rate", "LEDGER_DEFAULT_COMMISSION_RATE")
	viper.BindEnv("ledger.max_requests_per_window", "LEDGER_MAX_REQUESTS_PER_WINDOW")
	viper.BindEnv("ledger.request_rate_window", "LEDGER_REQUEST_RATE_WINDOW")

	viper.BindEnv("server.port", "PORT")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.request_timeout", 60*time.Second)

	if viper.GetString("jwt.secret_key") == "" {
		log.Fatal("JWT_SECRET_KEY must be set")
	}

	cfg := config.LoadLedgerConfig()

	docs.SwaggerInfo.Title = "Udhaar Ledger API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	st := openStore(cfg)
	defer st.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	auditLogger := audit.NewLogger()
	feed := services.NewBalanceFeed(redisClient, cfg.BalanceChannel)
	go func() {
		if err := feed.Run(ctx); err != nil {
			log.Printf("[FEED] relay stopped: %v", err)
		}
	}()

	directory := services.NewDirectoryService(st, redisClient, cfg, auditLogger)
	limiter := services.NewRequestLimiter(redisClient, cfg.MaxRequestsPerWindow, cfg.RequestRateWindow)
	connections := services.NewConnectionService(st, directory, limiter, auditLogger)
	balances := services.NewBalanceService(st, feed)
	policy := services.NewPolicyService(st, directory, balances, cfg, auditLogger)
	commission := services.NewCommissionService(st, cfg, auditLogger)
	notifier := services.NewNotifier(redisClient, cfg.NotificationQueue)
	ledger := services.NewLedgerService(st, connections, directory, policy, commission, feed, notifier, cfg, auditLogger)
	settlement := services.NewSettlementService(st, directory, services.NewISO20022Service(), cfg, auditLogger)
	qrService := services.NewQRService(redisClient, directory, connections, cfg.PairingQRTTL)

	mW.InitAuthMiddleware(redisClient)

	api := &handlers.API{
		Accounts:       handlers.NewAccountHandler(directory),
		Connections:    handlers.NewConnectionHandler(connections),
		Ledger:         handlers.NewLedgerHandler(ledger),
		Balances:       handlers.NewBalanceHandler(balances),
		Policy:         handlers.NewPolicyHandler(policy),
		Platform:       handlers.NewPlatformHandler(commission, policy),
		Settlements:    handlers.NewSettlementHandler(settlement),
		QR:             handlers.NewQRHandler(qrService),
		RequestTimeout: viper.GetDuration("server.request_timeout"),
	}

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := map[string]string{"status": "healthy", "redis": "disabled"}
		if err := st.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			status["status"] = "unhealthy"
		}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				status["redis"] = "unreachable"
			}
		}
		json.NewEncoder(w).Encode(status)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", api.Register)

	port := viper.GetString("server.port")
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Non-streaming routes are bounded by the request timeout middleware.
		WriteTimeout: viper.GetDuration("server.request_timeout") + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (store=%s)", port, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

func openStore(cfg *config.LedgerConfig) store.Store {
	switch cfg.StoreDriver {
	case "memory":
		log.Println("Using in-memory ledger store; data is lost on restart")
		return memory.New()
	case "postgres":
		db, err := database.InitDB()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		return database.NewPostgresStore(db)
	default:
		log.Fatalf("Unknown ledger.store_driver %q (want postgres or memory)", cfg.StoreDriver)
		return nil
	}
}
