package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/expensio/backend/src/categorizer"
	"github.com/username/expensio/backend/src/config"
	"github.com/username/expensio/backend/src/database"
	"github.com/username/expensio/backend/src/handlers"
	"github.com/username/expensio/backend/src/logger"
	"github.com/username/expensio/backend/src/plaid"
	"github.com/username/expensio/backend/src/security"
	"github.com/username/expensio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Expensio backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid: must be at least 32 characters.")
		stdlog.Fatal("invalid JWT_SECRET")
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	var cat *categorizer.Categorizer
	if config.Cfg.CategoryRulesPath != "" {
		var err error
		cat, err = categorizer.NewFromFile(config.Cfg.CategoryRulesPath)
		if err != nil {
			stdlog.Fatalf("failed to load category rules from %s: %v", config.Cfg.CategoryRulesPath, err)
		}
		logger.L.Info("Category rules loaded from file", "path", config.Cfg.CategoryRulesPath)
	} else {
		cat = categorizer.NewDefault()
	}

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
	plaidClient := plaid.NewClient(config.Cfg.PlaidClientID, config.Cfg.PlaidSecret, config.Cfg.PlaidEnv, config.Cfg.PlaidClientName)

	summaryService := services.NewSummaryService(database.DB, reportCache)
	syncService := services.NewSyncService(database.DB, plaidClient, cat, summaryService)

	plaidHandler := handlers.NewPlaidHandler(plaidClient, database.DB)
	connectionHandler := handlers.NewConnectionHandler(database.DB, syncService, summaryService)
	txHandler := handlers.NewTransactionHandler(database.DB, summaryService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Expensio Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// All routes require authentication; tokens are issued by the
		// identity provider sharing our JWT secret.
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(authService))

			r.Post("/plaid/link-token", plaidHandler.HandleCreateLinkToken)
			r.Post("/plaid/exchange", plaidHandler.HandleExchangePublicToken)

			r.Get("/connections", connectionHandler.HandleListConnections)
			r.Delete("/connections/{id}", connectionHandler.HandleDeleteConnection)
			r.Post("/connections/{id}/sync", connectionHandler.HandleSyncConnection)

			r.Get("/transactions", txHandler.HandleGetTransactions)
			r.Get("/spending/summary", txHandler.HandleGetSpendingSummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	// WriteTimeout must outlast SyncTimeout: a first sync for a busy
	// account drains many pages before it can respond.
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.Cfg.SyncTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
