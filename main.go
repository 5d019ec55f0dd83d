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
	"github.com/xdubnickas/trading212-tracker/src/config"
	"github.com/xdubnickas/trading212-tracker/src/database"
	"github.com/xdubnickas/trading212-tracker/src/handlers"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/services"
	"github.com/xdubnickas/trading212-tracker/src/t212"
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
			"http://localhost:3000":     true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Expose-Headers", "Retry-After")
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

	logger.L.Info("Trading 212 tracker backend starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(config.Cfg.CacheExpiration, config.Cfg.CacheCleanupInterval)

	upstreamHTTPClient := &http.Client{Timeout: config.Cfg.UpstreamTimeout}
	t212Client := t212.NewClient(config.Cfg.T212APIBaseURL,
		t212.ClientWithHTTPClient(upstreamHTTPClient),
		t212.ClientWithLogger(logger.L),
	)

	csvFetcher := services.NewCSVFetcher(config.Cfg.CSVProxyBaseURL, upstreamHTTPClient)

	exportService := services.NewExportService(t212Client, services.PolicyFromConfig())
	ingestService := services.NewIngestService(csvFetcher, config.Cfg.IngestMaxConcurrentDownloads)
	accountService := services.NewAccountService(t212Client, reportCache, config.Cfg.AccountCacheTTL)

	proxyHandler := handlers.NewProxyHandler(config.Cfg.T212APIBaseURL, config.Cfg.CSVStorageHost, upstreamHTTPClient)
	exportHandler := handlers.NewExportHandler(exportService, t212Client)
	analyticsHandler := handlers.NewAnalyticsHandler(t212Client, ingestService, reportCache)
	accountHandler := handlers.NewAccountHandler(accountService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Trading 212 tracker backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Pass-through proxies. The CSV proxy carries no credential, the
		// download links are pre-signed.
		r.HandleFunc("/proxy/*", proxyHandler.HandleAPIProxy)
		r.Get("/csv-proxy", proxyHandler.HandleCSVProxy)
		r.Get("/csv-proxy/*", proxyHandler.HandleCSVProxy)

		// Credentialed routes.
		r.Group(func(r chi.Router) {
			r.Use(handlers.CredentialMiddleware)

			r.Get("/account/verify", accountHandler.HandleVerifyAccount)

			r.Post("/exports/sync", exportHandler.HandleSyncExports)
			r.Get("/exports", exportHandler.HandleListExports)
			r.Get("/exports/runs", exportHandler.HandleGetExportRuns)

			r.Post("/transactions/ingest", analyticsHandler.HandleIngest)
			r.Get("/analytics/cash", analyticsHandler.HandleGetCashMovements)
			r.Get("/analytics/dividends", analyticsHandler.HandleGetDividends)
			r.Get("/analytics/interest", analyticsHandler.HandleGetInterest)
			r.Get("/analytics/trading", analyticsHandler.HandleGetTrading)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
