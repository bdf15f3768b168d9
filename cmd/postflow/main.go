package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pysugar/postflow/internal/approval"
	"github.com/pysugar/postflow/internal/auth/linkedin"
	"github.com/pysugar/postflow/internal/auth/token"
	"github.com/pysugar/postflow/internal/bot"
	"github.com/pysugar/postflow/internal/config"
	"github.com/pysugar/postflow/internal/db"
	"github.com/pysugar/postflow/internal/generate"
	"github.com/pysugar/postflow/internal/publish"
	"github.com/pysugar/postflow/internal/version"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("POSTFLOW_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Only a broken database or a missing secret is fatal; everything else
	// surfaces as a chat reply.
	if cfg.Telegram.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.LinkedIn.ClientID == "" || cfg.LinkedIn.ClientSecret == "" {
		log.Fatal("LINKEDIN_CLIENT_ID and LINKEDIN_CLIENT_SECRET are required")
	}

	store, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	oauthConfig := linkedin.OAuthConfig(cfg.LinkedIn.ClientID, cfg.LinkedIn.ClientSecret, cfg.LinkedIn.RedirectURL)
	tokenManager := token.NewManager(store, oauthConfig, linkedin.Provider)

	gateway := publish.NewClient(tokenManager, cfg.LinkedIn.APIBase)
	machine := approval.NewMachine(store, gateway)

	generator := generate.New(cfg.Generation.BaseURL, cfg.Generation.APIKey,
		cfg.Generation.Model, cfg.Images.BaseURL, cfg.Images.Dir)

	messenger := bot.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
	router := bot.NewRouter(store, machine, tokenManager, generator, linkedin.Provider)

	startCleanupLoop(store, cfg.CleanupDays)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Post("/webhook/{secret}", bot.WebhookHandler(router, messenger, store.WebhookSecret()))
	r.Get("/auth/linkedin/callback", linkedin.HandleCallback(tokenManager))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Printf("🚀 postflow %s starting on http://%s", version.Version, cfg.ListenAddr)
	log.Printf("📮 Webhook path: /webhook/%s", store.WebhookSecret())

	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// startCleanupLoop sweeps old decided posts once a day. Pending posts are
// never touched.
func startCleanupLoop(store *db.Store, days int) {
	ticker := time.NewTicker(24 * time.Hour)
	go func() {
		for range ticker.C {
			if n, err := store.CleanupOlderThan(days); err != nil {
				log.Printf("⚠️ Cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("🧹 Cleaned up %d old posts", n)
			}
		}
	}()
}
