package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/viddify/viddify-backend/internal/config"
	"github.com/viddify/viddify-backend/internal/database"
	"github.com/viddify/viddify-backend/internal/handlers"
	"github.com/viddify/viddify-backend/internal/middleware"
	"github.com/viddify/viddify-backend/internal/routes"
	"github.com/viddify/viddify-backend/internal/services"
	"github.com/viddify/viddify-backend/internal/store"
	"github.com/viddify/viddify-backend/pkg/utils"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if cfg.TokenEncryptionKey == "" {
		log.Fatal("TOKEN_ENCRYPTION_KEY not set. Linked-channel credentials cannot be stored without it.")
	}
	if cfg.IsProduction() && cfg.JWTSecret == "your-secret-key-change-in-production" {
		log.Fatal("JWT_SECRET must be set in production")
	}

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Unique indexes on username and email back the registration guarantees
	userStore := store.NewMongoUserStore(database.DB)
	if err := userStore.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("Failed to ensure user indexes:", err)
	}
	log.Println("✅ MongoDB user indexes ensured")

	// Wire services; all secret material flows in here, once
	tokens := services.NewTokenService([]byte(cfg.JWTSecret))
	mailer := services.NewBrevoMailer(cfg.BrevoAPIKey, cfg.BrevoSenderName, cfg.BrevoSenderEmail)
	authService := services.NewAuthService(userStore, mailer, tokens, cfg.FrontendURL)

	youtube := services.NewGoogleYouTubeClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	states := services.NewRedisStateStore(database.RedisClient)
	vault := services.NewVaultService(userStore, youtube, states, utils.DeriveEncryptionKey(cfg.TokenEncryptionKey))

	var avatars *services.AvatarService
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		svc, err := services.NewAvatarService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Avatar uploads will not be available")
		} else {
			avatars = svc
			log.Println("✅ Cloudinary avatar service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Avatar uploads will not be available")
	}

	handlers.Init(authService, vault, avatars, cfg.AppOriginURL)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, tokens)

	log.Println("📋 Registered routes:")
	log.Println("  GET  /health")
	log.Println("  POST /auth/register")
	log.Println("  GET  /auth/verify-email/{token}")
	log.Println("  POST /auth/login")
	log.Println("  GET  /auth/profile")
	log.Println("  GET  /auth/sso/generate")
	log.Println("  POST /auth/sso/verify")
	log.Println("  PUT  /user/profile")
	log.Println("  PUT  /user/password")
	log.Println("  PUT  /user/avatar")
	log.Println("  GET  /youtube/auth-url")
	log.Println("  GET  /youtube/callback")
	log.Println("  GET  /youtube/channels")
	log.Println("  DELETE /youtube/channels/{channelId}")

	log.Printf("🚀 Viddify auth backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
