package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/viddify/viddify-backend/internal/handlers"
	"github.com/viddify/viddify-backend/internal/middleware"
	"github.com/viddify/viddify-backend/internal/services"
)

func SetupRoutes(r *chi.Mux, tokens *services.TokenService) {
	// Public auth routes
	r.Post("/auth/register", handlers.Register)
	r.Get("/auth/verify-email/{token}", handlers.VerifyEmail)
	r.Post("/auth/login", handlers.Login)
	r.Post("/auth/sso/verify", handlers.SSOVerify)

	// OAuth callback arrives from the browser without a bearer token;
	// the state nonce binds it to the initiating user.
	r.Get("/youtube/callback", handlers.YouTubeCallback)

	// Bearer-protected routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(tokens))

		pr.Get("/auth/profile", handlers.Profile)
		pr.Get("/auth/sso/generate", handlers.SSOGenerate)

		pr.Put("/user/profile", handlers.UpdateProfile)
		pr.Put("/user/password", handlers.UpdatePassword)
		pr.Put("/user/avatar", handlers.UpdateAvatar)

		pr.Get("/youtube/auth-url", handlers.YouTubeAuthURL)
		pr.Get("/youtube/channels", handlers.YouTubeChannels)
		pr.Delete("/youtube/channels/{channelId}", handlers.YouTubeUnlink)
	})
}
