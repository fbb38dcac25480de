package config

import (
	"os"
	"strings"
)

// Config carries all process-wide settings, loaded once at startup. Secret
// material (signing secret, encryption key, OAuth and mailer credentials) is
// handed into service constructors from here; components never read the
// environment themselves.
type Config struct {
	MongoURI string
	RedisURI string

	JWTSecret          string
	TokenEncryptionKey string

	Port           string
	FrontendURL    string   // auth-origin UI, used in verification links
	AppOriginURL   string   // application-origin UI, target of the SSO handoff
	AllowedOrigins []string // CORS: both origins' UIs call this API

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	BrevoAPIKey      string
	BrevoSenderName  string
	BrevoSenderEmail string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	Host        string // Raw HOST env (e.g. https://auth.viddify.io)
	AllowedHost string // Hostname only, for the production host check
	Environment string // ENV: production, development, etc.
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; the host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = stripToHostname(host)
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")
	appOriginURL := getEnv("APP_ORIGIN_URL", "http://localhost:3001")

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{frontendURL, appOriginURL} {
			if u = strings.TrimSpace(u); u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	return &Config{
		MongoURI: getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/viddify")),
		RedisURI: getEnv("REDIS_URI", "redis://localhost:6379/0"),

		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		Port:           getEnv("PORT", "8080"),
		FrontendURL:    frontendURL,
		AppOriginURL:   appOriginURL,
		AllowedOrigins: allowedOrigins,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", host+"/youtube/callback"),

		BrevoAPIKey:      getEnv("BREVO_API_KEY", ""),
		BrevoSenderName:  getEnv("BREVO_SENDER_NAME", "Viddify"),
		BrevoSenderEmail: getEnv("BREVO_SENDER_EMAIL", ""),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		Host:        host,
		AllowedHost: allowedHost,
		Environment: env,
	}
}

func stripToHostname(u string) string {
	for _, prefix := range []string{"https://", "http://"} {
		u = strings.TrimPrefix(u, prefix)
	}
	if idx := strings.Index(u, "/"); idx != -1 {
		u = u[:idx]
	}
	if idx := strings.Index(u, ":"); idx != -1 {
		u = u[:idx]
	}
	return strings.TrimSpace(u)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
