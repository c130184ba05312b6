package config

import (
	"os"
	"time"
)

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "postgres")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "shelfview")
	password := GetEnv("DB_PASS", "")
	name := GetEnv("DB_NAME", "shelfview")
	return host, port, user, password, name
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// CatalogConfig returns the TMDB base URL and API key. The key has no
// default; main fails loudly when it is missing.
func CatalogConfig() (string, string) {
	baseURL := GetEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	apiKey := os.Getenv("TMDB_API_KEY")
	return baseURL, apiKey
}

// AuthConfig returns the JWT signing secret and session lifetime.
func AuthConfig() (string, time.Duration) {
	secret := os.Getenv("AUTH_SECRET")

	lifetime := 24 * time.Hour
	if raw := os.Getenv("AUTH_SESSION_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			lifetime = d
		}
	}
	return secret, lifetime
}

// ServerConfig returns the listen port and allowed CORS origins.
func ServerConfig() (string, []string) {
	port := GetEnv("PORT", "8080")
	origins := []string{GetEnv("CORS_ORIGIN", "*")}
	return port, origins
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
