package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS creates CORS middleware that handles CORS headers and OPTIONS preflight requests
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400, // Cache preflight for 24 hours
	})
	return c.Handler
}

// CORSFromEnv creates CORS middleware from environment variable
// Parses FRONTEND_URL (comma-separated origins) and defaults to http://localhost:3000
func CORSFromEnv(frontendURL string) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if frontendURL != "" {
		// Parse comma-separated origins and trim whitespace
		envOrigins := strings.Split(frontendURL, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				// Avoid duplicates
				exists := false
				for _, existing := range origins {
					if existing == trimmed {
						exists = true
						break
					}
				}
				if !exists {
					origins = append(origins, trimmed)
				}
			}
		}
	}
	return CORS(origins)
}
