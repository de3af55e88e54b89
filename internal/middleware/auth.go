package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/request"
	"github.com/whizardlm/whizard-api/internal/services/oidc"
)

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates JWT tokens and
// upserts the user on every authenticated request. The provider-assigned
// subject is the user's primary key.
func Auth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]

			ctx := r.Context()
			oidcConfig, err := oidcProvider.GetConfig(ctx, providerName)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to get OIDC configuration")
				return
			}

			if oidcConfig.JWKSUrl == nil {
				respondError(w, http.StatusInternalServerError, "JWKS URL not configured")
				return
			}

			// Verify token
			verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
			claims, err := verifier.Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
			if err != nil {
				log.Printf("Token verification failed: %v (issuer: %s, jwks_url: %s)", err, oidcConfig.Issuer, *oidcConfig.JWKSUrl)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if claims.Sub == "" {
				respondError(w, http.StatusUnauthorized, "Token missing subject claim")
				return
			}

			user := &models.User{
				ID:            claims.Sub,
				Email:         claims.Email,
				EmailVerified: claims.EmailVerified,
			}
			if claims.Name != "" {
				name := claims.Name
				user.Name = &name
			}

			userRepo := database.NewUserRepository(db)
			if err := userRepo.Upsert(ctx, user); err != nil {
				log.Printf("Failed to upsert user %s: %v", claims.Sub, err)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
