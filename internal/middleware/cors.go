package middleware

import (
	"slices"

	"github.com/go-chi/cors"
)

const defaultOrigin = "http://localhost:3000"

// CORS builds the cross-origin policy for the API. Browsers reject credentials
// alongside a wildcard origin, so "*" turns credentials off.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           600,
	}
}
