package middleware

import (
	"crypto/subtle"
	"net/http"

	"glow/shared/constant"
	"glow/shared/failure"
	"glow/transport/http/response"

	"github.com/rs/zerolog/log"
)

// AdminOnly guards administrative routes with the configured API key. The
// comparison is constant-time; an unset key disables the routes entirely.
func (a *appMiddleware) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := a.config.App.AdminAPIKey
		if expected == constant.Empty {
			log.Warn().Msg("admin api key is not configured, rejecting admin request")

			response.WithError(w, failure.Unauthorized("admin access is not configured"))

			return
		}

		provided := r.Header.Get(constant.RequestHeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			response.WithError(w, failure.Unauthorized("invalid api key"))

			return
		}

		next.ServeHTTP(w, r)
	})
}
