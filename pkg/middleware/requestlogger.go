package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agrostore/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, carrying the
// correlation, user and trace IDs already present plus the request method
// and path. Handlers fetch it with logger.FromContext.
//
// Mount it after RequestLogging and Tracing. JWTAuth re-enriches the stored
// logger with user_id once the token is verified.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			l := logger.WithContext(ctx, base).With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, l)))
		})
	}
}
