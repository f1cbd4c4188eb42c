package middlewares

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/rand"

	"github.com/xdavidwu/openapi-conformance/internal/server"
)

// DrainBody reads up to max bytes of the body into the context. Larger
// bodies are rejected.
func DrainBody(next http.Handler, max int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logr.FromContextOrDiscard(r.Context())

		bytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, max))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Info("request body too large", "limit", max)
				server.WriteError(w, http.StatusRequestEntityTooLarge, "")
				return
			}
			log.Error(err, "cannot drain body")
			server.WriteError(w, http.StatusBadRequest, "cannot read request body")
			return
		}

		next.ServeHTTP(w, r.WithContext(server.ContextWithBody(
			r.Context(), bytes)))
	})
}

const RequestIdHeader = "X-Request-Id"

// LogWithIdentifier tags the request's logger and response with a short id.
func LogWithIdentifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := rand.String(5)
		w.Header().Set(RequestIdHeader, id)
		ctx := server.ContextWithId(r.Context(), id)
		log := logr.FromContextOrDiscard(ctx).WithName(id)
		ctx = logr.NewContext(ctx, log)

		log.Info("requested", "method", r.Method, "uri", r.RequestURI, "referer", r.Referer(), "agent", r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
