package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/opsdesk/fncall/internal/models"
	"github.com/rs/zerolog/log"
)

// headerTracker records whether the handler already started its response.
type headerTracker struct {
	http.ResponseWriter
	started bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

// Recovery turns a handler panic into a 500 error envelope. When the handler
// had already started writing, the connection is left to the server and only
// the panic is logged. http.ErrAbortHandler passes through untouched.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &headerTracker{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", GetRequestID(r.Context())).
				Bool("response_started", tw.started).
				Msg("panic recovered")
			if tw.started {
				return
			}
			w.Header().Set("Connection", "close")
			models.WriteError(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(tw, r)
	})
}
