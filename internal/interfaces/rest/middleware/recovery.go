package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/interfaces/rest"
)

// headerGuard remembers whether the handler already started its response.
type headerGuard struct {
	http.ResponseWriter
	written bool
}

func (g *headerGuard) WriteHeader(status int) {
	g.written = true
	g.ResponseWriter.WriteHeader(status)
}

func (g *headerGuard) Write(b []byte) (int, error) {
	g.written = true
	return g.ResponseWriter.Write(b)
}

// Recovery turns a handler panic into an INTERNAL_ERROR envelope. It must wrap
// the mux directly so route values are visible once the handler has run. A
// panic after the response has started is only logged.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guard := &headerGuard{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"route", r.Pattern,
					"stack", string(debug.Stack()),
				}
				if id := r.PathValue("chargeId"); id != "" {
					attrs = append(attrs, "charge_external_id", id)
				}
				if name := r.PathValue("gateway"); name != "" {
					attrs = append(attrs, "gateway", name)
				}
				if id := r.Header.Get("X-Request-Id"); id != "" {
					attrs = append(attrs, "request_id", id)
				}
				logger.Error("panic recovered", attrs...)

				if guard.written {
					return
				}
				rest.WriteError(guard, application.NewInternalError(fmt.Errorf("panic: %v", rec)), logger)
			}()

			next.ServeHTTP(guard, r)
		})
	}
}
