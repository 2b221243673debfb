package billing

import (
	"log/slog"
	"net/http"
	"time"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

type statusWriter struct {
	Status int
	inner  http.ResponseWriter
}

func (sw *statusWriter) Header() http.Header {
	return sw.inner.Header()
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.Status = status
	sw.inner.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.Status == 0 {
		sw.Status = http.StatusOK
	}
	return sw.inner.Write(b)
}

// LogWith logs every request after it is served.
func LogWith(l *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{inner: w}
			t := time.Now()

			next.ServeHTTP(sw, r)
			l.Info("request received",
				"time", t,
				"method", r.Method,
				"url", r.URL.String(),
				"ip", r.RemoteAddr,
				"status", sw.Status,
				"agent", r.UserAgent())
		})
	}
}

// NewServer serves the webhook on addr with request logging.
func NewServer(addr string, webhook http.Handler, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("POST "+WebhookPath, webhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           LogWith(log)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
