package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Route mounts an extra handler, such as a health report, next to /metrics.
type Route struct {
	Path    string
	Handler http.Handler
}

// StartServer serves /metrics and routes on port until the returned shutdown
// func is called.
func (m *Metrics) StartServer(port int, routes ...Route) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      m.mux(routes...),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

func (m *Metrics) mux(routes ...Route) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	links := `<p><a href="/metrics">/metrics</a></p>`
	for _, r := range routes {
		mux.Handle(r.Path, r.Handler)
		links += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, r.Path, r.Path)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>Ranked Retrieval Metrics</h1>%s</body></html>`, links)
	})
	return mux
}
