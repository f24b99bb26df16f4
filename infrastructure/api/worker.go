package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// HTTPWorker serves the API under supervision. Requests, websocket sessions
// included, inherit the worker context.
type HTTPWorker struct {
	log     *slog.Logger
	addr    string
	handler http.Handler
}

func NewHTTPWorker(log *slog.Logger, addr string, handler http.Handler) *HTTPWorker {
	return &HTTPWorker{log: log, addr: addr, handler: handler}
}

func (w *HTTPWorker) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              w.addr,
		Handler:           w.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		w.log.Info(fmt.Sprintf("HTTP server listening on %s", w.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			w.log.Warn("HTTP shutdown", "error", err)
		}
		return nil
	}
}
