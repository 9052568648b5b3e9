// Command relay runs the Relay repeater (spec §4.6): a nearly
// transparent WebSocket tunnel between the Telephony Bridge and the
// Voice Backend.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicecore/callcore/internal/config"
	"github.com/voicecore/callcore/internal/relay"
	"github.com/voicecore/callcore/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	slog.SetDefault(slog.New(telemetry.NewRedactingHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}),
	)))

	cfg := config.LoadRelay()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/session", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("client websocket upgrade failed", "error", err)
			return
		}
		session := relay.NewSession(conn, cfg.Relay, slog.Default())
		session.Run()
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv)

	slog.Info("relay starting", "addr", addr, "backendURL", cfg.Relay.BackendURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("relay server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("relay stopped")
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("relay shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
