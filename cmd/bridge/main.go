// Command bridge runs the Telephony Bridge (spec §4.5): terminates the
// carrier media WebSocket, resamples/denoises/VADs inbound audio, and
// tunnels it to the Relay.
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

	"github.com/voicecore/callcore/internal/bridge"
	"github.com/voicecore/callcore/internal/config"
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

	cfg := config.LoadBridge()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /voice", bridge.VoiceWebhookHandler("wss://"+hostFromEnv()+"/v1/media"))
	mux.HandleFunc("/v1/media", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("carrier websocket upgrade failed", "error", err)
			return
		}
		session := bridge.NewSession(conn, cfg.Bridge, slog.Default())
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

	slog.Info("bridge starting", "addr", addr, "downstreamURL", cfg.Bridge.DownstreamURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("bridge server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("bridge stopped")
}

func hostFromEnv() string {
	if h := os.Getenv("BRIDGE_PUBLIC_HOST"); h != "" {
		return h
	}
	return "localhost:8081"
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("bridge shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
