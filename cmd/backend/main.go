// Command backend runs the Voice Backend (spec §4.7): the conversational
// core of the pipeline, owning ASR/TTS subprocess invocation and turn
// orchestration.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicecore/callcore/internal/backend"
	"github.com/voicecore/callcore/internal/config"
	"github.com/voicecore/callcore/internal/conversation"
	"github.com/voicecore/callcore/internal/health"
	"github.com/voicecore/callcore/internal/store"
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

	cfg := config.LoadBackend()

	snapshot := health.Check(cfg.Paths, cfg.Backend.InputSampleRate, cfg.Backend.OutputSampleRate)
	if !snapshot.Ready {
		slog.Warn("backend starting not-ready", "components", snapshot.Components)
	}
	cfg.Backend.Readiness = func() bool { return snapshot.Ready }

	sink := newTranscriptSink(cfg.PostgresURL)
	if closer, ok := sink.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/session", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("client websocket upgrade failed", "error", err)
			return
		}
		// Each call gets its own core so no turn state carries across calls.
		session := backend.NewSession(conn, cfg.Backend, newCore(), sink, slog.Default())
		session.Run()
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := health.Check(cfg.Paths, cfg.Backend.InputSampleRate, cfg.Backend.OutputSampleRate)
		status := http.StatusOK
		if !snap.Ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		encodeJSON(w, snap)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv)

	slog.Info("backend starting", "addr", addr, "ready", snapshot.Ready)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("backend server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("backend stopped")
}

// newCore picks the conversation core per §4.8: the deterministic
// ReferenceCore by default, or an LLMCore wired to whichever provider has
// credentials configured, matching the teacher's AgentLLM provider
// registration order (ollama, then openai, then anthropic).
func newCore() conversation.Core {
	if os.Getenv("LLM_PROVIDER") == "" && os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		return conversation.NewReferenceCore()
	}

	systemPrompt := envOr("LLM_SYSTEM_PROMPT", "You are a helpful phone assistant. Keep responses concise and conversational.")
	maxTokens := 512

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			provider = "openai"
		} else {
			provider = "anthropic"
		}
	}
	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		p := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt(envOr("OPENAI_URL", "https://api.openai.com") + "/v1/"),
			APIKey:       param.NewOpt(apiKey),
			UseResponses: param.NewOpt(true),
		})
		return conversation.NewLLMCore(p, envOr("OPENAI_MODEL", "gpt-4.1-nano"), systemPrompt, maxTokens)
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		p := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt(envOr("ANTHROPIC_URL", "https://api.anthropic.com") + "/v1/"),
			APIKey:       param.NewOpt(apiKey),
			UseResponses: param.NewOpt(false),
		})
		return conversation.NewLLMCore(p, envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"), systemPrompt, maxTokens)
	default:
		p := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt(envOr("OLLAMA_URL", "http://localhost:11434") + "/v1/"),
			APIKey:       param.NewOpt("ollama"),
			UseResponses: param.NewOpt(false),
		})
		return conversation.NewLLMCore(p, envOr("OLLAMA_MODEL", "llama3.2:3b"), systemPrompt, maxTokens)
	}
}

func newTranscriptSink(postgresURL string) backend.TranscriptSink {
	if postgresURL == "" {
		return nil
	}
	s, err := store.Open(postgresURL)
	if err != nil {
		slog.Error("transcript sink open failed, continuing without one", "error", err)
		return nil
	}
	slog.Info("transcript sink enabled", "postgres", postgresURL)
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func encodeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("backend shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
