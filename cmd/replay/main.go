// Command replay runs the golden replay harness (spec §4.10): it drives
// a fixed WAV recording through a relay/backend deployment and writes
// the resulting RunReport to disk, exiting non-zero if the turn never
// completes.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/voicecore/callcore/internal/config"
	"github.com/voicecore/callcore/internal/replay"
	"github.com/voicecore/callcore/internal/telemetry"
)

func main() {
	cfg := config.LoadReplay()

	var (
		relayURL     = flag.String("relay", cfg.RelayURL, "relay WebSocket URL")
		wavPath      = flag.String("wav", "", "path to a 16 kHz mono PCM16 WAV file")
		callSid      = flag.String("call-sid", "CA-replay", "call id to report in the start event")
		sendCommit   = flag.Bool("commit", false, "send a commit event after streaming the WAV")
		instructions = flag.String("instructions", "", "instructions carried on the commit event")
		reference    = flag.String("reference", "", "reference transcript to score the run's ASR output against (WER)")
		timeout      = flag.Duration("timeout", cfg.Timeout, "time to wait for response_completed")
		outPath      = flag.String("out", "", "path to write the JSON run report (default: stdout)")
	)
	flag.Parse()

	if *wavPath == "" {
		fmt.Fprintln(os.Stderr, "replay: -wav is required")
		os.Exit(2)
	}

	slog.SetDefault(slog.New(telemetry.NewRedactingHandler(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel()}),
	)))

	wavData, err := os.ReadFile(*wavPath)
	if err != nil {
		slog.Error("reading wav file failed", "path", *wavPath, "error", err)
		os.Exit(1)
	}

	report, runErr := replay.Run(replay.Config{
		RelayURL:            *relayURL,
		CallSid:             *callSid,
		SendCommit:          *sendCommit,
		Instructions:        *instructions,
		Timeout:             *timeout,
		Logger:              slog.Default(),
		ReferenceTranscript: *reference,
	}, wavData)

	if report != nil {
		data, encodeErr := replay.WriteReport(report)
		if encodeErr != nil {
			slog.Error("encoding run report failed", "error", encodeErr)
			os.Exit(1)
		}
		if *outPath == "" {
			os.Stdout.Write(data)
			os.Stdout.Write([]byte("\n"))
		} else if writeErr := os.WriteFile(*outPath, data, 0o644); writeErr != nil {
			slog.Error("writing run report failed", "path", *outPath, "error", writeErr)
			os.Exit(1)
		}
	}

	if runErr != nil {
		slog.Error("replay run failed", "error", runErr)
		os.Exit(1)
	}
}
