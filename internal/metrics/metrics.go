// Package metrics exposes the Prometheus counters and histograms shared
// across the bridge/relay/backend topology, relabeled from the
// teacher's single-process pipeline metrics to this module's three-hop
// call path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "callcore_calls_active",
		Help: "Currently active call sessions",
	}, []string{"component"})

	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callcore_calls_total",
		Help: "Total call sessions started",
	}, []string{"component"})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callcore_turns_total",
		Help: "Total turns completed by the voice backend",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callcore_stage_duration_seconds",
		Help:    "Per-turn-stage latency (asr, llm, tts)",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	TimeToFirstAudio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callcore_time_to_first_audio_seconds",
		Help:    "Latency from TTS start to the first audio_delta frame",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callcore_errors_total",
		Help: "Error counts by component and kind (protocol/downstream/subprocess/resource/config/overflow)",
	}, []string{"component", "kind"})

	AudioChunksIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callcore_audio_chunks_in_total",
		Help: "Inbound audio chunks processed",
	}, []string{"component"})

	AudioDeltasOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callcore_audio_deltas_out_total",
		Help: "Outbound audio_delta frames sent by the voice backend",
	})

	SpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callcore_vad_speech_segments_total",
		Help: "Speech segments detected by the bridge's VAD",
	})

	BargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callcore_barge_ins_total",
		Help: "Barge-in events that interrupted outbound playback",
	})

	QueueOverflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callcore_queue_overflows_total",
		Help: "Dropped entries from a bounded pre-ready queue or PCM buffer",
	}, []string{"component", "queue"})
)
