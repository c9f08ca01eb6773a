// Package metrics exports decoder counters in the Prometheus format.
//
// Counters are registered with the default registry on first use, so
// recording is always safe whether or not the /metrics endpoint is served.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/defmt-print/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "defmt",
			Subsystem: "decoder",
			Name:      "frames_total",
			Help:      "Frames decoded, by log level.",
		},
		[]string{"source", "level"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "defmt",
			Subsystem: "decoder",
			Name:      "errors_total",
			Help:      "Frames that could not be decoded, by reason.",
		},
		[]string{"source", "reason"},
	)
	bytesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "defmt",
			Subsystem: "stream",
			Name:      "received_bytes_total",
			Help:      "Bytes read from log sources.",
		},
		[]string{"source"},
	)
	activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "defmt",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Log streams currently being decoded.",
		},
	)
)

// Register registers the collectors with the default registry. It is
// idempotent.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesDecoded, decodeErrors, bytesReceived, activeStreams)
	})
}

// RecordFrame counts one decoded frame.
func RecordFrame(source, level string) {
	Register()
	if level == "" {
		level = "none"
	}
	framesDecoded.WithLabelValues(source, level).Inc()
}

// RecordDecodeError counts one frame that failed to decode.
func RecordDecodeError(source, reason string) {
	Register()
	decodeErrors.WithLabelValues(source, reason).Inc()
}

// RecordBytes counts bytes read from a source.
func RecordBytes(source string, n int) {
	Register()
	bytesReceived.WithLabelValues(source).Add(float64(n))
}

// StreamOpened marks a stream as live.
func StreamOpened() {
	Register()
	activeStreams.Inc()
}

// StreamClosed undoes StreamOpened.
func StreamClosed() {
	Register()
	activeStreams.Dec()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logging.Info("Serving metrics", zap.String("addr", addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
