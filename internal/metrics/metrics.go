// Package metrics exposes the process's Prometheus registry over HTTP.
//
// Collectors live next to the code they measure:
//   - atm_search_requests_total, atm_search_request_duration_seconds (search)
//   - atm_search_cache_total (search page cache)
//   - atm_fetch_pages_total, atm_fetch_triggers_dropped_total (locator)
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"atmfinder/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "atm_build_info",
	Help: "Build information, always 1",
}, []string{"version"})

// SetBuildInfo records the running version.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves /metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	logger := logging.NewLogger("metrics")
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics endpoint failed")
		return err
	}
	return nil
}
