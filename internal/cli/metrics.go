package cli

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kroma-labs/swarms-go/engine"
)

// metricsHandler exposes the engine collector and the Go runtime metrics.
func metricsHandler(e *engine.Engine) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(engine.NewCollector(e)); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r, nil
}

func (a *App) serveMetrics() error {
	h, err := metricsHandler(a.client.Engine())
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.listener = ln
	a.metrics = srv
	a.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return nil
}
