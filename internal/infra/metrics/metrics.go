package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WalletTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polarise_wallet_turns_total", Help: "Wallet turns by final stage and status"},
		[]string{"stage", "status"},
	)
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polarise_swaps_total", Help: "Swap attempts by result"},
		[]string{"result"},
	)
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polarise_http_requests_total", Help: "Polarise API calls by endpoint and transport status"},
		[]string{"endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polarise_http_request_duration_seconds",
			Help:    "Polarise API call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	WalletPoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "polarise_wallet_points", Help: "Last reported exchange points per wallet"},
		[]string{"address"},
	)
	SweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "polarise_sweeps_total", Help: "Completed sweeps over the accounts file"},
	)
)

func init() {
	prometheus.MustRegister(WalletTurnsTotal, SwapsTotal, RequestsTotal, RequestDuration, WalletPoints, SweepsTotal)
}

// ServeErrors receives listener failures from Serve.
var ServeErrors = make(chan error, 1)

// Serve exposes /metrics on addr in the background. The returned server is shut down by Shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case ServeErrors <- err:
			default:
			}
		}
	}()
	return srv
}

// Shutdown stops a server started by Serve.
func Shutdown(srv *http.Server) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
