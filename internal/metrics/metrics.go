// Package metrics exposes live-session counters and gauges over /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candles_ingested_total", Help: "Closed candles consumed from the stream"},
		[]string{"symbol"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Trades closed by the session agents"},
		[]string{"symbol", "side"},
	)
	TradeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trade_results_total", Help: "Closed trades split by win/loss"},
		[]string{"symbol", "result"},
	)
	AgentEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "agent_equity", Help: "Current marked equity per agent"},
		[]string{"symbol"},
	)
	StreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stream_reconnects_total", Help: "Websocket stream reconnect attempts"},
	)
)

func init() {
	prometheus.MustRegister(CandlesTotal, TradesTotal, TradeResults, AgentEquity, StreamReconnects)
}

// Serve starts the metrics endpoint in the background and returns the server
// so callers can Close it on shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
