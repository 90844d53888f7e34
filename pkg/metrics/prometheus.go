package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	candlesIngested  *prometheus.CounterVec
	signalsEmitted   *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	riskRejections   *prometheus.CounterVec
	persistErrors    *prometheus.CounterVec
	tickLatency      *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patterntrade_candles_ingested_total",
				Help: "Candles consumed per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patterntrade_signals_emitted_total",
				Help: "Trade signals emitted per symbol and algo",
			},
			[]string{"symbol", "algo"},
		),
		orderTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patterntrade_order_transitions_total",
				Help: "Order phase transitions",
			},
			[]string{"phase"},
		),
		riskRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patterntrade_risk_rejections_total",
				Help: "Orders rejected by the risk gate, by reason",
			},
			[]string{"reason"},
		),
		persistErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patterntrade_persist_errors_total",
				Help: "Cache or store write failures, by tier",
			},
			[]string{"tier"},
		),
		tickLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patterntrade_tick_duration_seconds",
				Help:    "Full pipeline duration for one candle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
	}
}

func (r *Recorder) RecordCandle(symbol, timeframe string) {
	r.candlesIngested.WithLabelValues(symbol, timeframe).Inc()
}

func (r *Recorder) RecordSignal(symbol, algo string) {
	r.signalsEmitted.WithLabelValues(symbol, algo).Inc()
}

func (r *Recorder) RecordOrderTransition(phase string) {
	r.orderTransitions.WithLabelValues(phase).Inc()
}

func (r *Recorder) RecordRiskRejection(reason string) {
	r.riskRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordPersistError(tier string) {
	r.persistErrors.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordTickLatency(timeframe string, seconds float64) {
	r.tickLatency.WithLabelValues(timeframe).Observe(seconds)
}
