package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wastelive/internal/mint"
)

// Metrics implements mint.Observer on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	mintsTotal    *prometheus.CounterVec
	refusalsTotal *prometheus.CounterVec
	priceReads    *prometheus.CounterVec
	inFlight      prometheus.Gauge
	replaysTotal  prometheus.Counter
}

func NewMetrics() *Metrics {
	mints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wastelive_mints_total",
		Help: "Finished mint requests by outcome",
	}, []string{"item", "outcome"})

	refusals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wastelive_mint_refusals_total",
		Help: "Mint triggers refused before a signature was requested",
	}, []string{"item", "reason"})

	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wastelive_price_reads_total",
		Help: "On-chain price reads by result",
	}, []string{"item", "result"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wastelive_mints_in_flight",
		Help: "Mint requests awaiting signature or confirmation",
	})

	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wastelive_idempotent_replays_total",
		Help: "Mint triggers answered from the idempotency store",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(mints, refusals, reads, inFlight, replays)

	return &Metrics{
		registry:      r,
		mintsTotal:    mints,
		refusalsTotal: refusals,
		priceReads:    reads,
		inFlight:      inFlight,
		replaysTotal:  replays,
	}
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PriceRead(itemID uint64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.priceReads.WithLabelValues(itemLabel(itemID), result).Inc()
}

func (m *Metrics) MintStarted(uint64) {
	m.inFlight.Inc()
}

func (m *Metrics) MintFinished(itemID uint64, outcome mint.State) {
	m.inFlight.Dec()
	m.mintsTotal.WithLabelValues(itemLabel(itemID), outcome.String()).Inc()
}

func (m *Metrics) MintRefused(itemID uint64, reason error) {
	m.refusalsTotal.WithLabelValues(itemLabel(itemID), refusalReason(reason)).Inc()
}

func (m *Metrics) incReplay() {
	m.replaysTotal.Inc()
}

func itemLabel(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, mint.ErrMintInFlight):
		return "in_flight"
	case errors.Is(err, mint.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, mint.ErrWrongNetwork):
		return "wrong_network"
	case errors.Is(err, mint.ErrPriceUnavailable):
		return "price_unavailable"
	}
	return "other"
}
