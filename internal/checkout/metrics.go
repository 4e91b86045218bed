package checkout

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"MiniShop/internal/apperr"
)

const (
	resultOK    = "ok"
	resultEmpty = "empty"
	resultError = "error"
)

type Metrics struct {
	Checkouts *prometheus.CounterVec
	Latency   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_checkouts_total",
				Help: "Checkout attempts by result",
			},
			[]string{"result"},
		),
		Latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "shop_checkout_duration_seconds",
				Help: "Checkout latency including the cart lock wait",
			},
		),
	}

	reg.MustRegister(m.Checkouts, m.Latency)
	return m
}

// observe is a no-op on a nil receiver.
func (m *Metrics) observe(err error, d time.Duration) {
	if m == nil {
		return
	}

	result := resultOK
	switch {
	case errors.Is(err, apperr.ErrEmptyCart):
		result = resultEmpty
	case err != nil:
		result = resultError
	}

	m.Checkouts.WithLabelValues(result).Inc()
	m.Latency.Observe(d.Seconds())
}
