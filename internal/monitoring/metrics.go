package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation attempts by result",
		},
		[]string{"result"},
	)

	reservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservation_duration_seconds",
			Help:    "End-to-end reservation latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement outcomes by result",
		},
		[]string{"result"},
	)

	ordersReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_reaped_total",
			Help: "Expired pending orders cancelled by the reaper",
		},
	)

	mintJobsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mint_jobs_published_total",
			Help: "Mint job publishes by result",
		},
		[]string{"result"},
	)

	mintJobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mint_jobs_processed_total",
			Help: "Mint job deliveries handled by the worker, by result",
		},
		[]string{"result"},
	)
)

func ObserveReservation(result string, start time.Time) {
	reservationsTotal.WithLabelValues(result).Inc()
	reservationDuration.Observe(time.Since(start).Seconds())
}

func CountSettlement(result string) {
	settlementsTotal.WithLabelValues(result).Inc()
}

func CountReaped(n int) {
	ordersReapedTotal.Add(float64(n))
}

func CountMintPublish(result string) {
	mintJobsPublishedTotal.WithLabelValues(result).Inc()
}

func CountMintProcessed(result string) {
	mintJobsProcessedTotal.WithLabelValues(result).Inc()
}
