package airtable

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtable_requests_total",
			Help: "Total number of requests sent to the table backend",
		},
		[]string{"table", "op", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airtable_request_duration_seconds",
			Help:    "Table backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "op"},
	)

	recordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtable_records_dropped_total",
			Help: "Records discarded before decoding (empty fields or undecodable)",
		},
		[]string{"table", "reason"},
	)
)
