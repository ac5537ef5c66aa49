package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DecisionBlocked = "blocked"
	DecisionAllowed = "allowed"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_checks_total",
		Help: "URL checks by decision.",
	}, []string{"decision"})

	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_check_duration_seconds",
		Help:    "Latency of a single URL check.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_decision_cache_hits_total",
		Help: "Checks answered from the decision cache.",
	})

	PatternCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_patterns",
		Help: "Patterns currently registered in the matcher.",
	})

	DomainCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_domains",
		Help: "Domains currently indexed for anchor matching.",
	})

	BloomUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_bloom_usage_ratio",
		Help: "Fraction of bloom filter bits set.",
	})

	ListReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_list_reloads_total",
		Help: "Blocklist reload attempts by result.",
	}, []string{"result"})
)
