package matching

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_likes_total",
			Help: "Total number of like actions recorded",
		},
		[]string{"kind"},
	)

	matchesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_created_total",
			Help: "Total number of matches created",
		},
	)

	matchesRetiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_matches_retired_total",
			Help: "Total number of matches retired, by resulting status",
		},
		[]string{"status"},
	)

	blocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_blocks_total",
			Help: "Total number of block actions",
		},
	)

	reportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_reports_total",
			Help: "Total number of report actions",
		},
	)

	rankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranking_duration_seconds",
			Help:    "Time spent computing a full candidate ranking",
			Buckets: prometheus.DefBuckets,
		},
	)

	rankedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranked_candidates",
			Help:    "Number of candidates scored per ranking pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	eventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_events_dropped_total",
			Help: "Match events dropped because no consumer kept up",
		},
	)
)

func RecordLike(kind LikeKind) {
	likesTotal.WithLabelValues(string(kind)).Inc()
}

func RecordMatchCreated() {
	matchesCreatedTotal.Inc()
}

func RecordMatchRetired(status MatchStatus) {
	matchesRetiredTotal.WithLabelValues(string(status)).Inc()
}

func RecordBlock() {
	blocksTotal.Inc()
}

func RecordReport() {
	reportsTotal.Inc()
}

func RecordRanking(duration time.Duration, candidates int) {
	rankingDuration.Observe(duration.Seconds())
	rankedCandidates.Observe(float64(candidates))
}

func RecordEventDropped() {
	eventsDroppedTotal.Inc()
}
