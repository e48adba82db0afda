package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "tourbook"

// Label values shared by the counters below.
const (
	ResultAcquired  = "acquired"
	ResultBusy      = "busy"
	ResultError     = "error"
	ResultReleased  = "released"
	ResultNotOwner  = "not_owner"
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultDuplicate = "duplicate"
	ResultDelivered = "delivered"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	LockAcquisitions   *prometheus.CounterVec
	LockReleases       *prometheus.CounterVec
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations prometheus.Counter
	BookingsCreated    prometheus.Counter
	BookingsRejected   *prometheus.CounterVec
	JobsEnqueued       *prometheus.CounterVec
	OutboxRelayed      *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	PublishDuration    prometheus.Histogram
	ConsumeDuration    prometheus.Histogram
}

// New registers the service metrics on reg. Each service passes its own
// registry so tests can build as many instances as they like.
func New(subsystem string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LockAcquisitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "lock_acquisitions_total",
			Help:      "Lock acquisition attempts by outcome",
		}, []string{"result"}),
		LockReleases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "lock_releases_total",
			Help:      "Lock releases by outcome",
		}, []string{"result"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "catalog_cache_requests_total",
			Help:      "Catalog cache lookups by outcome",
		}, []string{"result"}),
		CacheInvalidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "catalog_cache_invalidations_total",
			Help:      "Catalog cache keys removed after writes",
		}),
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "bookings_created_total",
			Help:      "Bookings persisted",
		}),
		BookingsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "bookings_rejected_total",
			Help:      "Booking requests rejected by reason",
		}, []string{"reason"}),
		JobsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "jobs_enqueued_total",
			Help:      "Notification jobs handed to the queue by outcome",
		}, []string{"result"}),
		OutboxRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "outbox_relayed_total",
			Help:      "Outbox entries republished by outcome",
		}, []string{"result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "notifications_processed_total",
			Help:      "Notification jobs consumed by outcome",
		}, []string{"result"}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Time taken to publish a message",
			Buckets:   prometheus.DefBuckets,
		}),
		ConsumeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "kafka_consume_duration_seconds",
			Help:      "Time taken to handle a consumed message",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// NewNop returns metrics bound to a throwaway registry.
func NewNop() *Metrics {
	return New("nop", prometheus.NewRegistry())
}
