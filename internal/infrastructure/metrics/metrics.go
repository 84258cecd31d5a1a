package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Lending metrics
	LoansBorrowed     prometheus.Counter
	LoansReturned     prometheus.Counter
	LendingDuration   *prometheus.HistogramVec
	LendingRejections *prometheus.CounterVec

	// Consistency metrics
	AvailabilityDrift   prometheus.Gauge
	AvailabilityRepairs prometheus.Counter

	// Catalog metrics
	BooksCreated   prometheus.Counter
	BooksDeleted   prometheus.Counter
	BookCacheReads *prometheus.CounterVec

	// User metrics
	UsersCreated prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBErrors *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Lending metrics
		LoansBorrowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_loans_borrowed_total",
			Help: "Total number of successful borrows",
		}),
		LoansReturned: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_loans_returned_total",
			Help: "Total number of successful returns",
		}),
		LendingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booklend_lending_duration_seconds",
				Help:    "Duration of borrow and return operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LendingRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_lending_rejections_total",
				Help: "Borrow and return requests rejected by reason",
			},
			[]string{"operation", "reason"},
		),

		// Consistency metrics
		AvailabilityDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "booklend_availability_drift_books",
			Help: "Books whose availability flag disagreed with the loan ledger at the last check",
		}),
		AvailabilityRepairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_availability_repairs_total",
			Help: "Availability flags rewritten from the loan ledger",
		}),

		// Catalog metrics
		BooksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_books_created_total",
			Help: "Total number of books added to the catalog",
		}),
		BooksDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_books_deleted_total",
			Help: "Total number of books removed from the catalog",
		}),
		BookCacheReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_book_cache_reads_total",
				Help: "Book summary cache lookups by result",
			},
			[]string{"result"},
		),

		// User metrics
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "booklend_users_created_total",
			Help: "Total number of registered users",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booklend_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"route"},
		),

		// Audit metrics
		AuditLogsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booklend_events_published_total",
				Help: "Outbox events handed to the publisher",
			},
			[]string{"event_type", "status"},
		),
	}
}
