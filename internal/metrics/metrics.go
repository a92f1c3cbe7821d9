// Package metrics defines the Prometheus collectors C7 updates as it runs
// a sync: counts, durations, and byte totals for upload/download traffic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the sync engine's collectors. The zero value is not
// usable; construct with New.
type Metrics struct {
	SyncsTotal      *prometheus.CounterVec
	SyncDuration    prometheus.Histogram
	FilesUploaded   prometheus.Counter
	FilesDownloaded prometheus.Counter
	BytesUploaded   prometheus.Counter
	BytesDownloaded prometheus.Counter
	ConflictsTotal  prometheus.Counter
}

// New builds a Metrics bundle and registers every collector against reg.
// reg may be nil, in which case collectors are created but never exposed
// to a scrape endpoint — useful for tests and for callers that don't run
// an HTTP metrics server.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "syncs_total",
			Help:      "Number of sync runs, by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coursesync",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a full sync run.",
			Buckets:   prometheus.DefBuckets,
		}),
		FilesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "files_uploaded_total",
			Help:      "Files pushed to the project server.",
		}),
		FilesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "files_downloaded_total",
			Help:      "Files pulled from the project server.",
		}),
		BytesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "bytes_uploaded_total",
			Help:      "Bytes of archive content pushed to the project server.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "bytes_downloaded_total",
			Help:      "Bytes of file content pulled from the project server.",
		}),
		ConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      "conflicts_total",
			Help:      "Paths found changed on both sides since the last baseline.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.SyncsTotal, m.SyncDuration, m.FilesUploaded, m.FilesDownloaded,
			m.BytesUploaded, m.BytesDownloaded, m.ConflictsTotal)
	}
	return m
}

// Outcome labels for SyncsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)
