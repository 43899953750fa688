package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	// eventsPublished counts events accepted into the queue, per room.
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupay_events_published_total",
			Help: "Notification events accepted for delivery.",
		},
		[]string{"event"},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edupay_events_dropped_total",
			Help: "Notification events dropped because a queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsDropped)
}
