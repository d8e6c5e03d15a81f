package sync

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_fetches_total",
		Help: "Read-model fetches by resource and outcome.",
	}, []string{"resource", "outcome"})

	refreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_refreshes_total",
		Help: "Refresh rounds by trigger source.",
	}, []string{"trigger"})

	streamEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_stream_events_total",
		Help: "Consent lifecycle events received on the event stream.",
	}, []string{"action"})

	debounceCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentd_debounce_coalesced_total",
		Help: "Trigger events absorbed by an already-pending debounce timer.",
	})

	actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_actions_total",
		Help: "User-initiated consent actions by type and outcome.",
	}, []string{"action", "outcome"})
)

func init() {
	prometheus.MustRegister(fetchesTotal, refreshesTotal, streamEventsTotal, debounceCoalesced, actionsTotal)
}
