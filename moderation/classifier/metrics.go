package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerRequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_classifier_requests",
	Help: "Number of classifier provider calls, by provider and outcome",
}, []string{"provider", "outcome"})

var providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "vigil_classifier_request_duration_sec",
	Help: "Duration of classifier provider calls",
}, []string{"provider"})

var gatewaySkipCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_classifier_skips",
	Help: "Number of evaluations that never reached a provider, by cause",
}, []string{"cause"})

var gatewayFailOpenCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_classifier_fail_open",
	Help: "Number of evaluations where every provider failed and the gateway reported safe",
})
