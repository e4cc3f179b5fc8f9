package provider

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// pageRequests is a Counter vector of provider listing page requests
var pageRequests *prometheus.CounterVec

// EnableMetrics will enable metrics collection for provider listings.
// Available metrics are...
//   - provider_page_requests_total - (tags: provider,success)
//     A Counter incremented for each listing page request.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	pageRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "provider_page_requests_total",
		Help:      "Count of provider listing page requests",
	},
		[]string{
			"provider",
			// Whether the page was fetched and decoded
			"success",
		},
	)

	registerer.MustRegister(pageRequests)
}

func recordPageRequest(provider string, success bool) {
	if pageRequests == nil {
		return
	}
	pageRequests.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
}
