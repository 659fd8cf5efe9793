// Package metrics exposes Prometheus counters for the synchronizer. The stub
// server serves them on /metrics; the terminal client registers them on the
// default registry for debugging.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldcart_messages_appended_total",
		Help: "Messages appended to the conversation store from push events.",
	})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcart_cart_mutations_total",
		Help: "Optimistic cart mutations by outcome.",
	}, []string{"outcome"})

	RealtimeConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldcart_realtime_connects_total",
		Help: "Realtime connections established.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcart_http_requests_total",
		Help: "Stub server HTTP requests by method and status class.",
	}, []string{"method", "class"})
)
