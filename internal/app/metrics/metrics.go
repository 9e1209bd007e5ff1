package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_model_invocations_total",
		Help: "Chat-completion calls issued to the model provider.",
	})

	ModelRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_model_retries_total",
		Help: "Invocations retried after structural or hallucination failures.",
	})

	HallucinationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_hallucinations_detected_total",
		Help: "Product candidates that failed catalog validation.",
	})

	HallucinationsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_hallucinations_filtered_total",
		Help: "Invalid product candidates dropped under the FILTER policy.",
	})

	StreamEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_stream_events_total",
		Help: "Events emitted on streaming response channels.",
	})

	IndexRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_index_rebuilds_total",
		Help: "On-demand embedding index rebuilds triggered by empty search results.",
	})
)
