package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lurk",
			Subsystem: "codec",
			Name:      "messages_decoded_total",
			Help:      "Messages decoded from the wire.",
		},
		[]string{"type"},
	)
	messagesEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lurk",
			Subsystem: "codec",
			Name:      "messages_encoded_total",
			Help:      "Messages encoded to the wire.",
		},
		[]string{"type"},
	)
	messageBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lurk",
			Subsystem: "codec",
			Name:      "message_bytes",
			Help:      "Encoded message size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		},
		[]string{"direction"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lurk",
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Decode failures by kind.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(messagesDecoded, messagesEncoded, messageBytes, decodeErrors)
	})
}

func RecordDecoded(msgType string, size int) {
	RegisterMetrics()
	messagesDecoded.WithLabelValues(msgType).Inc()
	messageBytes.WithLabelValues("in").Observe(float64(size))
}

func RecordEncoded(msgType string, size int) {
	RegisterMetrics()
	messagesEncoded.WithLabelValues(msgType).Inc()
	messageBytes.WithLabelValues("out").Observe(float64(size))
}

func RecordDecodeError(kind string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(kind).Inc()
}

// DecodedCount reads the decoded counter for msgType.
func DecodedCount(msgType string) float64 {
	return counterValue(messagesDecoded.WithLabelValues(msgType))
}

// EncodedCount reads the encoded counter for msgType.
func EncodedCount(msgType string) float64 {
	return counterValue(messagesEncoded.WithLabelValues(msgType))
}

// DecodeErrorCount reads the decode error counter for kind.
func DecodeErrorCount(kind string) float64 {
	return counterValue(decodeErrors.WithLabelValues(kind))
}
