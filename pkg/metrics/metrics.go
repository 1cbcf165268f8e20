package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 事件存储计数
	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_stored_total",
			Help: "Total number of events appended to the event store",
		},
		[]string{"kind"}, // kind: notification, announcement
	)

	// 推送投递失败计数
	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "Total number of failed best-effort deliveries to subscribers",
		},
		[]string{"reason"}, // reason: closed, queue_full, transport
	)

	// 已投递推送计数
	DeliveredPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivered_pushes_total",
			Help: "Total number of payloads handed to subscriber connections",
		},
		[]string{"kind"},
	)

	// 当前连接数
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connected_clients",
			Help: "Number of currently open subscriber connections",
		},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)
)

// RecordEventStored 记录事件写入
func RecordEventStored(kind string) {
	EventsStored.WithLabelValues(kind).Inc()
}

// RecordDeliveryFailure 记录投递失败
func RecordDeliveryFailure(reason string) {
	DeliveryFailures.WithLabelValues(reason).Inc()
}

// RecordDeliveredPush 记录成功投递
func RecordDeliveredPush(kind string) {
	DeliveredPushes.WithLabelValues(kind).Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
