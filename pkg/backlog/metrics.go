package backlog

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the Coordinator-resident backlog state into Prometheus
// gauges for the /metrics surface.
type Metrics struct {
	TopicOffset    *prometheus.GaugeVec
	ConsumerOffset *prometheus.GaugeVec
	ConsumerLag    *prometheus.GaugeVec
}

// NewMetrics registers the backlog gauges against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TopicOffset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingestd_topic_offset",
			Help: "Current high-watermark offset per topic/partition.",
		}, []string{"topic", "partition"}),
		ConsumerOffset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingestd_consumer_offset",
			Help: "Last committed consumer offset per topic/partition/group.",
		}, []string{"topic", "partition", "group"}),
		ConsumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingestd_consumer_lag",
			Help: "max(0, topicOffset - consumerOffset) per topic/partition/group.",
		}, []string{"topic", "partition", "group"}),
	}
	reg.MustRegister(m.TopicOffset, m.ConsumerOffset, m.ConsumerLag)
	return m
}
