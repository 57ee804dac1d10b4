package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.WithLabelValues(labels...).Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestConversationMetricsObserve(t *testing.T) {
	m := NewConversationMetrics(prometheus.NewRegistry())
	m.ObserveTurn("greeting", "ok")
	m.ObserveTurn("greeting", "ok")
	m.ObserveTurn("generated", "error")
	m.ObserveGeneration("groq", "ok", 0.4)
	m.ObserveAppointment("created")

	if got := counterValue(t, m.turnsTotal, "greeting", "ok"); got != 2 {
		t.Fatalf("greeting turns = %v, want 2", got)
	}
	if got := counterValue(t, m.turnsTotal, "generated", "error"); got != 1 {
		t.Fatalf("failed turns = %v, want 1", got)
	}
	if got := counterValue(t, m.appointmentsTotal, "created"); got != 1 {
		t.Fatalf("appointments = %v, want 1", got)
	}
}

func TestMessagingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMessagingMetrics(reg)
	m.ObserveInbound("twilio", "ok")
	m.ObserveOutbound("twilio", "sent")
	m.ObserveWebhookLatency("twilio", 0.5)

	if got := counterValue(t, m.outboundTotal, "twilio", "sent"); got != 1 {
		t.Fatalf("outbound = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var c *ConversationMetrics
	c.ObserveTurn("greeting", "ok")
	c.ObserveGeneration("groq", "ok", 0.1)
	c.ObserveAppointment("created")

	var m *MessagingMetrics
	m.ObserveInbound("twilio", "ok")
	m.ObserveOutbound("twilio", "sent")
	m.ObserveWebhookLatency("twilio", 0.1)
}
