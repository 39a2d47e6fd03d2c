package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wikihost/engine/eventbus"
)

func TestAttachCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	bus := eventbus.New()
	r.Attach(bus)

	bus.Emit(context.Background(), eventbus.EventRequestHandle, "GET", 200, time.Now())
	bus.Emit(context.Background(), eventbus.EventRequestHandle, "GET", 404, time.Now())

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "wikihost_requests_total" {
			found = true
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total != 2 {
				t.Fatalf("expected 2 total requests recorded, got %v", total)
			}
		}
	}
	if !found {
		t.Fatal("expected wikihost_requests_total metric family")
	}
}

func TestSSEGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.SSEOpened()
	r.SSEOpened()
	r.SSEClosed()

	var m dto.Metric
	if err := r.sseActive.Write(&m); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m.GetGauge().GetValue() != 1 {
		t.Fatalf("expected gauge value 1, got %v", m.GetGauge().GetValue())
	}
}

func TestAttachWiresSSEGaugeToBusEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	bus := eventbus.New()
	r.Attach(bus)

	bus.Emit(context.Background(), eventbus.EventSSEOpened, nil)
	bus.Emit(context.Background(), eventbus.EventSSEOpened, nil)
	bus.Emit(context.Background(), eventbus.EventSSEClosed, nil)

	var m dto.Metric
	if err := r.sseActive.Write(&m); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m.GetGauge().GetValue() != 1 {
		t.Fatalf("expected gauge value 1 after 2 opens and 1 close, got %v", m.GetGauge().GetValue())
	}
}
