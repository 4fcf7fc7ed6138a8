package match

import (
	"testing"

	"heist/server/logging"
)

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	for _, id := range []string{"a", "b", "c"} {
		if !buffer.Push(Command{Type: CommandCancel, PlayerID: id}) {
			t.Fatalf("expected push to succeed for %s", id)
		}
	}
	if buffer.Push(Command{PlayerID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != 3 || drained[0].PlayerID != "a" || drained[2].PlayerID != "c" {
		t.Fatalf("unexpected drain order: %+v", drained)
	}

	buffer.Push(Command{PlayerID: "d"})
	buffer.Push(Command{PlayerID: "e"})
	wrapped := buffer.Drain()
	if len(wrapped) != 2 || wrapped[0].PlayerID != "d" || wrapped[1].PlayerID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
	if buffer.Drain() != nil {
		t.Fatalf("expected empty drain to return nil")
	}
}

func TestCommandBufferMetrics(t *testing.T) {
	metrics := &logging.Metrics{}
	buffer := NewCommandBuffer(1, metrics)
	buffer.Push(Command{PlayerID: "one"})
	buffer.Push(Command{PlayerID: "two"})

	snap := metrics.Snapshot()
	if snap[metricCommandOccupancy] != 1 || snap[metricCommandOverflow] != 1 {
		t.Fatalf("unexpected metrics %v", snap)
	}
	buffer.Drain()
	if got := metrics.Snapshot()[metricCommandOccupancy]; got != 0 {
		t.Fatalf("expected occupancy reset, got %d", got)
	}
	if buffer.Len() != 0 || buffer.Capacity() != 1 {
		t.Fatalf("expected empty buffer of capacity 1")
	}
}
