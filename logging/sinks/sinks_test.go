package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"heist/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "skills.player_jailed",
		Tick:     42,
		Time:     time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
		Actor:    logging.PlayerRef("thief-1", false),
		Targets:  []logging.EntityRef{logging.PlayerRef("cop-1", false), logging.PlayerRef("bot_cop_0", true)},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySkills,
		MatchID:  "m-1",
		Payload:  map[string]string{"skill": "arrest"},
	}
}

func TestConsoleLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		"[skills.player_jailed] tick=42 match=m-1 actor=player:thief-1 severity=info",
		"targets=player:cop-1,bot:bot_cop_0",
		`payload={"skill":"arrest"}`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONFlushesImmediatelyWithoutInterval(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if record["severity"] != "info" || record["matchId"] != "m-1" || record["time"] != "2024-05-01T18:00:00Z" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestJSONBuffersUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, time.Hour)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected output to stay buffered")
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("expected flushed line, got %q", buf.String())
	}
}

func TestMemoryOfTypeAndReset(t *testing.T) {
	sink := NewMemory()
	sink.Publish(context.Background(), sampleEvent())
	sink.Publish(context.Background(), logging.Event{Type: "other"})
	if got := len(sink.OfType("skills.player_jailed")); got != 1 {
		t.Fatalf("expected 1 jailed event, got %d", got)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
