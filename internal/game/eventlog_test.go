package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("start: %v", err)
	}

	el.Emit(Event{Turn: 1, Type: EventCommand, PlayerNo: 2, Detail: "move"})
	el.Emit(Event{Turn: 1, Type: EventEntityCreated, Entity: 42})
	el.Stop() // drains before closing

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("wrote %d events, want 2", len(events))
	}
	if events[0].Type != EventCommand || events[0].Detail != "move" {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[1].Entity != 42 {
		t.Errorf("event[1] = %+v", events[1])
	}
}

func TestEventLogEmitWithoutStartDrops(t *testing.T) {
	el := NewEventLog()
	el.Emit(Event{Turn: 1, Type: EventChat})
	total, dropped := el.Stats()
	if total != 1 || dropped != 1 {
		t.Errorf("stats = %d/%d, want 1 total 1 dropped", total, dropped)
	}
	el.Stop() // no-op before start
}

func TestEventLogStopIdempotent(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(""); err != nil {
		t.Fatal(err)
	}
	el.Stop()
	el.Stop()
}
