package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	eventBufferSize    = 1024
	maxEventsPerSecond = 10000
	flushInterval      = 100 * time.Millisecond
)

// EventType classifies an audit log entry.
type EventType string

const (
	EventCommand         EventType = "command"
	EventEntityCreated   EventType = "entity_created"
	EventEntityDestroyed EventType = "entity_destroyed"
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerLost      EventType = "player_lost"
	EventChat            EventType = "chat"
)

// Event is one audit log entry: what happened, on which turn, to whom.
type Event struct {
	Turn     uint32    `json:"turn"`
	Type     EventType `json:"type"`
	Entity   uint32    `json:"entity,omitempty"`
	PlayerNo uint8     `json:"player,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// EventLog is a bounded, rate-limited JSONL audit trail of simulation
// events — the raw material for replay debugging and desync forensics.
// Emit never blocks the tick: entries go into a channel and an async
// writer drains it; overflow is counted and dropped.
type EventLog struct {
	events chan Event

	globalLimiter *rate.Limiter

	file   *os.File
	fileMu sync.Mutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	totalCount   uint64 // atomic
	droppedCount uint64 // atomic
}

// NewEventLog creates an idle event log. Start attaches the output file
// and launches the writer.
func NewEventLog() *EventLog {
	return &EventLog{
		events:        make(chan Event, eventBufferSize),
		globalLimiter: rate.NewLimiter(maxEventsPerSecond, maxEventsPerSecond/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the JSONL file and begins draining events.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = f
	}
	el.running.Store(true)
	el.wg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes and shuts the writer down. Safe to call more than once
// and before Start.
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() { close(el.stopChan) })
	el.wg.Wait()
	el.running.Store(false)
	el.fileMu.Lock()
	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
	el.fileMu.Unlock()
}

// Emit records an event. Never blocks: without a running writer, or when
// the buffer or rate limit is exhausted, the event is counted as dropped.
func (el *EventLog) Emit(ev Event) {
	atomic.AddUint64(&el.totalCount, 1)
	if !el.running.Load() || !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return
	}
	select {
	case el.events <- ev:
	default:
		atomic.AddUint64(&el.droppedCount, 1)
	}
}

// Stats reports totals for monitoring.
func (el *EventLog) Stats() (total, dropped uint64) {
	return atomic.LoadUint64(&el.totalCount), atomic.LoadUint64(&el.droppedCount)
}

func (el *EventLog) writerLoop() {
	defer el.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []Event
	flush := func() {
		if len(batch) == 0 {
			return
		}
		el.fileMu.Lock()
		if el.file != nil {
			enc := json.NewEncoder(el.file)
			for _, ev := range batch {
				enc.Encode(ev)
			}
		}
		el.fileMu.Unlock()
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-el.events:
			batch = append(batch, ev)
			if len(batch) >= 64 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-el.stopChan:
			for {
				select {
				case ev := <-el.events:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		}
	}
}
