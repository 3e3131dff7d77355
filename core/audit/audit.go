// Package audit keeps a hash-chained trail of ledger operations. Each entry
// hashes its predecessor, so truncation or in-place edits of the trail are
// detectable after the fact.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one audit trail entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"eventType"` // "append", "list", "provision"
	EntityID  string    `json:"entityId"`  // writer address or requester
	PatientID string    `json:"patientId,omitempty"`
	Result    string    `json:"result"` // "success" or "failure"
	Reason    string    `json:"reason,omitempty"`
	PrevHash  string    `json:"prevHash"`
	EntryHash string    `json:"entryHash"`
}

// Logger receives audit events as they are recorded.
type Logger interface {
	LogEvent(event Event)
}

// Trail is an append-only, hash-chained event list.
type Trail struct {
	mu      sync.Mutex
	entries []Event
	logger  Logger
}

// NewTrail returns a Trail that forwards each recorded event to logger.
// A nil logger records silently.
func NewTrail(logger Logger) *Trail {
	return &Trail{logger: logger}
}

// Record appends an event to the trail, chaining it to the previous entry.
func (t *Trail) Record(eventType, entityID, patientID, result, reason string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := ""
	if n := len(t.entries); n > 0 {
		prev = t.entries[n-1].EntryHash
	}
	evt := Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		EntityID:  entityID,
		PatientID: patientID,
		Result:    result,
		Reason:    reason,
		PrevHash:  prev,
	}
	evt.EntryHash = hashEvent(evt)
	t.entries = append(t.entries, evt)

	if t.logger != nil {
		t.logger.LogEvent(evt)
	}
	return evt
}

// Events returns a copy of the trail.
func (t *Trail) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.entries))
	copy(out, t.entries)
	return out
}

// Verify walks the chain and reports whether every entry still hashes to its
// recorded EntryHash and links to its predecessor.
func (t *Trail) Verify() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := ""
	for _, evt := range t.entries {
		if evt.PrevHash != prev {
			return false
		}
		if hashEvent(evt) != evt.EntryHash {
			return false
		}
		prev = evt.EntryHash
	}
	return true
}

// hashEvent digests every field except EntryHash itself.
func hashEvent(evt Event) string {
	h := sha256.New()
	h.Write([]byte(evt.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(evt.EventType))
	h.Write([]byte(evt.EntityID))
	h.Write([]byte(evt.PatientID))
	h.Write([]byte(evt.Result))
	h.Write([]byte(evt.Reason))
	h.Write([]byte(evt.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// ZerologLogger writes audit events through a structured logger.
type ZerologLogger struct {
	Log zerolog.Logger
}

func (l *ZerologLogger) LogEvent(evt Event) {
	l.Log.Info().
		Str("eventType", evt.EventType).
		Str("entityId", evt.EntityID).
		Str("patientId", evt.PatientID).
		Str("result", evt.Result).
		Str("reason", evt.Reason).
		Str("entryHash", evt.EntryHash).
		Msg("audit")
}

// NewZerologLogger returns a Logger backed by log.
func NewZerologLogger(log zerolog.Logger) Logger {
	return &ZerologLogger{Log: log}
}
