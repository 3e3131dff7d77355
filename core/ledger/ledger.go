// Package ledger implements the append-only medical-record index: a
// per-patient list of (content key, writer, timestamp) entries. Entries are
// never mutated or deleted; a correction is a new entry. The list for a
// patient is exactly its append history.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medledger/core/audit"
	"medledger/core/storage"
	"medledger/types/ids"
)

// Entry is one immutable ledger record. Timestamps are ledger-assigned unix
// seconds, non-decreasing within a patient's list by append order only;
// concurrent writers may produce ties.
type Entry struct {
	ContentKey string `json:"contentKey"`
	PatientID  string `json:"patientId"`
	Writer     string `json:"writer"`
	Timestamp  int64  `json:"timestamp"`
}

const (
	recordPrefix   = "records:"
	contractPrefix = "meta:contract:"
	appendsKey     = "meta:appends"
	patientsKey    = "meta:patients"
	lastAppendKey  = "meta:lastAppend"
)

// Stats summarizes ledger activity for the node's health surface.
type Stats struct {
	Appends    int       `json:"appends"`
	Patients   int       `json:"patients"`
	LastAppend time.Time `json:"lastAppend"`
}

// Ledger is the contract state machine over a storage backend. It enforces
// no access control: who may append or read for which patient is the concern
// of the layer supplying patient IDs and writer addresses.
type Ledger struct {
	mu    sync.Mutex
	store storage.Backend
	trail *audit.Trail
	clock func() time.Time
	log   zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithAuditTrail wires appends into a hash-chained audit trail.
func WithAuditTrail(trail *audit.Trail) Option {
	return func(l *Ledger) { l.trail = trail }
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func New(store storage.Backend, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		clock: time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds {contentKey, patientID, writer, now} to the patient's list and
// returns the stored entry plus a receipt ID. It never fails for business
// reasons; any error is a storage failure.
func (l *Ledger) Append(patientID, contentKey, writer string) (Entry, ids.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(patientID)
	if err != nil {
		l.recordAudit("append", writer, patientID, "failure", err.Error())
		return Entry{}, ids.Empty, err
	}

	ts := l.clock().UTC().Unix()
	// Ledger-assigned time is non-decreasing within a patient's list even if
	// the wall clock steps backwards between appends.
	if n := len(entries); n > 0 && entries[n-1].Timestamp > ts {
		ts = entries[n-1].Timestamp
	}

	entry := Entry{
		ContentKey: contentKey,
		PatientID:  patientID,
		Writer:     writer,
		Timestamp:  ts,
	}
	entries = append(entries, entry)

	if err := l.save(patientID, entries); err != nil {
		l.recordAudit("append", writer, patientID, "failure", err.Error())
		return Entry{}, ids.Empty, err
	}
	l.bumpCounters(len(entries) == 1)

	txID := ids.NewID([]byte(fmt.Sprintf("%s|%s|%s|%d", patientID, contentKey, writer, ts)))
	l.recordAudit("append", writer, patientID, "success", "entry appended")
	l.log.Debug().
		Str("patientId", patientID).
		Str("contentKey", contentKey).
		Str("txId", txID.String()).
		Msg("ledger append")
	return entry, txID, nil
}

// List returns the patient's full append history in storage order. An unknown
// patient and a patient with zero entries are indistinguishable: both yield
// an empty list, never an error.
func (l *Ledger) List(patientID string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(patientID)
}

// Provision marks a contract as deployed at address. Idempotent.
func (l *Ledger) Provision(address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := contractPrefix + address
	if ok, err := l.store.Has(key); err != nil {
		return err
	} else if ok {
		return nil
	}
	if err := l.store.Put(key, []byte(l.clock().UTC().Format(time.RFC3339))); err != nil {
		return err
	}
	l.recordAudit("provision", "", "", "success", "contract provisioned at "+address)
	return nil
}

// IsProvisioned reports whether a contract exists at address.
func (l *Ledger) IsProvisioned(address string) (bool, error) {
	return l.store.Has(contractPrefix + address)
}

// Stats reads the persisted activity counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		Appends:  l.readCounter(appendsKey),
		Patients: l.readCounter(patientsKey),
	}
	if raw, err := l.store.Get(lastAppendKey); err == nil {
		if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
			stats.LastAppend = t
		}
	}
	return stats
}

func (l *Ledger) load(patientID string) ([]Entry, error) {
	raw, err := l.store.Get(recordPrefix + patientID)
	if err == storage.ErrNotFound {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("corrupt entry list for patient %s: %w", patientID, err)
	}
	return entries, nil
}

func (l *Ledger) save(patientID string, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return l.store.Put(recordPrefix+patientID, raw)
}

func (l *Ledger) bumpCounters(newPatient bool) {
	l.writeCounter(appendsKey, l.readCounter(appendsKey)+1)
	if newPatient {
		l.writeCounter(patientsKey, l.readCounter(patientsKey)+1)
	}
	_ = l.store.Put(lastAppendKey, []byte(l.clock().UTC().Format(time.RFC3339)))
}

func (l *Ledger) readCounter(key string) int {
	raw, err := l.store.Get(key)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(string(raw))
	return n
}

func (l *Ledger) writeCounter(key string, n int) {
	_ = l.store.Put(key, []byte(strconv.Itoa(n)))
}

func (l *Ledger) recordAudit(eventType, entity, patientID, result, reason string) {
	if l.trail != nil {
		l.trail.Record(eventType, entity, patientID, result, reason)
	}
}
