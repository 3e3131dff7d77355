package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medledger/core/ledger"
)

// Mock is the in-memory no-op ledger used when contract provisioning fails.
// It exists for non-production use only and is always explicitly tagged:
// IsMock returns true so callers can refuse to trust it for real data.
type Mock struct {
	mu      sync.Mutex
	entries map[string][]ledger.Entry
	writer  string
	log     zerolog.Logger
}

func NewMock(log zerolog.Logger) *Mock {
	log.Warn().Msg("mock ledger active: entries are process-local and volatile")
	return &Mock{
		entries: map[string][]ledger.Entry{},
		writer:  "0xmock",
		log:     log,
	}
}

func (m *Mock) Append(_ context.Context, patientID, contentKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := time.Now().UTC().Unix()
	if list := m.entries[patientID]; len(list) > 0 && list[len(list)-1].Timestamp > ts {
		ts = list[len(list)-1].Timestamp
	}
	m.entries[patientID] = append(m.entries[patientID], ledger.Entry{
		ContentKey: contentKey,
		PatientID:  patientID,
		Writer:     m.writer,
		Timestamp:  ts,
	})
	return nil
}

func (m *Mock) List(_ context.Context, patientID string) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Entry, len(m.entries[patientID]))
	copy(out, m.entries[patientID])
	return out, nil
}

func (m *Mock) IsMock() bool { return true }

func (m *Mock) Close() error { return nil }
