package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordChainsEvents(t *testing.T) {
	trail := NewTrail(nil)

	first := trail.Record("append", "0xabc", "PAT-001", "success", "")
	second := trail.Record("append", "0xabc", "PAT-001", "success", "")

	require.Empty(t, first.PrevHash)
	require.NotEmpty(t, first.EntryHash)
	require.Equal(t, first.EntryHash, second.PrevHash)
	require.True(t, trail.Verify())
}

func TestVerifyDetectsTampering(t *testing.T) {
	trail := NewTrail(nil)
	trail.Record("append", "0xabc", "PAT-001", "success", "")
	trail.Record("list", "0xabc", "PAT-001", "success", "")

	require.True(t, trail.Verify())

	trail.entries[0].PatientID = "PAT-999"
	require.False(t, trail.Verify())
}

func TestVerifyDetectsBrokenLink(t *testing.T) {
	trail := NewTrail(nil)
	trail.Record("append", "0xabc", "PAT-001", "success", "")
	trail.Record("append", "0xabc", "PAT-002", "success", "")

	trail.entries[1].PrevHash = "forged"
	require.False(t, trail.Verify())
}

type captureLogger struct {
	events []Event
}

func (c *captureLogger) LogEvent(evt Event) { c.events = append(c.events, evt) }

func TestRecordForwardsToLogger(t *testing.T) {
	capture := &captureLogger{}
	trail := NewTrail(capture)

	trail.Record("provision", "node", "", "success", "")
	trail.Record("append", "0xabc", "PAT-001", "failure", "no contract")

	require.Len(t, capture.events, 2)
	require.Equal(t, "provision", capture.events[0].EventType)
	require.Equal(t, "no contract", capture.events[1].Reason)
}

func TestEventsReturnsCopy(t *testing.T) {
	trail := NewTrail(nil)
	trail.Record("append", "0xabc", "PAT-001", "success", "")

	events := trail.Events()
	events[0].EntityID = "mutated"

	require.Equal(t, "0xabc", trail.Events()[0].EntityID)
	require.True(t, trail.Verify())
}
