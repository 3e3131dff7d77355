// Package reconcile joins ledger entries with their blob payloads and orders
// the result for presentation. It is a pure join and sort: no merging across
// entries, no dropped entries, no hidden duplicates.
package reconcile

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"medledger/core/ledger"
	"medledger/core/payload"
)

// ConsultationView is the reconciled, caller-facing shape of one ledger
// entry. Payload is nil when the blob could not be retrieved; the entry
// itself still appears so ledger history never depends on blob availability.
// Timestamp is the ledger-assigned time in unix seconds.
type ConsultationView struct {
	ContentKey string                 `json:"contentKey"`
	PatientID  string                 `json:"patientId"`
	Writer     string                 `json:"writer"`
	Timestamp  int64                  `json:"timestamp"`
	Payload    *payload.RecordPayload `json:"payload"`
}

// PayloadGetter fetches a stored payload by content key.
type PayloadGetter interface {
	GetPayload(ctx context.Context, contentKey string) (payload.RecordPayload, error)
}

type Reconciler struct {
	blobs PayloadGetter
	log   zerolog.Logger
}

func New(blobs PayloadGetter, log zerolog.Logger) *Reconciler {
	return &Reconciler{blobs: blobs, log: log}
}

// Reconcile resolves each entry's payload and sorts the views most recent
// first. A failed fetch downgrades to a nil payload for that entry only.
// Entries with equal timestamps keep their ledger append order, and two
// entries sharing a content key are both listed: the ledger is the source of
// truth for occurrence count, and hiding a double submission would mask it.
func (r *Reconciler) Reconcile(ctx context.Context, entries []ledger.Entry) []ConsultationView {
	views := make([]ConsultationView, 0, len(entries))
	for _, entry := range entries {
		view := ConsultationView{
			ContentKey: entry.ContentKey,
			PatientID:  entry.PatientID,
			Writer:     entry.Writer,
			Timestamp:  entry.Timestamp,
		}
		rec, err := r.blobs.GetPayload(ctx, entry.ContentKey)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("contentKey", entry.ContentKey).
				Str("patientId", entry.PatientID).
				Msg("payload unavailable; listing entry without it")
		} else {
			view.Payload = &rec
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Timestamp > views[j].Timestamp
	})
	return views
}
