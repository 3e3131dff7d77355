package consult

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medledger/core/ledger"
	"medledger/core/payload"
	"medledger/core/reconcile"
)

// LedgerClient is the ledger surface the workflow needs. Satisfied by the
// api/client handle, real or mock.
type LedgerClient interface {
	Append(ctx context.Context, patientID, contentKey string) error
	List(ctx context.Context, patientID string) ([]ledger.Entry, error)
	IsMock() bool
}

// Blobs is the payload store surface: write on commit, read on reconcile.
type Blobs interface {
	BlobWriter
	reconcile.PayloadGetter
}

// Service is the application-facing facade over sessions, the payload store
// and the ledger. One Service serves all patients; Sessions it hands out are
// single-use.
type Service struct {
	blobs  Blobs
	ledger LedgerClient
	recon  *reconcile.Reconciler
	log    zerolog.Logger
}

func NewService(blobs Blobs, lc LedgerClient, log zerolog.Logger) *Service {
	if lc.IsMock() {
		log.Warn().Msg("consultation service running against mock ledger; records will not persist")
	}
	return &Service{
		blobs:  blobs,
		ledger: lc,
		recon:  reconcile.New(blobs, log),
		log:    log,
	}
}

// BeginConsultation opens a fresh session for one patient interaction.
func (s *Service) BeginConsultation(patientID, writer string) (*Session, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	if writer == "" {
		return nil, fmt.Errorf("writer identity is required")
	}
	sess := &Session{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Writer:    writer,
		blobs:     s.blobs,
		ledger:    s.ledger,
		nowMs:     payload.NowMillis,
		log:       s.log.With().Str("patientId", patientID).Logger(),
	}
	return sess, nil
}

// ResumeDiagnosis opens a session positioned to stage a diagnosis against a
// previously stored record, for the revisit flow where the vitals entry
// already exists on the ledger.
func (s *Service) ResumeDiagnosis(patientID, writer string) (*Session, error) {
	sess, err := s.BeginConsultation(patientID, writer)
	if err != nil {
		return nil, err
	}
	sess.state = VitalsStored
	return sess, nil
}

// ListConsultations returns the patient's reconciled history, newest first.
// Entries whose payload could not be fetched appear with a nil Payload.
func (s *Service) ListConsultations(ctx context.Context, patientID string) ([]reconcile.ConsultationView, error) {
	entries, err := s.ledger.List(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.recon.Reconcile(ctx, entries), nil
}

// LatestPayload returns the payload of the newest fetchable record, for use
// as the prior when staging a diagnosis. ok is false when the patient has no
// records or none could be fetched.
func (s *Service) LatestPayload(ctx context.Context, patientID string) (payload.RecordPayload, bool, error) {
	views, err := s.ListConsultations(ctx, patientID)
	if err != nil {
		return payload.RecordPayload{}, false, err
	}
	for _, v := range views {
		if v.Payload != nil {
			return *v.Payload, true, nil
		}
	}
	return payload.RecordPayload{}, false, nil
}
