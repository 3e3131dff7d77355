// Package consult orchestrates the consultation write path: stage vitals,
// store the payload blob, append a ledger entry; later stage a diagnosis
// revision that carries the prior fields forward and lands as a brand-new
// entry. Commits are two-step (put then append) with the failed sub-step
// surfaced so callers can choose their retry strategy.
package consult

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"medledger/core/payload"
)

// State is the per-consultation workflow position.
type State int

const (
	NoSession State = iota
	VitalsStaged
	VitalsStored
	DiagnosisStaged
	DiagnosisStored // terminal; a new interaction restarts at NoSession
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no-session"
	case VitalsStaged:
		return "vitals-staged"
	case VitalsStored:
		return "vitals-stored"
	case DiagnosisStaged:
		return "diagnosis-staged"
	case DiagnosisStored:
		return "diagnosis-stored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step identifies the sub-step of a two-step commit.
type Step string

const (
	StepBlobWrite    Step = "blob-write"
	StepLedgerAppend Step = "ledger-append"
)

// PartialCommitError reports a commit that failed midway. When Step is
// StepLedgerAppend the blob was already written: ContentKey holds the key of
// the now-orphaned payload, which the caller may retry the append with, or
// discard by re-committing from scratch (producing a fresh put). The orphan
// itself is harmless: content-addressed and never referenced.
type PartialCommitError struct {
	Step       Step
	ContentKey string
	Err        error
}

func (e *PartialCommitError) Error() string {
	if e.Step == StepLedgerAppend {
		return fmt.Sprintf("commit failed at %s (blob %s written but unreferenced): %v", e.Step, e.ContentKey, e.Err)
	}
	return fmt.Sprintf("commit failed at %s: %v", e.Step, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// ErrInvalidTransition reports a workflow call out of order.
type ErrInvalidTransition struct {
	From State
	Op   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.From)
}

// BlobWriter stores a payload and returns its content key.
type BlobWriter interface {
	Put(ctx context.Context, v any) (string, error)
}

// LedgerAppender appends one entry to a patient's ledger list.
type LedgerAppender interface {
	Append(ctx context.Context, patientID, contentKey string) error
}

// VitalsInput is the raw intake form. Numeric fields arrive as free text and
// coerce to zero when unparsable; type errors never block submission.
type VitalsInput struct {
	BloodPressure string
	HeartRate     string
	BodyWeight    string
	Temperature   string
	Allergies     string // comma separated
}

// DiagnosisInput is the diagnosis form added on a later visit to the record.
type DiagnosisInput struct {
	Diagnosis    string
	Prescription string
}

// Session is one consultation for one patient. Sessions are not safe for
// concurrent use; run one per patient interaction. Sessions for different
// patients need no coordination.
type Session struct {
	ID        string
	PatientID string
	Writer    string

	state  State
	staged payload.RecordPayload
	blobs  BlobWriter
	ledger LedgerAppender
	nowMs  func() int64
	log    zerolog.Logger
}

// StageVitals validates and stages a candidate payload from the intake form.
// Restaging while still in VitalsStaged replaces the candidate.
func (s *Session) StageVitals(in VitalsInput) error {
	if s.state != NoSession && s.state != VitalsStaged {
		return &ErrInvalidTransition{From: s.state, Op: "stage vitals"}
	}

	rec := payload.RecordPayload{
		BloodPressure:     in.BloodPressure,
		HeartRate:         payload.ParseNumber(in.HeartRate),
		BodyWeight:        payload.ParseNumber(in.BodyWeight),
		Temperature:       payload.ParseNumber(in.Temperature),
		Allergies:         payload.SplitAllergies(in.Allergies),
		RecordedTimestamp: s.nowMs(),
		RecordedBy:        s.Writer,
	}
	if err := payload.Validate(rec); err != nil {
		return err
	}
	s.staged = rec
	s.state = VitalsStaged
	return nil
}

// CommitVitals stores the staged payload and appends its ledger entry. On a
// ledger-append failure the session stays in VitalsStaged: a repeat
// CommitVitals restarts from scratch with a fresh put (the first put's key
// must never be assumed referenceable), while RetryAppend reuses the key the
// error carried.
func (s *Session) CommitVitals(ctx context.Context) (string, error) {
	if s.state != VitalsStaged {
		return "", &ErrInvalidTransition{From: s.state, Op: "commit vitals"}
	}
	key, err := s.commit(ctx)
	if err != nil {
		return "", err
	}
	s.state = VitalsStored
	return key, nil
}

// StageDiagnosis merges the diagnosis fields onto a copy of the prior
// payload. Prior vitals fields are preserved; diagnosis fields are added or
// overwritten. The prior payload is whatever the caller read back for the
// entry being revised, typically the newest reconciled view.
func (s *Session) StageDiagnosis(prior payload.RecordPayload, in DiagnosisInput) error {
	if s.state != VitalsStored {
		return &ErrInvalidTransition{From: s.state, Op: "stage diagnosis"}
	}

	merged := payload.Merge(prior, payload.RecordPayload{
		Diagnosis:          in.Diagnosis,
		Prescription:       in.Prescription,
		DiagnosisTimestamp: s.nowMs(),
		DiagnosisBy:        s.Writer,
	})
	if err := payload.Validate(merged); err != nil {
		return err
	}
	s.staged = merged
	s.state = DiagnosisStaged
	return nil
}

// CommitDiagnosis stores the merged payload and appends a brand-new ledger
// entry. The prior entry is never edited or removed.
func (s *Session) CommitDiagnosis(ctx context.Context) (string, error) {
	if s.state != DiagnosisStaged {
		return "", &ErrInvalidTransition{From: s.state, Op: "commit diagnosis"}
	}
	key, err := s.commit(ctx)
	if err != nil {
		return "", err
	}
	s.state = DiagnosisStored
	return key, nil
}

// RetryAppend retries only the ledger append with a content key from a prior
// PartialCommitError, skipping the re-put. Valid in the staged states.
func (s *Session) RetryAppend(ctx context.Context, contentKey string) error {
	if s.state != VitalsStaged && s.state != DiagnosisStaged {
		return &ErrInvalidTransition{From: s.state, Op: "retry append"}
	}
	if err := s.ledger.Append(ctx, s.PatientID, contentKey); err != nil {
		return &PartialCommitError{Step: StepLedgerAppend, ContentKey: contentKey, Err: err}
	}
	if s.state == VitalsStaged {
		s.state = VitalsStored
	} else {
		s.state = DiagnosisStored
	}
	return nil
}

// State reports the workflow position.
func (s *Session) State() State {
	return s.state
}

// StagedPayload returns the current candidate payload.
func (s *Session) StagedPayload() payload.RecordPayload {
	return s.staged
}

// commit is the shared put-then-append. No retry loop lives here; failure is
// reported with the exact sub-step and left to the caller.
func (s *Session) commit(ctx context.Context) (string, error) {
	key, err := s.blobs.Put(ctx, s.staged)
	if err != nil {
		return "", &PartialCommitError{Step: StepBlobWrite, Err: err}
	}
	if err := s.ledger.Append(ctx, s.PatientID, key); err != nil {
		s.log.Warn().
			Str("contentKey", key).
			Str("patientId", s.PatientID).
			Msg("ledger append failed after blob write; payload is orphaned")
		return "", &PartialCommitError{Step: StepLedgerAppend, ContentKey: key, Err: err}
	}
	s.log.Info().
		Str("sessionId", s.ID).
		Str("patientId", s.PatientID).
		Str("contentKey", key).
		Str("state", s.state.String()).
		Msg("record committed")
	return key, nil
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClockMillis overrides the payload timestamp source.
func WithClockMillis(nowMs func() int64) SessionOption {
	return func(s *Session) { s.nowMs = nowMs }
}
