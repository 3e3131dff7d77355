// Package payload defines the medical record payload stored in the blob
// store, the merge used to carry vitals forward into a diagnosis revision,
// and the relaxed input coercion the intake forms rely on.
package payload

import (
	"strconv"
	"strings"
	"time"
)

// RecordPayload is the JSON document a ledger entry's content key points at.
// A payload is immutable once stored; a diagnosis update is a new payload
// carrying the prior vitals fields forward, never an in-place edit.
//
// Payload-internal timestamps are unix milliseconds. Ledger entry timestamps
// are seconds; the two units are never mixed (views order by ledger time).
type RecordPayload struct {
	BloodPressure     string   `json:"bloodPressure,omitempty"`
	HeartRate         float64  `json:"heartRate,omitempty"`
	BodyWeight        float64  `json:"bodyWeight,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	RecordedTimestamp int64    `json:"recordedTimestamp,omitempty"`
	RecordedBy        string   `json:"recordedBy,omitempty"`

	Diagnosis          string `json:"diagnosis,omitempty"`
	Prescription       string `json:"prescription,omitempty"`
	DiagnosisTimestamp int64  `json:"diagnosisTimestamp,omitempty"`
	DiagnosisBy        string `json:"diagnosisBy,omitempty"`
}

// HasDiagnosis reports whether the diagnosis fields have been filled in.
func (p RecordPayload) HasDiagnosis() bool {
	return p.Diagnosis != "" || p.Prescription != "" || p.DiagnosisTimestamp != 0
}

// Merge overlays update onto prior, field by field: a non-zero field in
// update wins, a zero field preserves prior's value. The merge is total, so
// partial-update semantics are unambiguous: staging a diagnosis onto stored
// vitals keeps every vitals field and adds the diagnosis fields.
func Merge(prior, update RecordPayload) RecordPayload {
	out := prior
	if update.BloodPressure != "" {
		out.BloodPressure = update.BloodPressure
	}
	if update.HeartRate != 0 {
		out.HeartRate = update.HeartRate
	}
	if update.BodyWeight != 0 {
		out.BodyWeight = update.BodyWeight
	}
	if update.Temperature != 0 {
		out.Temperature = update.Temperature
	}
	if update.Allergies != nil {
		out.Allergies = append([]string(nil), update.Allergies...)
	}
	if update.RecordedTimestamp != 0 {
		out.RecordedTimestamp = update.RecordedTimestamp
	}
	if update.RecordedBy != "" {
		out.RecordedBy = update.RecordedBy
	}
	if update.Diagnosis != "" {
		out.Diagnosis = update.Diagnosis
	}
	if update.Prescription != "" {
		out.Prescription = update.Prescription
	}
	if update.DiagnosisTimestamp != 0 {
		out.DiagnosisTimestamp = update.DiagnosisTimestamp
	}
	if update.DiagnosisBy != "" {
		out.DiagnosisBy = update.DiagnosisBy
	}
	return out
}

// ParseNumber coerces a free-text numeric field. Unparsable input coerces to
// 0 rather than blocking submission; intake forms are deliberately lenient.
func ParseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n
}

// SplitAllergies turns a comma-separated field into a trimmed list. Empty
// input yields an empty, non-nil list.
func SplitAllergies(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NowMillis is the payload-unit timestamp for freshly staged records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
