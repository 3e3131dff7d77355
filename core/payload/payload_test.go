package payload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	require.Equal(t, 72.0, ParseNumber("72"))
	require.Equal(t, 81.5, ParseNumber(" 81.5 "))
	require.Equal(t, 0.0, ParseNumber("abc"))
	require.Equal(t, 0.0, ParseNumber(""))
}

func TestSplitAllergies(t *testing.T) {
	require.Equal(t, []string{"penicillin", "latex"}, SplitAllergies("penicillin, latex"))
	require.Equal(t, []string{"penicillin"}, SplitAllergies("  penicillin  "))

	got := SplitAllergies("")
	require.NotNil(t, got)
	require.Empty(t, got)

	got = SplitAllergies(" , ,")
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestMergePreservesPriorVitals(t *testing.T) {
	prior := RecordPayload{
		BloodPressure:     "120/80",
		HeartRate:         72,
		BodyWeight:        81.5,
		Temperature:       36.6,
		Allergies:         []string{"penicillin"},
		RecordedTimestamp: 1700000000000,
		RecordedBy:        "0xabc",
	}
	update := RecordPayload{
		Diagnosis:          "Hypertension stage 1",
		Prescription:       "Lisinopril 10mg",
		DiagnosisTimestamp: 1700000100000,
		DiagnosisBy:        "0xdef",
	}

	merged := Merge(prior, update)

	require.Equal(t, "120/80", merged.BloodPressure)
	require.Equal(t, 72.0, merged.HeartRate)
	require.Equal(t, []string{"penicillin"}, merged.Allergies)
	require.Equal(t, int64(1700000000000), merged.RecordedTimestamp)
	require.Equal(t, "Hypertension stage 1", merged.Diagnosis)
	require.Equal(t, "Lisinopril 10mg", merged.Prescription)
	require.Equal(t, "0xdef", merged.DiagnosisBy)
	require.True(t, merged.HasDiagnosis())
}

func TestMergeNonZeroUpdateFieldsWin(t *testing.T) {
	prior := RecordPayload{BloodPressure: "120/80", HeartRate: 72, Diagnosis: "old"}
	update := RecordPayload{BloodPressure: "130/85", Diagnosis: "new"}

	merged := Merge(prior, update)

	require.Equal(t, "130/85", merged.BloodPressure)
	require.Equal(t, 72.0, merged.HeartRate, "zero update field keeps prior value")
	require.Equal(t, "new", merged.Diagnosis)
}

func TestHasDiagnosis(t *testing.T) {
	require.False(t, RecordPayload{}.HasDiagnosis())
	require.True(t, RecordPayload{Diagnosis: "flu"}.HasDiagnosis())
}

func TestValidateAcceptsCompleteRecord(t *testing.T) {
	rec := RecordPayload{
		BloodPressure:     "120/80",
		HeartRate:         72,
		Allergies:         []string{},
		RecordedTimestamp: NowMillis(),
		RecordedBy:        "0xabc",
	}
	require.NoError(t, Validate(rec))
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	err := Validate(RecordPayload{BloodPressure: "120/80"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "recorded")
}

func TestValidateJSONRejectsWrongTypes(t *testing.T) {
	raw := []byte(`{"heartRate":"fast","recordedTimestamp":1700000000000,"recordedBy":"0xabc"}`)
	require.Error(t, ValidateJSON(raw))
}

func TestValidateJSONAllowsUnknownFields(t *testing.T) {
	raw := []byte(`{"recordedTimestamp":1700000000000,"recordedBy":"0xabc","futureField":true}`)
	require.NoError(t, ValidateJSON(raw))
}
