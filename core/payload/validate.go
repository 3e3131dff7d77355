package payload

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/record_payload_schema.json
var recordPayloadSchema string

// schemaLoader returns the JSON-schema loader for record payloads. The
// embedded schema is the default; MEDLEDGER_SCHEMA_PATH overrides it for
// deployments that tighten the rules.
func schemaLoader() gojsonschema.JSONLoader {
	if path := os.Getenv("MEDLEDGER_SCHEMA_PATH"); path != "" {
		return gojsonschema.NewReferenceLoader("file://" + path)
	}
	return gojsonschema.NewStringLoader(recordPayloadSchema)
}

// Validate checks a staged payload against the record schema. A validation
// failure is fatal for that record only; it never blocks other records.
func Validate(p RecordPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return ValidateJSON(raw)
}

// ValidateJSON validates raw JSON bytes against the record schema.
func ValidateJSON(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader(), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("payload failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
