package blobstore

import (
	"context"
	"encoding/json"

	"medledger/core/payload"
)

// GetPayload retrieves and decodes a medical record payload. Unknown fields
// are preserved by the store but dropped here; readers only see the record
// schema.
func (c *Client) GetPayload(ctx context.Context, contentKey string) (payload.RecordPayload, error) {
	var rec payload.RecordPayload

	raw, err := c.Get(ctx, contentKey)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, &DeserializationError{ContentKey: contentKey, Err: err}
	}
	return rec, nil
}
