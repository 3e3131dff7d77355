// Package blobstore is the client for the content-addressed payload store:
// an external keyed blob service with a Lighthouse-style HTTP surface
// (API-key upload, gateway GET by content key). The store is append-only by
// construction; no update or delete is exposed.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrStoreUnavailable means the backing service could not be reached or
	// answered with a server error. Retryable by the caller.
	ErrStoreUnavailable = errors.New("blob store unavailable")

	// ErrNotFound means no object exists for the content key. Terminal for
	// that read; it does not imply the referencing ledger entry is invalid.
	ErrNotFound = errors.New("blob store: content key not found")
)

// SerializationError wraps a payload that could not be JSON-encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("payload is not JSON-serializable: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError wraps stored bytes that are not valid JSON.
type DeserializationError struct {
	ContentKey string
	Err        error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("stored bytes for %s are not valid JSON: %v", e.ContentKey, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// Config holds the two endpoints of the blob store boundary plus the
// caller-held upload credential.
type Config struct {
	GatewayURL string // read side, GET <gateway>/ipfs/<key>
	UploadURL  string // write side, POST with Authorization: Bearer <APIKey>
	APIKey     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client puts and gets opaque JSON payloads by content key. Safe for
// concurrent use; all mutation happens at the backend.
type Client struct {
	gatewayURL string
	uploadURL  string
	apiKey     string
	http       *http.Client
	log        zerolog.Logger
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		uploadURL:  cfg.UploadURL,
		apiKey:     cfg.APIKey,
		http:       httpClient,
		log:        cfg.Logger,
	}
}

// uploadResponse is the store's upload receipt. Hash is the content key.
type uploadResponse struct {
	Data struct {
		Name string `json:"Name"`
		Hash string `json:"Hash"`
		Size string `json:"Size"`
	} `json:"data"`
}

// Put stores v as a JSON object and returns its content key. The key is
// assigned by the backing service; callers must not assume global
// content-hash equality across stores.
func (c *Client) Put(ctx context.Context, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", &SerializationError{Err: err}
	}

	name := "medical_record_" + uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-File-Name", name)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: upload returned %s", ErrStoreUnavailable, resp.Status)
	}

	var receipt uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return "", fmt.Errorf("%w: malformed upload receipt: %v", ErrStoreUnavailable, err)
	}
	if receipt.Data.Hash == "" {
		return "", fmt.Errorf("%w: upload receipt missing content key", ErrStoreUnavailable)
	}

	c.log.Debug().Str("contentKey", receipt.Data.Hash).Str("name", name).Msg("blob stored")
	return receipt.Data.Hash, nil
}

// Get retrieves the raw JSON stored under a content key.
func (c *Client) Get(ctx context.Context, contentKey string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/ipfs/"+contentKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentKey)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: gateway returned %s", ErrStoreUnavailable, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !json.Valid(raw) {
		return nil, &DeserializationError{ContentKey: contentKey, Err: errors.New("invalid JSON")}
	}
	return raw, nil
}

// Exists reports whether the gateway can currently serve the key.
// Best-effort: transport failures read as absent.
func (c *Client) Exists(ctx context.Context, contentKey string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.gatewayURL+"/ipfs/"+contentKey, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Ping verifies the gateway is reachable. Any HTTP answer counts; only a
// transport failure is reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.gatewayURL+"/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	resp.Body.Close()
	return nil
}
