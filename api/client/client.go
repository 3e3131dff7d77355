// Package client is the ledger-side client: it connects to a ledger node,
// discovers which method names implement append and list, provisions the
// contract when absent, and normalizes the node's revert-on-empty read into
// an empty list. An explicit in-memory mock is available as a last-resort
// fallback for non-production use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medledger/api/rpc"
	"medledger/core/config"
	"medledger/core/ledger"
)

var (
	// ErrLedgerUnreachable means the backend network could not be reached
	// within the connect timeout. Fatal for Connect; not retried internally.
	ErrLedgerUnreachable = errors.New("ledger backend unreachable")

	// ErrLedgerUnavailable wraps transport or timeout failures on append and
	// list calls. Retryable at the caller's discretion.
	ErrLedgerUnavailable = errors.New("ledger call failed")

	// ErrUnsupportedLedger means method resolution found no append or list
	// method on the live contract. A configuration problem, fatal.
	ErrUnsupportedLedger = errors.New("ledger exposes no compatible method surface")
)

// Ledger is the handle the record workflow talks to. Implementations: the
// live HTTP client below and the in-memory Mock. Callers must branch on
// IsMock before trusting results for real data.
type Ledger interface {
	Append(ctx context.Context, patientID, contentKey string) error
	List(ctx context.Context, patientID string) ([]ledger.Entry, error)
	IsMock() bool
	Close() error
}

// Config carries the connection settings for a ledger node.
type Config struct {
	URL            string
	APIKey         string
	Writer         string // account address stamped into appended entries
	ConnectTimeout time.Duration
	CallTimeout    time.Duration

	// AllowMockFallback permits falling back to the in-memory mock when the
	// contract cannot be provisioned. Never enabled implicitly.
	AllowMockFallback bool

	Logger zerolog.Logger
}

// Client is the live handle. Safe to share across concurrent calls; all
// mutable state lives at the backend.
type Client struct {
	base         string
	apiKey       string
	writer       string
	appendMethod string
	listMethod   string
	callTimeout  time.Duration
	http         *http.Client
	log          zerolog.Logger
}

// Connect dials the node, resolves the contract method surface once, and
// provisions the contract if none exists. Connection failure within the
// bounded timeout surfaces as ErrLedgerUnreachable and is left to the caller
// to retry.
func Connect(ctx context.Context, cfg Config) (Ledger, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = config.DefaultConnectTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = config.DefaultCallTimeout
	}

	c := &Client{
		base:        strings.TrimRight(cfg.URL, "/"),
		apiKey:      cfg.APIKey,
		writer:      cfg.Writer,
		callTimeout: cfg.CallTimeout,
		http:        &http.Client{},
		log:         cfg.Logger,
	}

	if err := c.ping(ctx, cfg.ConnectTimeout); err != nil {
		return nil, err
	}

	if err := c.resolveMethods(ctx); err != nil {
		return nil, err
	}

	if err := c.ensureContract(ctx); err != nil {
		if cfg.AllowMockFallback {
			c.log.Warn().Err(err).Msg("contract provisioning failed; falling back to in-memory mock ledger; do not trust for real data")
			return NewMock(cfg.Logger), nil
		}
		return nil, err
	}

	c.log.Info().
		Str("url", c.base).
		Str("appendMethod", c.appendMethod).
		Str("listMethod", c.listMethod).
		Msg("connected to ledger node")
	return c, nil
}

func (c *Client) ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health/liveness", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnreachable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnreachable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: liveness returned %s", ErrLedgerUnreachable, resp.Status)
	}
	return nil
}

// resolveMethods fetches the node's method list once and caches the resolved
// names for the lifetime of the handle.
func (c *Client) resolveMethods(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/describe", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: describe returned %s", ErrLedgerUnavailable, resp.Status)
	}

	var describe rpc.DescribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&describe); err != nil {
		return fmt.Errorf("%w: malformed describe response: %v", ErrLedgerUnavailable, err)
	}

	appendName, ok := resolveCandidates(describe.Methods, "addRecord", "addMedicalRecord")
	if !ok {
		return fmt.Errorf("%w: no append method among %v", ErrUnsupportedLedger, describe.Methods)
	}
	listName, ok := resolveCandidates(describe.Methods, "getRecords", "listRecords")
	if !ok {
		return fmt.Errorf("%w: no list method among %v", ErrUnsupportedLedger, describe.Methods)
	}
	c.appendMethod = appendName
	c.listMethod = listName
	return nil
}

// ensureContract checks for a contract at the configured address and deploys
// a fresh one when absent.
func (c *Client) ensureContract(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/contract", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return c.provision(ctx)
	default:
		return fmt.Errorf("%w: contract check returned %s", ErrLedgerUnavailable, resp.Status)
	}
}

func (c *Client) provision(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/provision", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	c.authenticate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provision returned %s", ErrLedgerUnavailable, resp.Status)
	}
	c.log.Info().Msg("provisioned fresh contract")
	return nil
}

// Append submits {patientID, contentKey} under the handle's writer address.
func (c *Client) Append(ctx context.Context, patientID, contentKey string) error {
	resp, err := c.call(ctx, c.appendMethod, rpc.CallParams{
		PatientID:  patientID,
		ContentKey: contentKey,
		Writer:     c.writer,
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s: %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// List returns the patient's append history. A revert on an unseeded patient
// is an empty result, not an error.
func (c *Client) List(ctx context.Context, patientID string) ([]ledger.Entry, error) {
	resp, err := c.call(ctx, c.listMethod, rpc.CallParams{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		if resp.Error.Code == rpc.CodeReverted && strings.Contains(resp.Error.Message, "no records") {
			return []ledger.Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}
	if resp.Entries == nil {
		return []ledger.Entry{}, nil
	}
	return resp.Entries, nil
}

// Status fetches the node status summary.
func (c *Client) Status(ctx context.Context) (rpc.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var status rpc.StatusResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return status, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return status, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return status, nil
}

// call performs one bounded contract call. Timeout is a hard cutoff: the
// operation is reported failed regardless of server-side completion, so a
// timed-out append has an unknown outcome and callers should re-list before
// retrying blindly.
func (c *Client) call(ctx context.Context, method string, params rpc.CallParams) (rpc.CallResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var out rpc.CallResponse
	body, err := json.Marshal(rpc.CallRequest{Method: method, Params: params})
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/call", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: malformed call response (%s): %v", ErrLedgerUnavailable, resp.Status, err)
	}
	return out, nil
}

func (c *Client) authenticate(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// IsMock is always false for the live client.
func (c *Client) IsMock() bool { return false }

// Close releases idle connections. The handle must not be used afterwards.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
