package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"medledger/api/rpc"
	"medledger/core/config"
	"medledger/core/ledger"
	"medledger/core/storage"
)

type memBackend struct {
	data map[string][]byte
}

func (m *memBackend) Get(key string) ([]byte, error) {
	val, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return val, nil
}

func (m *memBackend) Put(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memBackend) Has(key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	cfg := &config.Config{
		ListenAddr:       ":0",
		ContractAddress:  "0x2b9b83701e5efb926303cdc604d0a45519bcfff1",
		AppendMethodName: "addRecord",
		ListMethodName:   "getRecords",
	}
	if mutate != nil {
		mutate(cfg)
	}
	led := ledger.New(&memBackend{data: map[string][]byte{}})
	srv := New(cfg, led, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func provision(t *testing.T, ts *httptest.Server, headers map[string]string) *http.Response {
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/provision", nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func call(t *testing.T, ts *httptest.Server, apiKey string, req rpc.CallRequest) (int, rpc.CallResponse) {
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/call", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out rpc.CallResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status rpc.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, "medledgerd", status.Name)
	require.Equal(t, Version, status.Version)
	require.False(t, status.Provisioned)
}

func TestContractLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/contract")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Equal(t, http.StatusOK, provision(t, ts, nil).StatusCode)
	// Re-provision is a no-op, not a failure.
	require.Equal(t, http.StatusOK, provision(t, ts, nil).StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/contract")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info rpc.ContractInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.True(t, info.Provisioned)
}

func TestDescribeAdvertisesConfiguredNames(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.AppendMethodName = "add_record"
		cfg.ListMethodName = "get_records"
	})

	resp, err := http.Get(ts.URL + "/api/v1/describe")
	require.NoError(t, err)
	defer resp.Body.Close()

	var describe rpc.DescribeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&describe))
	require.ElementsMatch(t, []string{"add_record", "get_records"}, describe.Methods)
}

func TestCallUnknownMethod(t *testing.T) {
	_, ts := newTestServer(t, nil)
	provision(t, ts, nil)

	status, out := call(t, ts, "", rpc.CallRequest{Method: "selfDestruct"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "unknown_method", out.Error.Code)
}

func TestCallBeforeProvisionIsRejected(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, out := call(t, ts, "", rpc.CallRequest{
		Method: "getRecords",
		Params: rpc.CallParams{PatientID: "PAT-001"},
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "no_contract", out.Error.Code)
}

func TestListEmptyPatientReverts(t *testing.T) {
	_, ts := newTestServer(t, nil)
	provision(t, ts, nil)

	status, out := call(t, ts, "", rpc.CallRequest{
		Method: "getRecords",
		Params: rpc.CallParams{PatientID: "PAT-001"},
	})
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, out.Error)
	require.Equal(t, rpc.CodeReverted, out.Error.Code)
	require.Contains(t, out.Error.Message, "no records for patient PAT-001")
}

func TestAppendThenListThroughCallSurface(t *testing.T) {
	_, ts := newTestServer(t, nil)
	provision(t, ts, nil)

	status, out := call(t, ts, "", rpc.CallRequest{
		Method: "addRecord",
		Params: rpc.CallParams{PatientID: "PAT-001", ContentKey: "k1", Writer: "0xw"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, out.Error)
	require.NotEmpty(t, out.TxID)

	status, out = call(t, ts, "", rpc.CallRequest{
		Method: "getRecords",
		Params: rpc.CallParams{PatientID: "PAT-001"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, out.Error)
	require.Len(t, out.Entries, 1)
	require.Equal(t, "k1", out.Entries[0].ContentKey)
	require.Equal(t, "0xw", out.Entries[0].Writer)
}

func TestAppendRequiresAPIKey(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.APIKey = "secret"
	})
	provision(t, ts, map[string]string{"X-API-Key": "secret"})

	body, _ := json.Marshal(rpc.CallRequest{
		Method: "addRecord",
		Params: rpc.CallParams{PatientID: "PAT-001", ContentKey: "k1"},
	})
	resp, err := http.Post(ts.URL+"/api/v1/call", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, out := call(t, ts, "secret", rpc.CallRequest{
		Method: "addRecord",
		Params: rpc.CallParams{PatientID: "PAT-001", ContentKey: "k1"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, out.Error)
}

func TestReadsStayOpenWithAuthConfigured(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.APIKey = "secret"
	})
	provision(t, ts, map[string]string{"X-API-Key": "secret"})

	status, out := call(t, ts, "", rpc.CallRequest{
		Method: "getRecords",
		Params: rpc.CallParams{PatientID: "PAT-001"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, rpc.CodeReverted, out.Error.Code)
}

func TestBearerTokenAuth(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.JWTSecret = "hmac-secret"
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "0xwriter",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("hmac-secret"))
	require.NoError(t, err)

	resp := provision(t, ts, map[string]string{"Authorization": "Bearer " + signed})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = provision(t, ts, map[string]string{"Authorization": "Bearer not-a-token"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthProbes(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, path := range []string{"/health/liveness", "/health/readiness"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
