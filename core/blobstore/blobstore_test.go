package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeStore mimics the upload-plus-gateway surface of the backing service.
type fakeStore struct {
	objects map[string][]byte
	nextKey string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, nextKey: "QmTestKey1"}
}

func (f *fakeStore) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.True(t, strings.HasPrefix(r.Header.Get("X-File-Name"), "medical_record_"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		f.objects[f.nextKey] = body
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"Name": r.Header.Get("X-File-Name"), "Hash": f.nextKey, "Size": "123"},
		})
	})
	mux.HandleFunc("/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/ipfs/")
		obj, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(obj)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, store *fakeStore) (*Client, *httptest.Server) {
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)
	client := New(Config{
		GatewayURL: srv.URL,
		UploadURL:  srv.URL + "/upload",
		APIKey:     "test-key",
		Logger:     zerolog.Nop(),
	})
	return client, srv
}

func TestPutThenGetRoundTrip(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	key, err := client.Put(context.Background(), map[string]string{"bloodPressure": "120/80"})
	require.NoError(t, err)
	require.Equal(t, "QmTestKey1", key)

	raw, err := client.Get(context.Background(), key)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "120/80", got["bloodPressure"])
}

func TestPutUnserializablePayload(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Put(context.Background(), map[string]any{"bad": func() {}})
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestGetUnknownKeyIsNotFound(t *testing.T) {
	store := newFakeStore()
	client, _ := newTestClient(t, store)

	_, err := client.Get(context.Background(), "QmMissing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRejectsNonJSONBytes(t *testing.T) {
	store := newFakeStore()
	store.objects["QmBroken"] = []byte("not json at all")
	client, _ := newTestClient(t, store)

	_, err := client.Get(context.Background(), "QmBroken")
	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
	require.Equal(t, "QmBroken", desErr.ContentKey)
}

func TestUnreachableStoreIsUnavailable(t *testing.T) {
	client := New(Config{
		GatewayURL: "http://127.0.0.1:1",
		UploadURL:  "http://127.0.0.1:1/upload",
		APIKey:     "test-key",
		Logger:     zerolog.Nop(),
	})

	_, err := client.Put(context.Background(), map[string]string{"a": "b"})
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = client.Get(context.Background(), "QmAny")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	require.ErrorIs(t, client.Ping(context.Background()), ErrStoreUnavailable)
}

func TestServerErrorIsUnavailableNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := New(Config{GatewayURL: srv.URL, UploadURL: srv.URL + "/upload", Logger: zerolog.Nop()})

	_, err := client.Get(context.Background(), "QmAny")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestExists(t *testing.T) {
	store := newFakeStore()
	store.objects["QmHere"] = []byte(`{}`)
	client, _ := newTestClient(t, store)

	require.True(t, client.Exists(context.Background(), "QmHere"))
	require.False(t, client.Exists(context.Background(), "QmGone"))
}

func TestGetPayloadDecodesRecord(t *testing.T) {
	store := newFakeStore()
	store.objects["QmRec"] = []byte(`{"bloodPressure":"120/80","heartRate":72,"recordedTimestamp":1700000000000,"recordedBy":"0xabc"}`)
	client, _ := newTestClient(t, store)

	rec, err := client.GetPayload(context.Background(), "QmRec")
	require.NoError(t, err)
	require.Equal(t, "120/80", rec.BloodPressure)
	require.Equal(t, 72.0, rec.HeartRate)
	require.Equal(t, "0xabc", rec.RecordedBy)
}

func TestGetPayloadRejectsWrongShape(t *testing.T) {
	store := newFakeStore()
	store.objects["QmWrong"] = []byte(`{"heartRate":"not a number"}`)
	client, _ := newTestClient(t, store)

	_, err := client.GetPayload(context.Background(), "QmWrong")
	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
}
