package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pricing-engine/pkg/errors"
)

type fakeStore struct {
	data   map[string]string
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "fake:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

const redeemPath = "/api/v1/promotions/0c6f6a36-1d0e-4a53-9d53-0b0f1c1f7a11/redeem"

func redeemRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, redeemPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, redeemRequest("", `{"order_id":"o-1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeStore(), 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, redeemRequest("abc", `{"order_id":"o-1"}`))
	require.Equal(t, http.StatusAccepted, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	again := httptest.NewRecorder()
	handler.ServeHTTP(again, redeemRequest("abc", `{"order_id":"o-1"}`))
	assert.Equal(t, http.StatusAccepted, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, "true", again.Header().Get(replayedHeader))
	assert.Equal(t, `{"ok":true}`, again.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	handler := Idempotency(newFakeStore(), 0, nil)(okHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), redeemRequest("xyz", `{"order_id":"o-1"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, redeemRequest("xyz", `{"order_id":"o-2"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), redeemRequest("retry-me", `{"order_id":"o-1"}`))
	}
	assert.Equal(t, 2, calls, "handler should run again after a 5xx")
	assert.Empty(t, store.data)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	body := `{"order_id":"o-2"}`
	pending, err := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprintBody([]byte(body))})
	require.NoError(t, err)
	store.data[store.IdempotencyKey(http.MethodPost+"|"+redeemPath, "in-flight")] = string(pending)

	called := false
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, redeemRequest("in-flight", body))

	assert.False(t, called, "handler must not run while the first request is in flight")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "still in progress")
}

func TestIdempotencyReplacesReservation(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, 0, nil)(okHandler(http.StatusCreated))
	handler.ServeHTTP(httptest.NewRecorder(), redeemRequest("final", `{"order_id":"o-3"}`))

	raw, ok := store.data[store.IdempotencyKey(http.MethodPost+"|"+redeemPath, "final")]
	require.True(t, ok)
	var stored storedResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.False(t, stored.Pending)
	assert.Equal(t, http.StatusCreated, stored.Status)
}

func TestIdempotencyPersistFailureStillAnswers(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("redis timeout")
	rec := httptest.NewRecorder()
	Idempotency(store, 0, nil)(okHandler(http.StatusCreated)).ServeHTTP(rec, redeemRequest("k", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdempotencyPassesSafeMethods(t *testing.T) {
	store := newFakeStore()
	rec := httptest.NewRecorder()
	Idempotency(store, 0, nil)(okHandler(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, redeemPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.data)
}
