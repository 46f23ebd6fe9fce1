package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
)

func TestNextReturnsWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/video/getNext", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Webhook-Token"))
		json.NewEncoder(w).Encode(map[string]string{"id": "vid42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", zap.NewNop())
	item, err := c.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "vid42", item.VideoID)
}

func TestNextNoWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", zap.NewNop())
	item, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestNextUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", zap.NewNop())
	_, err := c.Next(context.Background())
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestNextUnconfigured(t *testing.T) {
	c := NewClient("", "", zap.NewNop())
	_, err := c.Next(context.Background())
	assert.Error(t, err)
}

func TestNotifyStatus(t *testing.T) {
	var got entity.StatusUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/video/updateStatus", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Webhook-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", zap.NewNop())
	err := c.NotifyStatus(context.Background(), "vid42", entity.StatusDone, 93.5)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusUpdate{ID: "vid42", Status: entity.StatusDone, Duration: 93.5}, got)
}

func TestNotifyStatusNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", zap.NewNop())
	err := c.NotifyStatus(context.Background(), "vid42", entity.StatusFailed, 0)
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestCompleteAndReleaseAreNoOps(t *testing.T) {
	c := NewClient("http://example.invalid", "secret", zap.NewNop())
	assert.NoError(t, c.Complete(context.Background(), nil))
	assert.NoError(t, c.Release(context.Background(), nil))
}
