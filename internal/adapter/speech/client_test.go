package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tts", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "fox", r.URL.Query().Get("voice"))
		_, _ = w.Write([]byte("audio:" + r.URL.Query().Get("text")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", "fox")
	audio, err := c.Synthesize(context.Background(), "once upon")
	require.NoError(t, err)

	data, err := io.ReadAll(audio)
	require.NoError(t, err)
	assert.Equal(t, "audio:once upon", string(data))
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "").Synthesize(context.Background(), "cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("voice"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "").Synthesize(context.Background(), "cat")
	assert.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL, "k", "").Synthesize(ctx, "cat")
	assert.Error(t, err)
}
