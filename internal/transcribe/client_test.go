package transcribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listenResponse = `{
	"metadata": {"request_id": "req-123"},
	"results": {
		"channels": [{
			"alternatives": [{
				"transcript": "the liver is normal",
				"confidence": 0.97,
				"words": [{"word": "the", "start": 0.1}],
				"paragraphs": {"paragraphs": [{"sentences": []}]}
			}]
		}]
	}
}`

func testClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		APIKey:   "dg-key",
		BaseURL:  baseURL,
		Model:    "nova-3-medical",
		Language: "en-AU",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotContentType string
	var gotQuery map[string][]string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotQuery = r.URL.Query()
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(listenResponse))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Transcribe(context.Background(), []byte("audio-bytes"), "audio/wav", []string{"effusion", "Smith"})
	require.NoError(t, err)

	assert.Equal(t, "the liver is normal", res.Text)
	assert.InDelta(t, 0.97, res.Confidence, 1e-9)
	assert.Equal(t, "req-123", res.RequestID)
	assert.JSONEq(t, `[{"word": "the", "start": 0.1}]`, res.WordsJSON)
	assert.JSONEq(t, `[{"sentences": []}]`, res.ParagraphsJSON)

	assert.Equal(t, "Token dg-key", gotAuth)
	assert.Equal(t, "audio/wav", gotContentType)
	assert.Equal(t, []byte("audio-bytes"), gotBody)
	assert.Equal(t, []string{"nova-3-medical"}, gotQuery["model"])
	assert.Equal(t, []string{"en-AU"}, gotQuery["language"])
	assert.Equal(t, []string{"true"}, gotQuery["smart_format"])
	assert.ElementsMatch(t, []string{"effusion", "Smith"}, gotQuery["keyterm"])
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(listenResponse))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	res, err := c.Transcribe(context.Background(), []byte("audio"), "audio/wav", nil)
	require.NoError(t, err)
	assert.Equal(t, "the liver is normal", res.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTranscribeClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/wav", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected 400")
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestTranscribeEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata": {"request_id": "r"}, "results": {"channels": []}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/wav", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no alternatives")
}
