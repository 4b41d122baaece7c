package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticKey(k string) KeyFunc {
	return func(context.Context) string { return k }
}

func TestClient_Complete(t *testing.T) {
	var got completionRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"id":"p1","status":"completed","outputs":["Olá!"]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", APIKey: staticKey("ws-key"), DefaultModel: "m-default"})
	resp, err := c.Complete(context.Background(), Request{Prompt: "oi", SystemPrompt: "be nice"})
	require.NoError(t, err)

	assert.Equal(t, "Olá!", resp.Text)
	assert.Equal(t, "m-default", resp.Model)
	assert.Equal(t, "p1", resp.ID)
	assert.Equal(t, "Bearer ws-key", auth)
	assert.Equal(t, completionPath, path)
	assert.Equal(t, "oi", got.Prompt)
	assert.Equal(t, "be nice", got.SystemPrompt)
	assert.True(t, got.EnableSyncMode)
}

func TestClient_UpstreamErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"code":402,"message":"Insufficient credits"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: staticKey("k")})
	_, err := c.Complete(context.Background(), Request{Prompt: "x", Model: "any"})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusPaymentRequired, ue.StatusCode)
	assert.Equal(t, "Insufficient credits", ue.Message)
}

func TestClient_FailedPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"status":"failed","error":"model overloaded"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: staticKey("k")})
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "model overloaded", ue.Message)
}

func TestClient_EmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"status":"completed","outputs":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: staticKey("k")})
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestClient_MissingKey(t *testing.T) {
	c := NewClient(Config{APIKey: staticKey("")})
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
