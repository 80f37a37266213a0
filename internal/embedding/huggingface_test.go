package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHFEmbedder_FlatAndNested(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"flat", `[0.5, 0.25, 0.125]`},
		{"nested", `[[0.5, 0.25, 0.125]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer hf_x", r.Header.Get("Authorization"))
				var req map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "some text", req["inputs"])
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v, err := NewHFEmbedder(srv.URL, "hf_x", 3, time.Second).Embed(context.Background(), "some text")
			require.NoError(t, err)
			assert.Equal(t, []float32{0.5, 0.25, 0.125}, v)
		})
	}
}

func TestHFEmbedder_Statuses(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	e := NewHFEmbedder(srv.URL, "", 3, time.Second, WithHFRateLimit(50, 2))

	_, err := e.Embed(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrWarmingUp))

	status = http.StatusBadRequest
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrWarmingUp))
}

func TestHFEmbedder_WithClientDegradesOnBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"unexpected"}`))
	}))
	defer srv.Close()

	c := NewClient(NewHFEmbedder(srv.URL, "", 3, time.Second), 3)
	res := c.Embed(context.Background(), "x")
	assert.True(t, res.IsDegraded())
	assert.Equal(t, []float32{0, 0, 0}, res.Value)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "key", "m", 2)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestOpenAIEmbedder_RequestsConfiguredDimensions(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8,0]}]}`))
	}))
	defer srv.Close()

	c := NewClient(NewOpenAIEmbedder(srv.URL, "key", "text-embedding-3-small", 3), 3)
	res := c.Embed(context.Background(), "hello")
	require.False(t, res.IsDegraded(), res.Reason)
	assert.Equal(t, []float32{0.6, 0.8, 0}, res.Value)
	assert.Equal(t, "text-embedding-3-small", body["model"])
	assert.Equal(t, float64(3), body["dimensions"])
}

func TestOpenAIEmbedder_AdaOmitsDimensions(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "key", "text-embedding-ada-002", 2).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotContains(t, body, "dimensions")
}

func TestOpenAIEmbedder_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "key", "m", 2).Embed(context.Background(), "a")
	assert.True(t, errors.Is(err, ErrWarmingUp))
}
