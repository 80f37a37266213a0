package redact

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

func TestHuggingFaceDetector_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		var req nerRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "simple", req.Parameters.AggregationStrategy)
		assert.Equal(t, "Jane works at Acme", req.Inputs)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"entity_group":"PER","score":0.99,"word":"Jane","start":0,"end":4},
			{"entity":"B-ORG","score":0.97,"word":"Acme","start":14,"end":18},
			{"entity_group":"MISC","score":0.5,"word":"x"}
		]`))
	}))
	defer srv.Close()

	d := NewHuggingFaceDetector(srv.URL, "hf_test", time.Second)
	spans, err := d.Detect(context.Background(), "Jane works at Acme")
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Start: 0, End: 4, Label: "PER"},
		{Start: 14, End: 18, Label: "B-ORG"},
	}, spans)
}

func TestHuggingFaceDetector_NotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model dslim/bert-base-NER is currently loading","estimated_time":20}`))
	}))
	defer srv.Close()

	_, err := NewHuggingFaceDetector(srv.URL, "", time.Second).Detect(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDetectorNotReady))
}

func TestHuggingFaceDetector_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHuggingFaceDetector(srv.URL, "", time.Second).Detect(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDetectorNotReady))
	assert.Contains(t, err.Error(), "status 500")
}

func TestHuggingFaceDetector_EndToEndWithRedactor(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHuggingFaceDetector(srv.URL, "tok", time.Second, WithRateLimit(100, 1))
	res := NewRedactor(d, WithRetryBackoff(time.Millisecond)).Redact(context.Background(), "Jane: 123-45-6789")

	assert.Equal(t, 2, calls)
	assert.True(t, res.Entities.IsDegraded())
	assert.Equal(t, "Jane: <SSN>", res.Text)
	assert.Equal(t, 0, res.Stats["PER"])
	assert.Equal(t, 1, res.Stats["SSN"])
}
