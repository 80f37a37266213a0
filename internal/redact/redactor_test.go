package redact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	spans []Span
	errs  []error
	calls int
}

func (f *fakeDetector) Detect(_ context.Context, _ string) ([]Span, error) {
	f.calls++
	if f.calls <= len(f.errs) && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return f.spans, nil
}

func newTestRedactor(d EntityDetector, opts ...Option) *Redactor {
	return NewRedactor(d, append([]Option{WithRetryBackoff(0)}, opts...)...)
}

func TestRedact_NoPIIUnchanged(t *testing.T) {
	r := newTestRedactor(&fakeDetector{})
	text := "The quarterly report covers revenue and hiring plans."
	res := r.Redact(context.Background(), text)

	assert.Equal(t, text, res.Text)
	assert.False(t, res.Entities.IsDegraded())
	for _, c := range models.TrackedCategories {
		assert.Equal(t, 0, res.Stats[c], c)
	}
}

func TestRedact_EmailAndSSN(t *testing.T) {
	r := newTestRedactor(&fakeDetector{})
	res := r.Redact(context.Background(), "Email me at a@b.com, SSN 123-45-6789")

	assert.Contains(t, res.Text, "<EMAIL>")
	assert.Contains(t, res.Text, "<SSN>")
	assert.Equal(t, "Email me at <EMAIL>, SSN <SSN>", res.Text)
	assert.Equal(t, 1, res.Stats[models.CategoryEmail])
	assert.Equal(t, 1, res.Stats[models.CategorySSN])
	assert.Equal(t, 110, risk.Score(res.Stats))
}

func TestRedact_TruncatesToCharLimit(t *testing.T) {
	r := newTestRedactor(&fakeDetector{})
	res := r.Redact(context.Background(), strings.Repeat("a", 2500))
	assert.Len(t, []rune(res.Text), DefaultCharLimit)

	r = newTestRedactor(&fakeDetector{}, WithCharLimit(10))
	res = r.Redact(context.Background(), "ünïcödé text that is long")
	assert.Equal(t, "ünïcödé te", res.Text)
}

func TestRedact_EntitySpans(t *testing.T) {
	d := &fakeDetector{spans: []Span{
		{Start: 0, End: 8, Label: "PER"},
		{Start: 18, End: 22, Label: "B-ORG"},
		{Start: 26, End: 31, Label: "LOCATION"},
		{Start: 9, End: 14, Label: "MISC"},
	}}
	r := newTestRedactor(d)
	res := r.Redact(context.Background(), "Jane Doe works at Acme in Paris")

	assert.Equal(t, "<PER> works at <ORG> in <LOC>", res.Text)
	assert.Equal(t, 1, res.Stats[models.CategoryPerson])
	assert.Equal(t, 1, res.Stats[models.CategoryOrganization])
	assert.Equal(t, 1, res.Stats[models.CategoryLocation])
	require.False(t, res.Entities.IsDegraded())
	assert.Equal(t, 3, res.Entities.Value)
}

func TestRedact_RuneOffsets(t *testing.T) {
	d := &fakeDetector{spans: []Span{{Start: 0, End: 11, Label: "PER"}}}
	res := newTestRedactor(d).Redact(context.Background(), "José García lives here")
	assert.Equal(t, "<PER> lives here", res.Text)
}

func TestRedact_OverlappingSpansResolved(t *testing.T) {
	d := &fakeDetector{spans: []Span{
		{Start: 5, End: 8, Label: "PER"},
		{Start: 0, End: 4, Label: "ORG"},
		{Start: 0, End: 8, Label: "PER"},
	}}
	res := newTestRedactor(d).Redact(context.Background(), "Jane Doe signed")

	assert.Equal(t, "<PER> signed", res.Text)
	assert.Equal(t, 1, res.Stats[models.CategoryPerson])
	assert.Equal(t, 0, res.Stats[models.CategoryOrganization])
}

func TestRedact_SpanOrderIndependent(t *testing.T) {
	text := "Jane Doe works at Acme in Paris"
	a := []Span{{0, 8, "PER"}, {18, 22, "ORG"}, {26, 31, "LOC"}}
	b := []Span{{26, 31, "LOC"}, {0, 8, "PER"}, {18, 22, "ORG"}}
	ra := newTestRedactor(&fakeDetector{spans: a}).Redact(context.Background(), text)
	rb := newTestRedactor(&fakeDetector{spans: b}).Redact(context.Background(), text)
	assert.Equal(t, ra.Text, rb.Text)
	assert.Equal(t, ra.Stats, rb.Stats)
}

func TestRedact_DetectorNotReadyRetriesOnce(t *testing.T) {
	notReady := fmt.Errorf("huggingface ner: %w", ErrDetectorNotReady)
	d := &fakeDetector{
		spans: []Span{{Start: 0, End: 4, Label: "PER"}},
		errs:  []error{notReady, notReady},
	}
	res := newTestRedactor(d).Redact(context.Background(), "Jane wrote to a@b.com")

	assert.Equal(t, 2, d.calls)
	assert.True(t, res.Entities.IsDegraded())
	assert.Equal(t, 0, res.Stats[models.CategoryPerson])
	assert.Equal(t, 1, res.Stats[models.CategoryEmail])
	assert.Equal(t, "Jane wrote to <EMAIL>", res.Text)
}

func TestRedact_DetectorRecoversOnRetry(t *testing.T) {
	d := &fakeDetector{
		spans: []Span{{Start: 0, End: 4, Label: "PER"}},
		errs:  []error{ErrDetectorNotReady},
	}
	res := newTestRedactor(d).Redact(context.Background(), "Jane wrote")

	assert.Equal(t, 2, d.calls)
	assert.False(t, res.Entities.IsDegraded())
	assert.Equal(t, "<PER> wrote", res.Text)
}

func TestRedact_DetectorErrorNotRetried(t *testing.T) {
	d := &fakeDetector{errs: []error{errors.New("connection refused")}}
	res := newTestRedactor(d).Redact(context.Background(), "SSN 123-45-6789")

	assert.Equal(t, 1, d.calls)
	assert.True(t, res.Entities.IsDegraded())
	assert.Contains(t, res.Entities.Reason, "connection refused")
	assert.Equal(t, "SSN <SSN>", res.Text)
}

func TestRedact_NilDetectorDegrades(t *testing.T) {
	res := NewRedactor(nil).Redact(context.Background(), "hello")
	assert.True(t, res.Entities.IsDegraded())
	assert.Equal(t, "hello", res.Text)
}

func TestRedact_Patterns(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		stats map[string]int
	}{
		{
			name:  "email is not also a url",
			in:    "write to jane@corp.io today",
			want:  "write to <EMAIL> today",
			stats: map[string]int{"EMAIL": 1, "URL": 0},
		},
		{
			name:  "profile and http urls",
			in:    "see linkedin.com/in/jane-doe and https://example.com/a.",
			want:  "see <URL> and <URL>.",
			stats: map[string]int{"URL": 2},
		},
		{
			name:  "generic domain path",
			in:    "portfolio at janedoe.dev/work, thanks",
			want:  "portfolio at <URL>, thanks",
			stats: map[string]int{"URL": 1},
		},
		{
			name:  "framework names are not urls",
			in:    "built with Node.js/React and Vue.js/Nuxt",
			want:  "built with Node.js/React and Vue.js/Nuxt",
			stats: map[string]int{"URL": 0},
		},
		{
			name:  "bare domain with known tld and www form",
			in:    "see example.org/team/jane or www.jane.design/cv",
			want:  "see <URL> or <URL>",
			stats: map[string]int{"URL": 2},
		},
		{
			name:  "credit card with separators",
			in:    "card 4111 1111 1111 1111 on file",
			want:  "card <CREDIT_CARD> on file",
			stats: map[string]int{"CREDIT_CARD": 1},
		},
		{
			name:  "ssn before credit card",
			in:    "ids 123-45-6789 and 987-65-4321",
			want:  "ids <SSN> and <SSN>",
			stats: map[string]int{"SSN": 2, "CREDIT_CARD": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestRedactor(&fakeDetector{}).Redact(context.Background(), tt.in)
			assert.Equal(t, tt.want, res.Text)
			for k, v := range tt.stats {
				assert.Equal(t, v, res.Stats[k], k)
			}
		})
	}
}

func TestRedact_PhonePattern(t *testing.T) {
	text := "call (555) 123-4567 now"

	off := newTestRedactor(&fakeDetector{}).Redact(context.Background(), text)
	assert.Equal(t, text, off.Text)
	_, tracked := off.Stats[models.CategoryPhone]
	assert.False(t, tracked)

	on := newTestRedactor(&fakeDetector{}, WithPhonePattern(true)).Redact(context.Background(), text)
	assert.Equal(t, "call <PHONE> now", on.Text)
	assert.Equal(t, 1, on.Stats[models.CategoryPhone])
	assert.Equal(t, 10, risk.Score(on.Stats))
}
