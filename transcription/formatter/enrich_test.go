package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatted(t *testing.T, f *Formatter) *Response {
	t.Helper()
	opts := DefaultOptions()
	opts.Duration = f64(1.5)
	resp, err := f.Format(helloWorldResult(), "req-e", "large-v3", opts)
	require.NoError(t, err)
	return resp
}

func TestAddTranslation(t *testing.T) {
	f := newTestFormatter()
	resp := formatted(t, f)

	out := f.AddTranslation(resp, map[string]string{"fr": "Bonjour le monde.", "de": "Hallo Welt."})
	require.NotSame(t, resp, out)

	assert.Equal(t, map[string]string{"fr": "Bonjour le monde.", "de": "Hallo Welt."}, out.Metadata.Translations)

	alts := out.Results.Channels[0].Alternatives
	require.Len(t, alts, 3)
	assert.Equal(t, "Hello world.", alts[0].Transcript)
	assert.Equal(t, "de", alts[1].Language)
	assert.Equal(t, "fr", alts[2].Language)

	fr := alts[2]
	assert.Equal(t, "Bonjour le monde.", fr.Transcript)
	assert.Equal(t, alts[0].Confidence, fr.Confidence)
	assert.Empty(t, fr.Words)
	require.Len(t, fr.Paragraphs.Paragraphs, 1)
	p := fr.Paragraphs.Paragraphs[0]
	assert.Equal(t, 0.0, p.Start)
	assert.Equal(t, 1.5, p.End)
	assert.Equal(t, 3, p.NumWords)
	assert.Equal(t, []Sentence{{Text: "Bonjour le monde.", Start: 0, End: 1.5}}, p.Sentences)

	// input is untouched
	assert.Len(t, resp.Results.Channels[0].Alternatives, 1)
	assert.Nil(t, resp.Metadata.Translations)
	assert.True(t, Validate(out))
}

func TestAddTranslationMerges(t *testing.T) {
	f := newTestFormatter()
	out := f.AddTranslation(formatted(t, f), map[string]string{"es": "Hola mundo."})
	out = f.AddTranslation(out, map[string]string{"it": "Ciao mondo."})

	assert.Equal(t, map[string]string{"es": "Hola mundo.", "it": "Ciao mondo."}, out.Metadata.Translations)
	assert.Len(t, out.Results.Channels[0].Alternatives, 3)
}

func TestAddTranslationFailureReturnsInput(t *testing.T) {
	f := newTestFormatter()

	broken := &Response{Metadata: Metadata{RequestID: "x"}}
	assert.Same(t, broken, f.AddTranslation(broken, map[string]string{"fr": "Salut"}))

	assert.Nil(t, f.AddTranslation(nil, map[string]string{"fr": "Salut"}))

	resp := formatted(t, f)
	assert.Same(t, resp, f.AddTranslation(resp, nil))
}

func TestAddSummary(t *testing.T) {
	f := newTestFormatter()
	out := f.AddSummary(formatted(t, f), "A greeting.", "")

	require.NotNil(t, out.Metadata.Summary)
	assert.Equal(t, MetadataSummary{Text: "A greeting.", Type: DefaultSummaryType, GeneratedAt: "2026-03-14T09:26:53.589793Z"}, *out.Metadata.Summary)
	require.NotNil(t, out.Results.Summary)
	assert.Equal(t, ResultSummary{Text: "A greeting.", Type: DefaultSummaryType, Confidence: SummaryConfidence}, *out.Results.Summary)
	assert.True(t, Validate(out))
}

func TestAddSummaryTwice(t *testing.T) {
	now := fixedNow
	f := New(WithClock(func() time.Time { return now }))

	first := f.AddSummary(formatted(t, f), "first", "abstractive")
	now = now.Add(time.Minute)
	second := f.AddSummary(first, "second", "extractive")

	assert.Equal(t, "second", second.Metadata.Summary.Text)
	assert.Equal(t, "extractive", second.Metadata.Summary.Type)
	assert.Equal(t, "2026-03-14T09:27:53.589793Z", second.Metadata.Summary.GeneratedAt)

	assert.Equal(t, "first", second.Results.Summary.Text)
	assert.Equal(t, "abstractive", second.Results.Summary.Type)

	assert.Equal(t, "first", first.Metadata.Summary.Text)
}

func TestAddSummaryNil(t *testing.T) {
	assert.Nil(t, newTestFormatter().AddSummary(nil, "x", ""))
}
