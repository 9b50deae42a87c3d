package formatter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultSummaryType is the summary type used when none is given.
const DefaultSummaryType = "abstractive"

// SummaryConfidence is the fixed confidence of results.summary.
const SummaryConfidence = 0.8

var errNoBaseAlternative = errors.New("response has no base alternative")

// AddTranslation appends one alternative per language to the first channel
// and merges the texts into metadata.translations. The base alternative is
// never replaced. On failure the input is returned unchanged.
func (f *Formatter) AddTranslation(resp *Response, translations map[string]string) *Response {
	if len(translations) == 0 {
		return resp
	}
	out, err := f.enrich(resp, func(r *Response) error {
		if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
			return errNoBaseAlternative
		}
		base := r.Results.Channels[0].Alternatives[0]
		if r.Metadata.Translations == nil {
			r.Metadata.Translations = make(map[string]string, len(translations))
		}

		languages := make([]string, 0, len(translations))
		for lang := range translations {
			languages = append(languages, lang)
		}
		sort.Strings(languages)

		duration := r.Metadata.Duration
		for _, lang := range languages {
			text := translations[lang]
			r.Metadata.Translations[lang] = text
			r.Results.Channels[0].Alternatives = append(r.Results.Channels[0].Alternatives, Alternative{
				Transcript: text,
				Confidence: base.Confidence,
				Words:      []Word{},
				Language:   lang,
				Paragraphs: Paragraphs{
					Transcript: text,
					Paragraphs: []Paragraph{{
						Sentences: []Sentence{{Text: text, Start: 0, End: duration}},
						NumWords:  len(strings.Fields(text)),
						Start:     0,
						End:       duration,
					}},
				},
			})
		}
		return nil
	})
	if err != nil {
		f.log.Warn("Failed to add translation data", map[string]interface{}{
			"error":     err.Error(),
			"languages": len(translations),
		})
		return resp
	}
	return out
}

// AddSummary records the summary in metadata.summary, replacing any earlier
// one, and in results.summary only when that is still empty. An empty
// summaryType means DefaultSummaryType. On failure the input is returned
// unchanged.
func (f *Formatter) AddSummary(resp *Response, text, summaryType string) *Response {
	if summaryType == "" {
		summaryType = DefaultSummaryType
	}
	out, err := f.enrich(resp, func(r *Response) error {
		r.Metadata.Summary = &MetadataSummary{
			Text:        text,
			Type:        summaryType,
			GeneratedAt: formatCreated(f.now()),
		}
		if r.Results.Summary == nil {
			r.Results.Summary = &ResultSummary{
				Text:       text,
				Type:       summaryType,
				Confidence: SummaryConfidence,
			}
		}
		return nil
	})
	if err != nil {
		f.log.Warn("Failed to add summary data", map[string]interface{}{
			"error": err.Error(),
			"type":  summaryType,
		})
		return resp
	}
	return out
}

// enrich applies fn to a copy of resp. The copy is returned only if fn
// succeeds.
func (f *Formatter) enrich(resp *Response, fn func(*Response) error) (out *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if resp == nil {
		return nil, errors.New("response is nil")
	}
	clone, err := resp.Clone()
	if err != nil {
		return nil, err
	}
	if err := fn(clone); err != nil {
		return nil, err
	}
	return clone, nil
}
