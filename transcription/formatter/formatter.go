package formatter

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/transcription"
)

// Options controls which formatting features apply to a call.
type Options struct {
	Punctuate   bool
	SmartFormat bool
	Utterances  bool
	// Diarize is accepted for compatibility. Speaker fields are emitted
	// whenever segments carry speaker data, regardless of this flag.
	Diarize bool
	// Duration overrides the duration reported in the raw result.
	Duration *float64
}

// DefaultOptions enables every formatting feature.
func DefaultOptions() Options {
	return Options{Punctuate: true, SmartFormat: true, Utterances: true, Diarize: true}
}

// OptionsFrom maps listen options onto formatting options.
func OptionsFrom(o transcription.Options) Options {
	return Options{
		Punctuate:   o.Punctuate,
		SmartFormat: o.SmartFormat,
		Utterances:  o.Utterances,
		Diarize:     o.Diarize,
	}
}

// FormattingError reports that a raw result could not be turned into a
// response.
type FormattingError struct {
	RequestID string
	Cause     error
}

func (e *FormattingError) Error() string {
	return fmt.Sprintf("format result for request %s: %v", e.RequestID, e.Cause)
}

func (e *FormattingError) Unwrap() error { return e.Cause }

// Formatter builds listen responses. The zero value is not usable; call New.
type Formatter struct {
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLogger sets the logger used for enrichment warnings.
func WithLogger(l *logger.Logger) Option {
	return func(f *Formatter) { f.log = l }
}

// WithClock overrides the time source for created and generated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// WithIDGenerator overrides utterance id generation.
func WithIDGenerator(gen func() string) Option {
	return func(f *Formatter) { f.newID = gen }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(f)
	}
	if f.log == nil {
		f.log = logger.WithComponent("formatter")
	}
	return f
}

// Format converts a raw result into a response. Any failure, including a
// panic while assembling, is returned as a *FormattingError.
func (f *Formatter) Format(result transcription.Result, requestID, model string, opts Options) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &FormattingError{RequestID: requestID, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	resp, err = f.format(result, requestID, model, opts)
	if err != nil {
		return nil, &FormattingError{RequestID: requestID, Cause: err}
	}
	return resp, nil
}

func (f *Formatter) format(result transcription.Result, requestID, model string, opts Options) (*Response, error) {
	if model == "" {
		model = DefaultModel
	}
	if err := checkFinite(result.Segments); err != nil {
		return nil, err
	}

	duration := 0.0
	switch {
	case opts.Duration != nil:
		duration = *opts.Duration
	case result.Duration != nil:
		duration = *result.Duration
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("duration is not finite")
	}

	metadata := buildMetadata(metadataInput{
		requestID: requestID,
		model:     model,
		language:  result.Language,
		duration:  duration,
		audio:     result.Audio,
		now:       f.now(),
	})

	if len(result.Segments) == 0 {
		resp := &Response{
			Metadata: metadata,
			Results:  Results{Channels: []Channel{{Alternatives: []Alternative{emptyAlternative()}}}},
		}
		if opts.Utterances {
			resp.Results.Utterances = []Utterance{}
		}
		return resp, nil
	}

	transcript, words, confidence := AssembleTranscript(result.Segments)
	if opts.SmartFormat {
		transcript = ApplySmartFormatting(transcript)
	}
	if opts.Punctuate {
		transcript = ApplyPunctuation(transcript)
	}

	alternative := Alternative{
		Transcript: transcript,
		Confidence: round3(confidence),
		Words:      words,
		Paragraphs: Paragraphs{
			Transcript: transcript,
			Paragraphs: GroupParagraphs(result.Segments),
		},
	}

	resp := &Response{
		Metadata: metadata,
		Results:  Results{Channels: []Channel{{Alternatives: []Alternative{alternative}}}},
	}
	if opts.Utterances {
		resp.Results.Utterances = f.BuildUtterances(result.Segments)
	}
	return resp, nil
}

func emptyAlternative() Alternative {
	return Alternative{
		Transcript: "",
		Confidence: 0,
		Words:      []Word{},
		Paragraphs: Paragraphs{Transcript: "", Paragraphs: []Paragraph{}},
	}
}

// checkFinite rejects timing values that cannot be encoded as JSON numbers.
func checkFinite(segments []transcription.Segment) error {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
	badPtr := func(v *float64) bool { return v != nil && bad(*v) }
	for i, seg := range segments {
		if bad(seg.Start) || bad(seg.End) {
			return fmt.Errorf("segment %d: timestamp is not finite", i)
		}
		for j, w := range seg.Words {
			if badPtr(w.Start) || badPtr(w.End) || badPtr(w.Score) || badPtr(w.Confidence) {
				return fmt.Errorf("segment %d word %d: value is not finite", i, j)
			}
		}
	}
	return nil
}
