package dispatch

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/database/testutil"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/storage/local"
	"github.com/kbukum/scribegate/transcription"
	"github.com/kbukum/scribegate/transcription/formatter"
)

type published struct {
	topic   string
	key     string
	value   interface{}
	headers map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, topic, key string, v interface{}, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, value: v, headers: headers})
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	result    *transcription.Result
	err       error
	available bool
	block     chan struct{}
	got       transcription.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(context.Context) bool { return p.available }

func (p *fakeProvider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	p.mu.Lock()
	p.got = req
	p.mu.Unlock()
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.result, p.err
}

func (p *fakeProvider) request() transcription.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.got
}

func fptr(v float64) *float64 { return &v }

func inf() float64 { return math.Inf(1) }

func sampleResult() transcription.Result {
	return transcription.Result{
		Language: "en",
		Duration: fptr(2.5),
		Segments: []transcription.Segment{
			{Text: "hello there", Start: 0, End: 1.2, Speaker: transcription.SpeakerName("SPEAKER_00")},
			{Text: "general kenobi", Start: 1.3, End: 2.5, Speaker: transcription.SpeakerName("SPEAKER_01")},
		},
	}
}

func newJobs(t *testing.T) *jobs.Service {
	t.Helper()
	return jobs.NewService(jobs.NewRepository(testutil.NewDB(t)), nil, logger.Nop())
}

func submit(t *testing.T, svc *jobs.Service, id string) *jobs.Job {
	t.Helper()
	opts := transcription.DefaultOptions()
	opts.Model = "large-v2"
	job := &jobs.Job{
		Model:       database.Model{ID: id},
		UserID:      "u1",
		ModelName:   "large-v2",
		Options:     database.NewJSON(opts),
		AudioKey:    storage.AudioKey("u1", id),
		AudioSHA256: "abc123",
		ContentType: "audio/wav",
	}
	require.NoError(t, svc.Submit(context.Background(), job))
	return job
}

func newQueueDispatcher(t *testing.T, svc JobService, pub Publisher) *Dispatcher {
	t.Helper()
	d, err := New(Config{}, svc, logger.Nop(), WithPublisher(pub))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })
	return d
}

func waitForStatus(t *testing.T, svc *jobs.Service, id string, want jobs.Status) *jobs.Job {
	t.Helper()
	var job *jobs.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Get(context.Background(), id)
		return err == nil && job.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Config{}, nil, logger.Nop())
	assert.Error(t, err)

	_, err = New(Config{Mode: ModeInline}, nil, logger.Nop())
	assert.Error(t, err)

	_, err = New(Config{Mode: "carrier-pigeon"}, nil, logger.Nop())
	assert.Error(t, err)
}

func TestDispatch_QueuePublishesTask(t *testing.T) {
	svc := newJobs(t)
	pub := &fakePublisher{}
	d := newQueueDispatcher(t, svc, pub)
	job := submit(t, svc, "req-1")

	require.NoError(t, d.Dispatch(context.Background(), job))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "transcription.tasks", msg.topic)
	assert.Equal(t, "req-1", msg.key)
	assert.Equal(t, "req-1", msg.headers[kafka.HeaderRequestID])
	assert.Equal(t, MessageTypeTask, msg.headers[kafka.HeaderMessageType])

	task, ok := msg.value.(transcription.Task)
	require.True(t, ok)
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, job.AudioKey, task.AudioKey)
	assert.Equal(t, "large-v2", task.Options.Model)

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, got.Status)
}

func TestDispatch_QueuePublishFailureFailsJob(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{err: errors.New("broker down")})
	job := submit(t, svc, "req-1")

	err := d.Dispatch(context.Background(), job)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeServiceUnavailable, appErr.Code)
	assert.Equal(t, "req-1", appErr.Details[apperrors.DetailRequestID])
	assert.Equal(t, CodeDispatch, appErr.Details[apperrors.DetailResultCode])

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, CodeDispatch, got.ErrorCode)
	require.NotNil(t, got.Response())
	require.NotNil(t, got.Response().Metadata.Error)
	assert.Equal(t, CodeDispatch, got.Response().Metadata.Error.Code)
}

func TestHandleResult_CompletesJob(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")

	err := d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID:    "req-1",
		Status:       transcription.OutcomeCompleted,
		Result:       sampleResult(),
		Translations: map[string]string{"es": "hola"},
		Summary:      "A greeting.",
		SummaryType:  "short",
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
	require.NotNil(t, got.Duration)
	assert.InDelta(t, 2.5, *got.Duration, 1e-9)

	resp := got.Response()
	require.NotNil(t, resp)
	assert.Equal(t, "req-1", resp.Metadata.RequestID)
	assert.Equal(t, "abc123", resp.Metadata.SHA256)
	assert.Equal(t, "hola", resp.Metadata.Translations["es"])
	require.NotNil(t, resp.Results.Summary)
	assert.Equal(t, "A greeting.", resp.Results.Summary.Text)
	assert.Contains(t, resp.Transcript(), "Hello there")
}

func TestHandleResult_WorkerFailure(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")

	err := d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID: "req-1",
		Status:    transcription.OutcomeFailed,
		Error:     &transcription.ResultError{Code: "audio_decode_error", Message: "Unsupported codec."},
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "audio_decode_error", got.ErrorCode)
	assert.Equal(t, "Unsupported codec.", got.ErrorMessage)
}

func TestHandleResult_FailureDefaultsAndUnknownStatus(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")
	submit(t, svc, "req-2")

	require.NoError(t, d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID: "req-1", Status: transcription.OutcomeFailed,
	}))
	require.NoError(t, d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID: "req-2", Status: "exploded",
	}))

	for _, id := range []string{"req-1", "req-2"} {
		got, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusFailed, got.Status, id)
		assert.Equal(t, formatter.CodeProcessingError, got.ErrorCode, id)
	}
}

func TestHandleResult_FormattingFailure(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")

	res := sampleResult()
	res.Segments[0].End = inf()
	require.NoError(t, d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID: "req-1", Status: transcription.OutcomeCompleted, Result: res,
	}))

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, formatter.CodeFormattingError, got.ErrorCode)
	assert.Contains(t, got.ErrorMessage, "req-1")
	require.NotNil(t, got.Response())
	require.NotNil(t, got.Response().Metadata.Error)
	assert.Equal(t, formatter.CodeFormattingError, got.Response().Metadata.Error.Code)
	assert.Equal(t, got.ErrorMessage, got.Response().Metadata.Error.Message)
}

func TestHandleResult_IgnoresFinishedJob(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")

	ok := transcription.ResultMessage{RequestID: "req-1", Status: transcription.OutcomeCompleted, Result: sampleResult()}
	require.NoError(t, d.HandleResult(context.Background(), ok))
	require.NoError(t, d.HandleResult(context.Background(), transcription.ResultMessage{
		RequestID: "req-1", Status: transcription.OutcomeFailed,
	}))

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
}

func TestHandleResult_UnknownJob(t *testing.T) {
	d := newQueueDispatcher(t, newJobs(t), &fakePublisher{})

	err := d.HandleResult(context.Background(), transcription.ResultMessage{RequestID: "nope", Status: transcription.OutcomeCompleted})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestHandleMessage(t *testing.T) {
	svc := newJobs(t)
	d := newQueueDispatcher(t, svc, &fakePublisher{})
	submit(t, svc, "req-1")

	msg, err := kafka.NewJSONMessage("transcription.results", "req-1", transcription.ResultMessage{
		Status: transcription.OutcomeCompleted,
		Result: sampleResult(),
	})
	require.NoError(t, err)
	require.NoError(t, d.HandleMessage(context.Background(), msg))
	waitForStatus(t, svc, "req-1", jobs.StatusCompleted)

	err = d.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	err = d.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"status":"completed"}`)})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeMissingField, appErr.Code)
}

func newInline(t *testing.T, cfg Config, prov *fakeProvider) (*Dispatcher, *jobs.Service, storage.Storage) {
	t.Helper()
	store, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	svc := newJobs(t)

	cfg.Mode = ModeInline
	d, err := New(cfg, svc, logger.Nop(), WithProvider(prov, store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop(context.Background()) })
	return d, svc, store
}

func putAudio(t *testing.T, store storage.Storage, job *jobs.Job) {
	t.Helper()
	audio := []byte("RIFF....WAVE")
	require.NoError(t, store.Put(context.Background(), job.AudioKey, bytes.NewReader(audio), int64(len(audio)), "audio/wav"))
}

func TestDispatch_InlineCompletes(t *testing.T) {
	res := sampleResult()
	prov := &fakeProvider{result: &res, available: true}
	d, svc, store := newInline(t, Config{}, prov)
	job := submit(t, svc, "req-1")
	putAudio(t, store, job)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, job))
	cancel()

	got := waitForStatus(t, svc, "req-1", jobs.StatusCompleted)
	assert.NotNil(t, got.StartedAt)
	req := prov.request()
	assert.Equal(t, []byte("RIFF....WAVE"), req.Audio)
	assert.Equal(t, "large-v2", req.Model)
	assert.True(t, req.Diarize)
}

func TestDispatch_InlineProviderError(t *testing.T) {
	prov := &fakeProvider{err: apperrors.ServiceUnavailable("whisper"), available: false}
	d, svc, store := newInline(t, Config{}, prov)
	job := submit(t, svc, "req-1")
	putAudio(t, store, job)

	require.NoError(t, d.Dispatch(context.Background(), job))

	got := waitForStatus(t, svc, "req-1", jobs.StatusFailed)
	assert.Equal(t, CodeTranscription, got.ErrorCode)
	assert.Equal(t, component.StatusDegraded, d.Health(context.Background()).Status)
}

func TestDispatch_InlineMissingAudio(t *testing.T) {
	res := sampleResult()
	d, svc, _ := newInline(t, Config{}, &fakeProvider{result: &res})
	job := submit(t, svc, "req-1")

	require.NoError(t, d.Dispatch(context.Background(), job))

	got := waitForStatus(t, svc, "req-1", jobs.StatusFailed)
	assert.Equal(t, CodeTranscription, got.ErrorCode)
}

func TestDispatch_InlineCapacity(t *testing.T) {
	res := sampleResult()
	prov := &fakeProvider{result: &res, block: make(chan struct{})}
	d, svc, store := newInline(t, Config{InlineConcurrency: 1, InlineMaxWait: "20ms"}, prov)

	first := submit(t, svc, "req-1")
	second := submit(t, svc, "req-2")
	putAudio(t, store, first)
	putAudio(t, store, second)

	require.NoError(t, d.Dispatch(context.Background(), first))
	waitForStatus(t, svc, "req-1", jobs.StatusProcessing)
	require.NoError(t, d.Dispatch(context.Background(), second))

	got := waitForStatus(t, svc, "req-2", jobs.StatusFailed)
	assert.Equal(t, CodeCapacityExceeded, got.ErrorCode)

	close(prov.block)
	waitForStatus(t, svc, "req-1", jobs.StatusCompleted)
}

func TestStop_CancelsInlineWork(t *testing.T) {
	res := sampleResult()
	prov := &fakeProvider{result: &res, block: make(chan struct{})}
	d, svc, store := newInline(t, Config{}, prov)
	job := submit(t, svc, "req-1")
	putAudio(t, store, job)

	require.NoError(t, d.Dispatch(context.Background(), job))
	waitForStatus(t, svc, "req-1", jobs.StatusProcessing)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	got, err := svc.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
}

func TestDescribeAndHealth(t *testing.T) {
	d := newQueueDispatcher(t, newJobs(t), &fakePublisher{})
	assert.Equal(t, "dispatch", d.Name())
	assert.Equal(t, ModeQueue, d.Mode())
	assert.Contains(t, d.Describe().Details, "tasks=transcription.tasks")
	assert.Equal(t, component.StatusHealthy, d.Health(context.Background()).Status)
}
