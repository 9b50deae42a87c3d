package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kbukum/scribegate/component"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/observability"
	"github.com/kbukum/scribegate/resilience"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/transcription"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// MessageTypeTask marks task messages on the tasks topic.
const MessageTypeTask = "transcription.task"

const recordTimeout = 5 * time.Second

// JobService is the subset of *jobs.Service used by dispatch.
type JobService interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Start(ctx context.Context, id string) (*jobs.Job, error)
	Complete(ctx context.Context, id string, resp *formatter.Response) (*jobs.Job, error)
	Fail(ctx context.Context, id, code, message string, resp *formatter.Response) (*jobs.Job, error)
}

// Publisher publishes JSON messages; *producer.Producer satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error
}

// Dispatcher hands jobs to a backend and records their results.
type Dispatcher struct {
	cfg       Config
	jobs      JobService
	publisher Publisher
	provider  transcription.Provider
	audio     storage.Storage
	bulkhead  *resilience.Bulkhead
	formatter *formatter.Formatter
	metrics   *observability.Metrics
	log       *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ component.Component = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher sets the task publisher used in queue mode.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithProvider sets the transcription backend and the audio store it
// reads from in inline mode.
func WithProvider(p transcription.Provider, audio storage.Storage) Option {
	return func(d *Dispatcher) {
		d.provider = p
		d.audio = audio
	}
}

// WithFormatter overrides the response formatter.
func WithFormatter(f *formatter.Formatter) Option {
	return func(d *Dispatcher) { d.formatter = f }
}

// WithMetrics records job and formatter metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher. Queue mode needs WithPublisher and inline mode
// needs WithProvider.
func New(cfg Config, svc JobService, log *logger.Logger, opts ...Option) (*Dispatcher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{cfg: cfg, jobs: svc, log: log.WithComponent("dispatch"), baseCtx: ctx, cancel: cancel}
	for _, opt := range opts {
		opt(d)
	}
	if d.formatter == nil {
		d.formatter = formatter.New(formatter.WithLogger(log))
	}

	switch cfg.Mode {
	case ModeQueue:
		if d.publisher == nil {
			cancel()
			return nil, fmt.Errorf("dispatch: queue mode requires a publisher")
		}
	case ModeInline:
		if d.provider == nil || d.audio == nil {
			cancel()
			return nil, fmt.Errorf("dispatch: inline mode requires a provider and audio storage")
		}
		d.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "inline-transcription",
			MaxConcurrent: cfg.InlineConcurrency,
			MaxWait:       parse(cfg.InlineMaxWait, 30*time.Second),
		})
	}
	return d, nil
}

// Mode returns the configured dispatch mode.
func (d *Dispatcher) Mode() string { return d.cfg.Mode }

// Dispatch hands a queued job to the backend. In queue mode the task is
// published before Dispatch returns, and a publish failure fails the job.
// In inline mode transcription runs in the background.
func (d *Dispatcher) Dispatch(ctx context.Context, job *jobs.Job) error {
	task := transcription.Task{
		RequestID:   job.ID,
		UserID:      job.UserID,
		AudioKey:    job.AudioKey,
		ContentType: job.ContentType,
		Options:     job.Options.Data,
	}

	if d.cfg.Mode == ModeInline {
		d.metrics.RecordJobSubmitted(ctx, job.ModelName, ModeInline)
		d.wg.Add(1)
		bg, cancel := d.detach(ctx)
		go func() {
			defer d.wg.Done()
			defer cancel()
			d.runInline(bg, task)
		}()
		return nil
	}

	headers := map[string]string{
		kafka.HeaderRequestID:   job.ID,
		kafka.HeaderMessageType: MessageTypeTask,
	}
	if err := d.publisher.PublishJSON(ctx, d.cfg.TasksTopic, job.ID, task, headers); err != nil {
		d.log.WithContext(ctx).Error("Task publish failed", map[string]interface{}{
			"request_id": job.ID,
			"topic":      d.cfg.TasksTopic,
			"error":      err.Error(),
		})
		d.fail(ctx, job.ID, queueFailure)
		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			appErr = apperrors.ServiceUnavailable("message queue").WithCause(err)
		}
		return appErr.ForJob(job.ID, queueFailure.code)
	}
	d.metrics.RecordJobSubmitted(ctx, job.ModelName, ModeQueue)
	return nil
}

// detach keeps the request id and trace of ctx but not its cancellation,
// tying background work to the dispatcher lifetime instead.
func (d *Dispatcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(d.baseCtx, cancel)
	return out, func() {
		stop()
		cancel()
	}
}

func (d *Dispatcher) runInline(ctx context.Context, task transcription.Task) {
	ctx, cancel := context.WithTimeout(ctx, parse(d.cfg.InlineTimeout, 10*time.Minute))
	defer cancel()

	err := d.bulkhead.Execute(ctx, func() error {
		if _, err := d.jobs.Start(ctx, task.RequestID); err != nil {
			return err
		}
		res, err := d.transcribe(ctx, task)
		if err != nil {
			return err
		}
		return d.HandleResult(ctx, transcription.ResultMessage{
			RequestID: task.RequestID,
			Status:    transcription.OutcomeCompleted,
			Result:    *res,
		})
	})
	if err == nil {
		return
	}

	f := failureFor(err)
	fields := map[string]interface{}{"code": f.code, "error": err.Error()}
	if log := d.log.ForJob(ctx, task.RequestID); resilience.IsRejection(err) {
		log.Warn("Inline transcription rejected", fields)
	} else {
		log.Error("Inline transcription failed", fields)
	}

	// The failure is recorded even when ctx was cancelled by Stop.
	rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer rcancel()
	// HandleResult has already failed the job when formatting was the cause.
	if job, getErr := d.jobs.Get(rctx, task.RequestID); getErr == nil && !job.Status.IsTerminal() {
		d.fail(rctx, task.RequestID, f)
	}
}

func (d *Dispatcher) transcribe(ctx context.Context, task transcription.Task) (*transcription.Result, error) {
	obj, err := d.audio.Get(ctx, task.AudioKey)
	if err != nil {
		return nil, storage.FromStorage(err, task.AudioKey)
	}
	defer obj.Body.Close()
	audio, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio %s: %w", task.AudioKey, err)
	}

	ctx, span := observability.StartSpan(ctx, "provider.transcribe")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrModel, task.Options.Model)

	res, err := d.provider.Transcribe(ctx, transcription.Request{
		Audio:       audio,
		ContentType: task.ContentType,
		Language:    task.Options.Language,
		Model:       task.Options.Model,
		Diarize:     task.Options.Diarize,
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	return res, nil
}

// HandleMessage decodes a worker result message and handles it within the
// configured timeout. It is the consumer handler for the results topic.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var rm transcription.ResultMessage
	if err := msg.UnmarshalValueJSON(&rm); err != nil {
		return fmt.Errorf("decode result message at offset %d: %w", msg.Offset, err)
	}
	if rm.RequestID == "" {
		rm.RequestID = msg.Key
	}
	if rm.RequestID == "" {
		return apperrors.MissingField("request_id")
	}

	ctx, cancel := context.WithTimeout(ctx, parse(d.cfg.ResultTimeout, 30*time.Second))
	defer cancel()
	return d.HandleResult(ctx, rm)
}

// HandleResult records a worker result on its job. Results for jobs that
// already finished are ignored.
func (d *Dispatcher) HandleResult(ctx context.Context, rm transcription.ResultMessage) (err error) {
	ctx, op := observability.StartOperation(ctx, "dispatch.result", rm.RequestID)
	status := "ignored"
	defer func() { op.End(status, err) }()
	log := d.log.WithContext(ctx)

	job, err := d.jobs.Get(ctx, rm.RequestID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		log.Warn("Result for finished job ignored", map[string]interface{}{
			"request_id": rm.RequestID,
			"status":     string(job.Status),
		})
		return nil
	}

	switch rm.Status {
	case transcription.OutcomeCompleted:
		status, err = d.complete(ctx, job, rm)
		return err
	case transcription.OutcomeFailed:
		status = string(jobs.StatusFailed)
		return d.record(ctx, job.ID, workerFailure(rm.Error))
	default:
		status = string(jobs.StatusFailed)
		return d.record(ctx, job.ID, failure{formatter.CodeProcessingError, fmt.Sprintf("Unknown result status %q.", rm.Status)})
	}
}

func (d *Dispatcher) complete(ctx context.Context, job *jobs.Job, rm transcription.ResultMessage) (string, error) {
	opts := formatter.OptionsFrom(job.Options.Data)
	if rm.Duration == nil && job.Duration != nil {
		opts.Duration = job.Duration
	}

	start := time.Now()
	resp, err := d.formatter.Format(rm.Result, job.ID, job.ModelName, opts)
	if err == nil && !formatter.Validate(resp) {
		err = &formatter.FormattingError{RequestID: job.ID, Cause: errors.New("response failed validation")}
	}
	if err != nil {
		d.metrics.RecordFormat(ctx, job.ModelName, "error", time.Since(start))
		failed := apperrors.FormattingFailed(job.ID, err)
		d.log.ForJob(ctx, job.ID).Error("Result formatting failed", map[string]interface{}{
			"code":  string(failed.Code),
			"error": err.Error(),
		})
		observability.SetSpanError(ctx, failed)
		return string(jobs.StatusFailed), d.record(ctx, job.ID, failureFor(failed))
	}
	d.metrics.RecordFormat(ctx, job.ModelName, "ok", time.Since(start))

	if resp.Metadata.SHA256 == "" {
		resp.Metadata.SHA256 = job.AudioSHA256
	}
	if len(rm.Translations) > 0 {
		resp = d.formatter.AddTranslation(resp, rm.Translations)
	}
	if rm.Summary != "" {
		resp = d.formatter.AddSummary(resp, rm.Summary, rm.SummaryType)
	}

	if _, err := d.jobs.Complete(ctx, job.ID, resp); err != nil {
		return "error", err
	}
	d.metrics.RecordJobFinished(ctx, string(jobs.StatusCompleted), "")
	return string(jobs.StatusCompleted), nil
}

// record fails the job with f and stores the matching error response.
func (d *Dispatcher) record(ctx context.Context, id string, f failure) error {
	resp := d.formatter.BuildErrorResponse(id, f.message, f.code)
	if _, err := d.jobs.Fail(ctx, id, f.code, f.message, resp); err != nil {
		return err
	}
	d.metrics.RecordJobFinished(ctx, string(jobs.StatusFailed), f.code)
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, id string, f failure) {
	if err := d.record(ctx, id, f); err != nil {
		d.log.ForJob(ctx, id).Error("Recording job failure failed", map[string]interface{}{
			"code":  f.code,
			"error": err.Error(),
		})
	}
}

// Name returns the component name.
func (d *Dispatcher) Name() string { return "dispatch" }

// Start is a no-op; result consumers are run by the kafka component.
func (d *Dispatcher) Start(context.Context) error { return nil }

// Stop cancels in-flight inline transcriptions and waits for them to
// record their outcome, or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the inline backend's availability. Queue mode is always
// healthy here; broker health is reported by the kafka component.
func (d *Dispatcher) Health(ctx context.Context) component.Health {
	h := component.Health{Name: d.Name(), Status: component.StatusHealthy, Message: d.cfg.Mode}
	if d.cfg.Mode == ModeInline && !d.provider.IsAvailable(ctx) {
		h.Status = component.StatusDegraded
		h.Message = d.provider.Name() + " unavailable"
	}
	return h
}

// Describe returns the startup summary line.
func (d *Dispatcher) Describe() component.Description {
	details := fmt.Sprintf("mode=queue tasks=%s results=%s", d.cfg.TasksTopic, d.cfg.ResultsTopic)
	if d.cfg.Mode == ModeInline {
		details = fmt.Sprintf("mode=inline provider=%s concurrency=%d", d.provider.Name(), d.cfg.InlineConcurrency)
	}
	return component.Description{Name: "Dispatch", Type: "worker", Details: details}
}
