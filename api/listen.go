package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/scribegate/database"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/transcription"
	"github.com/kbukum/scribegate/validation"
)

// ListenResponse acknowledges an accepted listen request.
type ListenResponse struct {
	RequestID string      `json:"request_id"`
	Status    jobs.Status `json:"status"`
}

// upload is an audio payload read from a listen request.
type upload struct {
	data        []byte
	contentType string
}

// Listen accepts audio as a raw body or a multipart file, archives it,
// records a queued job and dispatches it. It answers 202 with the request id.
func (h *Handler) Listen(c *gin.Context) {
	ctx := c.Request.Context()
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	opts, err := h.bindOptions(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	audio, err := h.readAudio(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	sum := sha256.Sum256(audio.data)
	requestID := uuid.NewString()
	key := storage.AudioKey(caller.UserID, requestID)
	log := h.log.WithContext(ctx)

	if err := h.audio.Put(ctx, key, bytes.NewReader(audio.data), int64(len(audio.data)), audio.contentType); err != nil {
		log.Error("Audio archive failed", map[string]interface{}{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		})
		h.fail(c, storage.FromStorage(err, key))
		return
	}

	job := &jobs.Job{
		Model:       database.Model{ID: requestID},
		UserID:      caller.UserID,
		ModelName:   opts.Model,
		Language:    opts.Language,
		Options:     database.NewJSON(opts),
		AudioKey:    key,
		AudioSHA256: hex.EncodeToString(sum[:]),
		AudioSize:   int64(len(audio.data)),
		ContentType: audio.contentType,
	}
	if err := h.jobs.Submit(ctx, job); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.dispatcher.Dispatch(ctx, job); err != nil {
		h.fail(c, err)
		return
	}

	log.Info("Listen request accepted", map[string]interface{}{
		"request_id": requestID,
		"model":      opts.Model,
		"bytes":      len(audio.data),
		"mode":       h.mode,
	})
	c.Header("Location", "/v1/status/"+requestID)
	c.JSON(http.StatusAccepted, ListenResponse{RequestID: requestID, Status: jobs.StatusQueued})
}

// bindOptions reads listen options from the query string over the defaults.
// translate accepts repeated parameters and comma-separated lists.
func (h *Handler) bindOptions(c *gin.Context) (transcription.Options, error) {
	opts := transcription.DefaultOptions()
	if err := c.ShouldBindQuery(&opts); err != nil {
		return opts, apperrors.Validation("invalid query parameters").WithCause(err)
	}
	if opts.Model == "" {
		opts.Model = h.cfg.DefaultModel
	}

	var langs []string
	for _, v := range opts.Translate {
		for _, lang := range strings.Split(v, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				langs = append(langs, lang)
			}
		}
	}
	opts.Translate = langs

	if err := validation.Validate(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// readAudio reads the payload, bounded by the configured maximum.
func (h *Handler) readAudio(c *gin.Context) (*upload, error) {
	limit := h.cfg.MaxAudioBytes
	if c.Request.ContentLength > limit && !isMultipart(c.ContentType()) {
		return nil, apperrors.PayloadTooLarge(limit)
	}

	var (
		up  *upload
		err error
	)
	if isMultipart(c.ContentType()) {
		up, err = readMultipart(c.Request, limit)
	} else {
		up, err = readRaw(c.Request, limit)
	}
	if err != nil {
		return nil, err
	}
	if len(up.data) == 0 {
		return nil, apperrors.InvalidInput("audio", "the request contains no audio")
	}
	if up.contentType == "" || up.contentType == "application/octet-stream" {
		up.contentType = http.DetectContentType(up.data)
	}
	return up, nil
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/form-data")
}

func readRaw(r *http.Request, limit int64) (*upload, error) {
	data, err := readLimited(r.Body, limit)
	if err != nil {
		return nil, err
	}
	ct := r.Header.Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(ct); perr == nil {
		ct = mt
	}
	if ct == "application/x-www-form-urlencoded" {
		ct = ""
	}
	return &upload{data: data, contentType: ct}, nil
}

// readMultipart streams the parts and returns the first file part.
func readMultipart(r *http.Request, limit int64) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.InvalidInput("audio", "malformed multipart body").WithCause(err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.MissingField("file")
		}
		if err != nil {
			return nil, bodyError(err, limit)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		data, err := readLimited(part, limit)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		return &upload{data: data, contentType: part.Header.Get("Content-Type")}, nil
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, bodyError(err, limit)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.PayloadTooLarge(limit)
	}
	return data, nil
}

func bodyError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.PayloadTooLarge(min(limit, maxErr.Limit))
	}
	return apperrors.InvalidInput("audio", "the request body could not be read").WithCause(err)
}

// fail renders err and counts it.
func (h *Handler) fail(c *gin.Context, err error) {
	code := string(apperrors.ErrCodeInternal)
	if appErr, ok := apperrors.AsAppError(err); ok {
		code = string(appErr.Code)
	}
	h.metrics.RecordError(c.Request.Context(), code, "api")
	server.RespondWithError(c, err)
}
