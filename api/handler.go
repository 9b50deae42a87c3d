package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/auth"
	"github.com/kbukum/scribegate/auth/apikey"
	"github.com/kbukum/scribegate/database/query"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/observability"
	"github.com/kbukum/scribegate/server/middleware"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// JobService is the subset of *jobs.Service used by the handlers.
type JobService interface {
	Submit(ctx context.Context, job *jobs.Job) error
	GetOwned(ctx context.Context, userID, id string) (*jobs.Job, error)
	Status(ctx context.Context, userID, id string) (*jobs.StatusView, error)
	List(ctx context.Context, userID string, params query.Params) (*query.Result[jobs.Job], error)
}

// Dispatcher hands a submitted job to the transcription backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *jobs.Job) error
}

// KeyStore manages API keys; *apikey.Store satisfies it.
type KeyStore interface {
	Create(ctx context.Context, userID, name string, scopes []string) (*apikey.Created, error)
	List(ctx context.Context, userID string) ([]apikey.Key, error)
	Revoke(ctx context.Context, userID, id string) error
}

// Deps are the collaborators of a Handler. Keys and Metrics are optional.
type Deps struct {
	Jobs       JobService
	Audio      storage.Storage
	Dispatcher Dispatcher
	Keys       KeyStore
	Formatter  *formatter.Formatter
	Metrics    *observability.Metrics
	Log        *logger.Logger
}

// Handler serves the gateway API.
type Handler struct {
	cfg        Config
	jobs       JobService
	audio      storage.Storage
	dispatcher Dispatcher
	keys       KeyStore
	formatter  *formatter.Formatter
	metrics    *observability.Metrics
	log        *logger.Logger
	mode       string
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, deps Deps) *Handler {
	cfg.ApplyDefaults()
	log := deps.Log
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	f := deps.Formatter
	if f == nil {
		f = formatter.New(formatter.WithLogger(log))
	}
	mode := "queue"
	if m, ok := deps.Dispatcher.(interface{ Mode() string }); ok {
		mode = m.Mode()
	}
	return &Handler{
		cfg:        cfg,
		jobs:       deps.Jobs,
		audio:      deps.Audio,
		dispatcher: deps.Dispatcher,
		keys:       deps.Keys,
		formatter:  f,
		metrics:    deps.Metrics,
		log:        log.WithComponent("api"),
		mode:       mode,
	}
}

// Register mounts the routes on r. authn authenticates callers and limit,
// when non-nil, rate limits them; both run only on authenticated routes.
func (h *Handler) Register(r gin.IRouter, authn, limit gin.HandlerFunc) {
	r.GET("/v1/schema", h.Schema)

	chain := []gin.HandlerFunc{authn}
	if limit != nil {
		chain = append(chain, limit)
	}
	private := r.Group("", chain...)

	write := middleware.RequirePermission(auth.PermJobsWrite)
	read := middleware.RequirePermission(auth.PermJobsRead)

	private.POST("/v1/listen", write, h.Listen)
	private.GET("/v1/jobs", read, h.ListJobs)
	for _, prefix := range []string{"/v1", ""} {
		private.GET(prefix+"/status/:request_id", read, h.Status)
		private.GET(prefix+"/results/:request_id", read, h.Results)
	}

	if h.keys != nil {
		manage := middleware.RequirePermission(auth.PermKeysManage)
		private.POST("/v1/keys", manage, h.CreateKey)
		private.GET("/v1/keys", manage, h.ListKeys)
		private.DELETE("/v1/keys/:key_id", manage, h.RevokeKey)
	}
}

// principal returns the authenticated caller or an UNAUTHORIZED error.
func principal(c *gin.Context) (*auth.Principal, error) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok || p.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return p, nil
}
