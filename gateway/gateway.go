package gateway

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/api"
	"github.com/kbukum/scribegate/auth"
	"github.com/kbukum/scribegate/auth/apikey"
	"github.com/kbukum/scribegate/auth/oidc"
	"github.com/kbukum/scribegate/bootstrap"
	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/dispatch"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/kafka/consumer"
	"github.com/kbukum/scribegate/kafka/producer"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/observability"
	"github.com/kbukum/scribegate/ratelimit"
	"github.com/kbukum/scribegate/redis"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/server/middleware"
	"github.com/kbukum/scribegate/storage"
	_ "github.com/kbukum/scribegate/storage/local"
	_ "github.com/kbukum/scribegate/storage/s3"
	"github.com/kbukum/scribegate/transcription/formatter"
	"github.com/kbukum/scribegate/transcription/whisper"
	"github.com/kbukum/scribegate/users"
)

// App is the gateway process.
type App = bootstrap.App[*Config]

// infra holds the components every service depends on.
type infra struct {
	telemetry *observability.Component
	db        *database.Component
	redis     *redis.Component
	storage   *storage.Component
}

func (in *infra) redisClient() *redis.Client {
	if in.redis == nil {
		return nil
	}
	return in.redis.Client()
}

// New builds the gateway. Infrastructure components are registered
// immediately; the dispatcher, the Kafka transport and the HTTP server are
// built on top of them once they have started.
func New(cfg *Config, opts ...bootstrap.Option) (*App, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	in := &infra{
		telemetry: observability.NewComponent(cfg.Observability, observability.Resource{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
		}, log),
		db:      database.NewComponent(cfg.Database, log),
		storage: storage.NewComponent(cfg.Storage, log),
	}
	components := []component.Component{in.telemetry, in.db}
	if cfg.Redis.Enabled {
		in.redis = redis.NewComponent(cfg.Redis, log)
		components = append(components, in.redis)
	}
	components = append(components, in.storage)

	for _, c := range components {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	app.OnConfigure(func(ctx context.Context, a *App) error {
		return wire(ctx, a, in)
	})
	return app, nil
}

func wire(_ context.Context, app *App, in *infra) error {
	cfg := app.Cfg
	log := app.Logger
	db := in.db.DB()
	rdb := in.redisClient()
	metrics := in.telemetry.Metrics()
	audio := in.storage.Storage()
	if db == nil || audio == nil {
		return fmt.Errorf("gateway: database and storage must be started before wiring")
	}

	f := formatter.New(formatter.WithLogger(log))
	jobSvc := jobs.NewService(jobs.NewRepository(db), rdb, log)

	disp, err := newDispatcher(app, jobSvc, audio, f, metrics)
	if err != nil {
		return err
	}

	authenticators, keys := newAuthenticators(cfg, db, rdb, log)

	srv, err := server.New(cfg.Server, log)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll, metrics)

	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limit = middleware.RateLimit(ratelimit.New(cfg.RateLimit, rdb, log), middleware.UserBasedKey)
	}
	authn := middleware.Auth(middleware.AuthConfig{
		Authenticator: authenticators,
		Users:         users.NewRepository(db, log),
		Log:           log,
	})

	handler := api.NewHandler(cfg.Formatter, api.Deps{
		Jobs:       jobSvc,
		Audio:      audio,
		Dispatcher: disp,
		Keys:       keys,
		Formatter:  f,
		Metrics:    metrics,
		Log:        log,
	})
	handler.Register(srv.GinEngine(), authn, limit)

	app.OnReady(func(context.Context) error {
		log.Info("Accepting transcription requests", map[string]interface{}{
			"dispatch_mode": disp.Mode(),
			"auth_schemes":  authenticators.Schemes(),
			"rate_limited":  cfg.RateLimit.Enabled,
		})
		return nil
	})
	return app.RegisterComponent(server.NewComponent(srv))
}

// newDispatcher builds the dispatcher for the configured mode and registers
// it, plus the Kafka transport in queue mode, with the app.
func newDispatcher(app *App, svc *jobs.Service, audio storage.Storage, f *formatter.Formatter, metrics *observability.Metrics) (*dispatch.Dispatcher, error) {
	cfg := app.Cfg
	log := app.Logger
	opts := []dispatch.Option{dispatch.WithFormatter(f), dispatch.WithMetrics(metrics)}

	if cfg.Dispatch.Mode == dispatch.ModeInline {
		provider, err := whisper.NewProvider(cfg.Whisper, log)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		d, err := dispatch.New(cfg.Dispatch, svc, log, append(opts, dispatch.WithProvider(provider, audio))...)
		if err != nil {
			return nil, err
		}
		return d, app.RegisterComponent(d)
	}

	prod, err := producer.NewProducer(cfg.Kafka, log)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	d, err := dispatch.New(cfg.Dispatch, svc, log, append(opts, dispatch.WithPublisher(prod))...)
	if err != nil {
		_ = prod.Close()
		return nil, err
	}
	cons, err := consumer.NewConsumer(cfg.Kafka, cfg.Dispatch.ResultsTopic, log)
	if err != nil {
		_ = prod.Close()
		return nil, fmt.Errorf("gateway: %w", err)
	}

	transport := kafka.NewComponent(cfg.Kafka, log)
	transport.SetProducer(prod)
	transport.Subscribe(consumer.AsRunner(cons, d.HandleMessage))
	app.Summary.TrackConsumer("dispatch-results", cons.GroupID(), cons.Topic())

	// The dispatcher stops after the transport feeding it.
	if err := app.RegisterComponent(d); err != nil {
		return nil, err
	}
	return d, app.RegisterComponent(transport)
}

// newAuthenticators returns the enabled credential schemes. keys is nil
// unless API keys are enabled.
func newAuthenticators(cfg *Config, db *database.DB, rdb *redis.Client, log *logger.Logger) (*auth.Registry, api.KeyStore) {
	registry := auth.NewRegistry()
	var keys api.KeyStore
	if cfg.Auth.OIDC.Enabled {
		registry.Register(oidc.NewVerifier(cfg.Auth.OIDC, rdb, log, oidc.WithRolePermissions(cfg.Auth.RolePermissions)))
	}
	if cfg.Auth.APIKeys.Enabled {
		store := apikey.NewStore(db, cfg.Auth.APIKeys, log)
		registry.Register(store)
		keys = store
	}
	return registry, keys
}
