package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kbukum/scribegate/auth/apikey"
	"github.com/kbukum/scribegate/bootstrap"
	"github.com/kbukum/scribegate/config"
	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/database/migration"
	"github.com/kbukum/scribegate/gateway"
	"github.com/kbukum/scribegate/users"
	"github.com/kbukum/scribegate/version"
)

const usage = `usage: scribegate [-config FILE] [-env FILE] <command> [args]

commands:
  serve                     run the gateway (default)
  migrate up|down|version   manage the database schema
  apikey create             issue an API key for a user
  version                   print build information
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "scribegate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scribegate", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to config.yml")
	envFile := fs.String("env", "", "path to .env file")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	if cmd == "version" {
		fmt.Fprintln(out, version.Get(gateway.ServiceName).String())
		return nil
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		return err
	}

	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "migrate":
		return migrate(ctx, cfg, rest, out)
	case "apikey":
		return apiKey(ctx, cfg, rest, out)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadConfig(configFile, envFile string) (*gateway.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	var cfg gateway.Config
	if err := config.LoadConfig(gateway.ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}
	return &cfg, nil
}

func serve(ctx context.Context, cfg *gateway.Config) error {
	app, err := gateway.New(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

// withDatabase runs task against the configured database without starting
// the rest of the gateway.
func withDatabase(ctx context.Context, cfg *gateway.Config, task func(ctx context.Context, app *gateway.App, db *database.DB) error) error {
	app, err := bootstrap.NewApp(cfg, bootstrap.WithSummaryWriter(io.Discard))
	if err != nil {
		return err
	}
	dbComp := database.NewComponent(cfg.Database, app.Logger)
	if err := app.RegisterComponent(dbComp); err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		return task(ctx, app, dbComp.DB())
	})
}

func migrate(ctx context.Context, cfg *gateway.Config, args []string, out io.Writer) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}
	// The task below is the only migration step that should run.
	cfg.Database.Migrate = false

	return withDatabase(ctx, cfg, func(_ context.Context, app *gateway.App, db *database.DB) error {
		switch direction {
		case "up":
			if err := migration.Up(db.GormDB, app.Logger); err != nil {
				return err
			}
		case "down":
			if err := migration.Down(db.GormDB, app.Logger); err != nil {
				return err
			}
		case "version":
		default:
			return fmt.Errorf("migrate: unknown direction %q (want up, down or version)", direction)
		}

		v, dirty, err := migration.Version(db.GormDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema version %d (dirty=%t)\n", v, dirty)
		return nil
	})
}

func apiKey(ctx context.Context, cfg *gateway.Config, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] != "create" {
		return fmt.Errorf("apikey: usage: apikey create -subject SUB [-name NAME] [-scopes a,b]")
	}

	fs := flag.NewFlagSet("apikey create", flag.ContinueOnError)
	subject := fs.String("subject", "", "identity subject of the key owner (created when unknown)")
	name := fs.String("name", "cli", "key name")
	scopes := fs.String("scopes", "", "comma-separated permission patterns (default: api_keys.default_scopes)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("apikey create: -subject is required")
	}

	return withDatabase(ctx, cfg, func(ctx context.Context, app *gateway.App, db *database.DB) error {
		user, err := users.NewRepository(db, app.Logger).Provision(ctx, users.Profile{Subject: *subject})
		if err != nil {
			return err
		}
		created, err := apikey.NewStore(db, cfg.Auth.APIKeys, app.Logger).Create(ctx, user.ID, *name, splitList(*scopes))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "key id:  %s\nuser id: %s\nscopes:  %s\ntoken:   %s\n",
			created.Key.ID, user.ID, strings.Join(created.Key.Scopes.Data, ","), created.Token)
		return nil
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
