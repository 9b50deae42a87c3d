// Package bootstrap runs a scribegate process through its lifecycle:
// validate config, initialize logging, start components, run configure
// callbacks and hooks, serve until a signal arrives, then stop everything
// in reverse order within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(db)
//	app.RegisterComponent(httpServer)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*gateway.Config]) error {
//	    return wireHandlers(a)
//	})
//	err = app.Run(ctx)
//
// RunTask drives the same lifecycle around a finite task such as running
// database migrations.
package bootstrap
