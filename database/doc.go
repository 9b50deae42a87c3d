// Package database provides the GORM-backed sqlite store used for users, API
// keys and jobs, with connection pooling, health checks, transactions and
// embedded migrations.
//
// Register the component with the bootstrap app; the schema is migrated on
// Start when Migrate is set:
//
//	db := database.NewComponent(cfg.Database, log)
//	app.RegisterComponent(db)
//	...
//	repo := jobs.NewRepository(db.DB())
//
// # Subpackages
//
//   - migration: embedded golang-migrate schema migrations
//   - query: pagination, sorting and filtering for list endpoints
//   - testutil: migrated in-memory databases for tests
//
// Errors returned by GORM are translated to AppErrors with FromDatabase.
package database
