// Package testutil provides an in-memory Redis for tests of packages that
// depend on redis.Client.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/redis"
)

// NewClient starts a miniredis server and returns a connected client.
// Both are closed when the test ends.
func NewClient(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	cfg := redis.Config{Enabled: true, Addr: mini.Addr()}
	client, err := redis.New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}
