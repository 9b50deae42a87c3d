package testutil

import (
	"context"
	"testing"
)

func TestNewClient(t *testing.T) {
	client, mini := NewClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := client.Unwrap().Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := mini.Get("k"); got != "v" {
		t.Errorf("expected value in miniredis, got %q", got)
	}
}
