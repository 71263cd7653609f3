//go:build integration
// +build integration

package store

import (
	"context"
	"testing"
	"time"
)

func TestMemcachedStore_GetSet_Integration(t *testing.T) {
	s := NewMemcachedStore("localhost:11211", 500*time.Millisecond)
	defer s.Close()

	ctx := context.Background()
	if err := s.Set(ctx, "it:"+LocationKey, "Paris"); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}
	got, ok, err := s.Get(ctx, "it:"+LocationKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || got != "Paris" {
		t.Errorf("Get() = %q, %v; want Paris, true", got, ok)
	}
}
