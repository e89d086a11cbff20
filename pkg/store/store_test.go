package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before Set, got %v", err)
	}
	text, err := GetOrDefault(ctx, s, DefaultSchema)
	if err != nil || text != DefaultSchema {
		t.Fatalf("GetOrDefault = %q, %v", text, err)
	}

	for _, want := range []string{`{"type":"text","text":"one"}`, `[]`, ``} {
		if err := s.Set(ctx, want); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != want {
			t.Fatalf("Get = %q, want %q", got, want)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	roundTrip(t, NewMemoryStore())

	seeded := NewMemoryStore(DefaultSchema)
	got, err := seeded.Get(context.Background())
	if err != nil || got != DefaultSchema {
		t.Fatalf("seeded Get = %q, %v", got, err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemoryStore().Set(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "schema.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	roundTrip(t, s)

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "schema.json" {
		t.Fatalf("expected only the schema file to remain, got %v", entries)
	}
}

func TestFileStore_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := NewFileStore(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

type fakeRedis struct {
	data map[string]string
	err  error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	client := &fakeRedis{data: map[string]string{}}
	s, err := NewRedisStore(client, "")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	if s.Key() != DefaultRedisKey {
		t.Fatalf("unexpected key %q", s.Key())
	}
	roundTrip(t, s)
	if _, ok := client.data[DefaultRedisKey]; !ok {
		t.Fatalf("expected value under %q", DefaultRedisKey)
	}
}

func TestRedisStore_WrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	s, err := NewRedisStore(&fakeRedis{err: boom}, "k")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	if _, err := s.Get(context.Background()); !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v", err)
	}
	if err := s.Set(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("Set error = %v", err)
	}
	if _, err := NewRedisStore(nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
