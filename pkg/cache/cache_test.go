package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("unexpected hit for missing key")
	}

	if err := c.Set(ctx, "k", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Errorf("Get = (%q, %v), want (payload, true)", data, hit)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("hit after delete")
	}
	// Deleting again is not an error.
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), -time.Hour); err == nil {
		// Negative TTL means no expiration under the contract; entry stays.
		if _, hit, _ := c.Get(ctx, "k"); !hit {
			t.Error("entry without expiration should persist")
		}
	}

	if err := c.Set(ctx, "short", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry returned a hit")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	a := k.SimulationKey("uniform", SimKeyOpts{PopulationSize: 10, Generations: 5, Seed: 1})
	b := k.SimulationKey("uniform", SimKeyOpts{PopulationSize: 10, Generations: 5, Seed: 1})
	if a != b {
		t.Error("identical options produced different keys")
	}
	c := k.SimulationKey("uniform", SimKeyOpts{PopulationSize: 10, Generations: 5, Seed: 2})
	if a == c {
		t.Error("different seeds produced the same key")
	}
	d := k.SimulationKey("variance", SimKeyOpts{PopulationSize: 10, Generations: 5, Seed: 1})
	if a == d {
		t.Error("different variants produced the same key")
	}

	if !strings.HasPrefix(a, "sim:") {
		t.Errorf("simulation key %q lacks namespace", a)
	}
	hapKey := k.HaplotypeKey("abc", HaplotypeKeyOpts{Model: "ystr"})
	if !strings.HasPrefix(hapKey, "hap:") {
		t.Errorf("haplotype key %q lacks namespace", hapKey)
	}
}

func TestScopedKeyer(t *testing.T) {
	base := NewDefaultKeyer()
	scoped := NewScopedKeyer(base, "tenant:42:")

	opts := SimKeyOpts{PopulationSize: 3, Generations: 2}
	got := scoped.SimulationKey("uniform", opts)
	want := "tenant:42:" + base.SimulationKey("uniform", opts)
	if got != want {
		t.Errorf("scoped key = %q, want %q", got, want)
	}

	// Nil inner falls back to the default keyer.
	fallback := NewScopedKeyer(nil, "p:")
	if !strings.HasPrefix(fallback.SimulationKey("uniform", opts), "p:sim:") {
		t.Error("nil inner keyer not defaulted")
	}
}

func TestHash(t *testing.T) {
	a := Hash([]byte("data"))
	b := Hash([]byte("data"))
	if a != b {
		t.Error("hash not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == Hash([]byte("other")) {
		t.Error("distinct inputs hashed equal")
	}
}
