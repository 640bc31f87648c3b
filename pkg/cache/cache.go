// Package cache provides result caching for the simulation pipeline.
//
// Cached values are opaque byte blobs keyed by strings derived from the
// pipeline inputs: a simulation key hashes the sampler options and seed,
// and the haplotype and artifact keys combine the content hash of the
// serialized population with their own options. The pipeline runner
// caches only the simulate stage. Backends are provided for local
// files (CLI usage), Redis (server usage), and a null cache that
// disables caching entirely.
package cache

import (
	"context"
	"time"
)

// TTLs per pipeline stage. Simulations are deterministic in their key,
// so entries only expire to bound disk usage.
const (
	// TTLSimulation is the lifetime of cached simulation results.
	TTLSimulation = 7 * 24 * time.Hour

	// TTLAnalysis is the lifetime of cached analysis results.
	TTLAnalysis = 24 * time.Hour

	// TTLArtifact is the lifetime of cached rendered artifacts.
	TTLArtifact = 24 * time.Hour
)

// Cache stores and retrieves byte blobs by key.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a time-to-live. A non-positive ttl stores
	// the value without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SimKeyOpts identifies a simulation run for caching.
type SimKeyOpts struct {
	PopulationSize  int
	Generations     int
	Seed            uint64
	GammaShape      float64
	GammaScale      float64
	KeepGenerations int
	Verbose         bool
}

// HaplotypeKeyOpts identifies a haplotype population pass.
type HaplotypeKeyOpts struct {
	Model         string // "ystr", "ladder", or "autosomal"
	MutationRates []float64
	LadderMin     []int
	LadderMax     []int
	AlleleDist    []float64
	Theta         float64
	MutationRate  float64
	Seed          uint64
}

// ArtifactKeyOpts identifies a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string
	Detailed bool
}

// Keyer derives cache keys from pipeline inputs.
type Keyer interface {
	// SimulationKey keys a sampler run by its options and seed.
	SimulationKey(variant string, opts SimKeyOpts) string

	// HaplotypeKey keys a haplotype pass by the population content hash
	// and the pass options.
	HaplotypeKey(popHash string, opts HaplotypeKeyOpts) string

	// ArtifactKey keys a rendered artifact by the population content hash
	// and render options.
	ArtifactKey(popHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes options into namespaced keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SimulationKey keys a sampler run by its options and seed.
func (DefaultKeyer) SimulationKey(variant string, opts SimKeyOpts) string {
	return hashKey("sim", variant, opts)
}

// HaplotypeKey keys a haplotype pass by population hash and options.
func (DefaultKeyer) HaplotypeKey(popHash string, opts HaplotypeKeyOpts) string {
	return hashKey("hap", popHash, opts)
}

// ArtifactKey keys a rendered artifact by population hash and options.
func (DefaultKeyer) ArtifactKey(popHash string, opts ArtifactKeyOpts) string {
	return hashKey("art", popHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix so that separate contexts (for
// example different server tenants) get disjoint namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SimulationKey generates a prefixed simulation key.
func (k *ScopedKeyer) SimulationKey(variant string, opts SimKeyOpts) string {
	return k.prefix + k.inner.SimulationKey(variant, opts)
}

// HaplotypeKey generates a prefixed haplotype key.
func (k *ScopedKeyer) HaplotypeKey(popHash string, opts HaplotypeKeyOpts) string {
	return k.prefix + k.inner.HaplotypeKey(popHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(popHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(popHash, opts)
}

// NullCache is a no-op cache that never stores anything. Useful for
// tests and for disabling caching.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return &NullCache{} }

// Get always returns a miss.
func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set does nothing.
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (*NullCache) Delete(context.Context, string) error { return nil }

// Close does nothing.
func (*NullCache) Close() error { return nil }

// Ensure implementations satisfy Cache.
var _ Cache = (*NullCache)(nil)
