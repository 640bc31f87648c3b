// Package runstore persists summaries of completed simulation runs.
//
// A run record captures what was simulated (the options), how large the
// result was, and where the analysis landed, without storing the full
// population. Backends are provided for local files (CLI history) and
// MongoDB (shared deployments).
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for run storage.
var (
	// ErrNotFound is returned when a run record does not exist.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidID is returned when a run ID is empty or malformed.
	ErrInvalidID = errors.New("invalid run id")
)

// Record summarizes one completed pipeline run.
type Record struct {
	// ID is the pipeline run identifier (a UUID).
	ID string `json:"id" bson:"_id"`

	// CreatedAt is when the run completed.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Options is the JSON-encoded pipeline configuration of the run.
	Options json.RawMessage `json:"options" bson:"options"`

	// Summary statistics of the run.
	Individuals    int    `json:"individuals" bson:"individuals"`
	Generations    int    `json:"generations" bson:"generations"`
	Founders       int    `json:"founders" bson:"founders"`
	Pedigrees      int    `json:"pedigrees" bson:"pedigrees"`
	PopulationHash string `json:"population_hash" bson:"population_hash"`

	// ThetaEstimate holds the end-generation theta fit, if one ran.
	ThetaEstimate *float64 `json:"theta_estimate,omitempty" bson:"theta_estimate,omitempty"`
}

// NewRecord creates a record with the given run ID, stamping the
// creation time. An empty ID is replaced with a fresh UUID.
func NewRecord(runID string) Record {
	if runID == "" {
		runID = uuid.NewString()
	}
	return Record{ID: runID, CreatedAt: time.Now().UTC()}
}

// Store is the interface for run-summary storage backends.
type Store interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, rec Record) error

	// Get retrieves a record by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// validID rejects IDs that could escape a storage namespace.
func validID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
