package observability

import (
	"context"
	"testing"
	"time"
)

type recordingSimHooks struct {
	starts, generations, completes int
}

func (r *recordingSimHooks) OnSimulationStart(context.Context, int, int) { r.starts++ }
func (r *recordingSimHooks) OnGeneration(context.Context, int, int)      { r.generations++ }
func (r *recordingSimHooks) OnSimulationComplete(context.Context, int, int, time.Duration, error) {
	r.completes++
}

func TestSetSimulationHooks(t *testing.T) {
	defer SetSimulationHooks(nil)

	rec := &recordingSimHooks{}
	SetSimulationHooks(rec)

	ctx := context.Background()
	Simulation().OnSimulationStart(ctx, 10, 5)
	Simulation().OnGeneration(ctx, 1, 10)
	Simulation().OnSimulationComplete(ctx, 5, 42, time.Second, nil)

	if rec.starts != 1 || rec.generations != 1 || rec.completes != 1 {
		t.Errorf("hooks not delivered: %+v", rec)
	}

	// Reset restores no-ops without panicking.
	SetSimulationHooks(nil)
	Simulation().OnGeneration(ctx, 2, 3)
	if rec.generations != 1 {
		t.Error("event delivered after reset")
	}
}

func TestDefaultHooksAreNoops(t *testing.T) {
	ctx := context.Background()
	// Must not panic.
	Simulation().OnSimulationStart(ctx, 0, 0)
	Pedigree().OnPedigree(ctx, 1, 2)
	Pedigree().OnPopulate(ctx, 1)
}
