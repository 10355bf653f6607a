package domain

import "time"

// Batch is the set of units discovered in one orchestrator run.
// It is built once by discovery and never grows afterwards.
type Batch struct {
	RunID        string
	Bucket       string
	Units        []Unit
	DiscoveredAt time.Time
}

// NewBatch creates a batch from the discovered identifiers, preserving order.
// Parameters:
//   - runID: identifier of the owning run.
//   - bucket: active namespace the identifiers were listed from.
//   - ids: unit identifiers in discovery order.
//   - at: discovery timestamp applied to every unit.
// Returns:
//   - *Batch: batch with every unit in UnitStateDiscovered.
func NewBatch(runID, bucket string, ids []string, at time.Time) *Batch {
	units := make([]Unit, len(ids))
	for i, id := range ids {
		units[i] = Unit{ID: id, DiscoveredAt: at, State: UnitStateDiscovered}
	}
	return &Batch{
		RunID:        runID,
		Bucket:       bucket,
		Units:        units,
		DiscoveredAt: at,
	}
}

// Len returns the number of units in the batch.
func (b *Batch) Len() int {
	return len(b.Units)
}

// IDs returns the unit identifiers in discovery order.
func (b *Batch) IDs() []string {
	ids := make([]string, len(b.Units))
	for i, u := range b.Units {
		ids[i] = u.ID
	}
	return ids
}
