package runner

import (
	"time"

	"github.com/roach88/sap/internal/model"
)

// Snapshot is an immutable, canonical object set published by one cycle.
//
// Objects are normalized and deduplicated; IDs are unique. Callers must not
// modify the slice or the objects in it.
type Snapshot struct {
	// Cycle is the number of the cycle that produced this snapshot, or -1
	// for the empty snapshot a Runner publishes before its first success.
	Cycle int64

	// Objects in canonical order.
	Objects []model.Object

	// PublishedAt is when the snapshot replaced its predecessor. Zero for
	// the initial empty snapshot.
	PublishedAt time.Time

	// Digest is the model.Digest of Objects, usable as an ETag.
	Digest string
}

// Len returns the number of objects in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Objects)
}

func emptySnapshot() *Snapshot {
	digest, err := model.Digest(nil)
	if err != nil {
		// The empty list always encodes.
		panic(err)
	}
	return &Snapshot{Cycle: -1, Objects: []model.Object{}, Digest: digest}
}

// Status is the runner's bookkeeping record. Values returned by
// Runner.Status are copies and safe to retain.
type Status struct {
	// LastRunAt is when the most recent cycle started.
	LastRunAt *time.Time `json:"last_run_at"`

	// LastCompletedAt is when the most recent cycle finished, whether it
	// succeeded or failed.
	LastCompletedAt *time.Time `json:"last_completed_at"`

	// LastError is the most recent cycle's error, cleared by the next
	// successful cycle.
	LastError *string `json:"last_error"`

	// RunCount counts started cycles.
	RunCount int64 `json:"run_count"`

	// InProgress is true while a cycle is in flight.
	InProgress bool `json:"in_progress"`

	// Cycle is the number of the cycle behind the published snapshot.
	Cycle int64 `json:"cycle"`

	// ObjectCount is the size of the published snapshot.
	ObjectCount int `json:"object_count"`

	// LastDurationMS is how long the most recent completed cycle took.
	LastDurationMS int64 `json:"last_duration_ms"`
}
