package model

import "time"

// RunStatus represents the state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind identifies which analysis a run performed.
type RunKind string

const (
	RunKindMoran   RunKind = "moran"
	RunKindHotspot RunKind = "hotspot"
	RunKindRegress RunKind = "regress"
	RunKindReport  RunKind = "report"
)

// Run records a single invocation of an analysis for the results store.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
