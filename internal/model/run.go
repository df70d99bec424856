package model

import "time"

// RunStatus tracks the lifecycle of one recorded task run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one processing run of a task (a named list of cadastral numbers),
// as persisted in the local store.
type Run struct {
	ID         string     `json:"id"`
	Task       string     `json:"task"`
	CadNumbers []string   `json:"cad_numbers"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	Records    int        `json:"records"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
