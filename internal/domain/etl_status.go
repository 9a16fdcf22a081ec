package domain

import "time"

// EtlRunStatus is the outcome of the latest coverage load.
type EtlRunStatus string

const (
	EtlSucceeded EtlRunStatus = "SUCCEEDED"
	EtlRunning   EtlRunStatus = "RUNNING"
	EtlFailed    EtlRunStatus = "FAILED"
)

// EtlStatus describes data freshness for one ingestion job.
type EtlStatus struct {
	JobName    string
	Status     EtlRunStatus
	LastRunAt  *time.Time
	RowsLoaded int64
	Message    *string
}
