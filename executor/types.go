package executor

import (
	"time"

	"github.com/yairfalse/varusta/types"
)

// Options configure apply behavior.
type Options struct {
	DryRun            bool `json:"dry_run"`
	ContinueOnFailure bool `json:"continue_on_failure"`
}

// Status of a single decision's execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// DecisionResult is the outcome of one decision.
type DecisionResult struct {
	Decision   types.Decision `json:"decision"`
	Status     Status         `json:"status"`
	ResourceID string         `json:"resource_id,omitempty"` // cloud ID created or acted on
	Error      string         `json:"error,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Duration   time.Duration  `json:"duration"`
}

// Result is the outcome of an apply.
type Result struct {
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	Duration        time.Duration    `json:"duration"`
	TotalDecisions  int              `json:"total_decisions"`
	SuccessfulCount int              `json:"successful_count"`
	FailedCount     int              `json:"failed_count"`
	SkippedCount    int              `json:"skipped_count"`
	PartialFailure  bool             `json:"partial_failure"`
	Results         []DecisionResult `json:"results"`
}
