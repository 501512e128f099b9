package content

import (
	"fmt"
	"strings"
)

// JobStatus is the lifecycle state of a synthesis job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// SynthesisType selects what a synthesis job runs.
type SynthesisType string

const (
	SynthesisFull               SynthesisType = "full"
	SynthesisIncremental        SynthesisType = "incremental"
	SynthesisQualityImprovement SynthesisType = "quality_improvement"
)

// ParseSynthesisType converts a raw string into a SynthesisType; "" means full.
func ParseSynthesisType(s string) (SynthesisType, error) {
	t := SynthesisType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return SynthesisFull, nil
	case SynthesisFull, SynthesisIncremental, SynthesisQualityImprovement:
		return t, nil
	}
	return "", fmt.Errorf("unknown synthesis type %q", s)
}

// Job tracks one asynchronous synthesis run.
type Job struct {
	ID               string         `json:"id"`
	RealmID          string         `json:"realm_id"`
	SynthesisType    SynthesisType  `json:"synthesis_type"`
	Status           JobStatus      `json:"status"`
	ContentSourceIDs []string       `json:"content_source_ids,omitempty"`
	Configuration    map[string]any `json:"configuration,omitempty"`
	ResultPrompt     *string        `json:"result_prompt,omitempty"`
	QualityAnalysis  map[string]any `json:"quality_analysis,omitempty"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	ProcessingTimeMs *int64         `json:"processing_time_ms,omitempty"`
	CreatedAt        int64          `json:"created_at"`
	UpdatedAt        int64          `json:"updated_at"`
	CompletedAt      *int64         `json:"completed_at,omitempty"`
}

// QueueEntry is a content source awaiting batch synthesis.
type QueueEntry struct {
	ID              string  `json:"id"`
	RealmID         string  `json:"realm_id"`
	ContentSourceID string  `json:"content_source_id"`
	Priority        float64 `json:"priority"`
	Processed       bool    `json:"processed"`
	CreatedAt       int64   `json:"created_at"`
	ProcessedAt     *int64  `json:"processed_at,omitempty"`
}
