package synthesis

import (
	"time"

	"github.com/hpungsan/pathfinder/internal/config"
)

// Action is the outcome of the trigger policy.
type Action string

const (
	ActionSynthesizeNow Action = "SYNTHESIZE_NOW"
	ActionQueue         Action = "QUEUE_FOR_BATCH"
	ActionSkip          Action = "SKIP"
)

// Reason explains which rule produced an Action.
type Reason string

const (
	ReasonDisabled       Reason = "synthesis_disabled"
	ReasonHighWeight     Reason = "high_weight"
	ReasonRecent         Reason = "recent_synthesis"
	ReasonSignificant    Reason = "significant_content"
	ReasonBatchThreshold Reason = "batch_threshold"
	ReasonQueued         Reason = "queued"
)

// PolicyInput is a snapshot of everything the trigger policy looks at.
type PolicyInput struct {
	SynthesisDisabled bool
	Weight            float64

	// NewChars is the length of the new source; TotalChars is the realm's
	// total content length including it.
	NewChars   int
	TotalChars int

	LastSynthesisAt *int64
	Now             time.Time

	// PendingQueue counts unprocessed queue entries, not including the new source.
	PendingQueue int
}

// Decision is the policy result.
type Decision struct {
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
}

// Decide applies the trigger rules in order; the first match wins.
func Decide(cfg config.SynthesisConfig, in PolicyInput) Decision {
	if in.SynthesisDisabled {
		return Decision{ActionSkip, ReasonDisabled}
	}
	if in.Weight >= cfg.HighWeightThreshold {
		return Decision{ActionSynthesizeNow, ReasonHighWeight}
	}
	if in.LastSynthesisAt != nil {
		window := time.Duration(cfg.RecentWindowMinutes) * time.Minute
		since := in.Now.Sub(time.Unix(*in.LastSynthesisAt, 0))
		if since < window && in.Weight < cfg.RecentWeightThreshold {
			return Decision{ActionSkip, ReasonRecent}
		}
	}
	total := in.TotalChars
	if total < 1 {
		total = 1
	}
	if float64(in.NewChars)/float64(total) >= cfg.SignificantRatio {
		return Decision{ActionSynthesizeNow, ReasonSignificant}
	}
	if in.PendingQueue >= cfg.BatchThreshold {
		return Decision{ActionSynthesizeNow, ReasonBatchThreshold}
	}
	return Decision{ActionQueue, ReasonQueued}
}
