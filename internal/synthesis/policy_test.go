package synthesis

import (
	"testing"
	"time"

	"github.com/hpungsan/pathfinder/internal/config"
)

func TestDecide(t *testing.T) {
	cfg := config.DefaultConfig().Synthesis
	now := time.Unix(1_700_000_000, 0)
	tenMinutesAgo := now.Add(-10 * time.Minute).Unix()
	twoHoursAgo := now.Add(-2 * time.Hour).Unix()

	tests := []struct {
		name string
		in   PolicyInput
		want Decision
	}{
		{
			name: "disabled realm skips even high weight",
			in:   PolicyInput{SynthesisDisabled: true, Weight: 5, NewChars: 100, TotalChars: 100},
			want: Decision{ActionSkip, ReasonDisabled},
		},
		{
			name: "high weight synthesizes",
			in:   PolicyInput{Weight: 3.0, NewChars: 1, TotalChars: 1000, LastSynthesisAt: &tenMinutesAgo},
			want: Decision{ActionSynthesizeNow, ReasonHighWeight},
		},
		{
			name: "recent synthesis skips low weight",
			in:   PolicyInput{Weight: 2.4, NewChars: 900, TotalChars: 1000, LastSynthesisAt: &tenMinutesAgo},
			want: Decision{ActionSkip, ReasonRecent},
		},
		{
			name: "recent synthesis does not skip weight 2.5",
			in:   PolicyInput{Weight: 2.5, NewChars: 900, TotalChars: 1000, LastSynthesisAt: &tenMinutesAgo},
			want: Decision{ActionSynthesizeNow, ReasonSignificant},
		},
		{
			name: "old synthesis does not skip",
			in:   PolicyInput{Weight: 1, NewChars: 300, TotalChars: 1000, LastSynthesisAt: &twoHoursAgo},
			want: Decision{ActionSynthesizeNow, ReasonSignificant},
		},
		{
			name: "ratio just below threshold queues",
			in:   PolicyInput{Weight: 1, NewChars: 299, TotalChars: 1000},
			want: Decision{ActionQueue, ReasonQueued},
		},
		{
			name: "empty realm total uses floor of one",
			in:   PolicyInput{Weight: 1, NewChars: 0, TotalChars: 0},
			want: Decision{ActionQueue, ReasonQueued},
		},
		{
			name: "full queue drains",
			in:   PolicyInput{Weight: 1, NewChars: 10, TotalChars: 10000, PendingQueue: 5},
			want: Decision{ActionSynthesizeNow, ReasonBatchThreshold},
		},
		{
			name: "queue below threshold keeps queueing",
			in:   PolicyInput{Weight: 1, NewChars: 10, TotalChars: 10000, PendingQueue: 4},
			want: Decision{ActionQueue, ReasonQueued},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			if got := Decide(cfg, tt.in); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecide_CustomThresholds(t *testing.T) {
	cfg := config.DefaultConfig().Synthesis
	cfg.HighWeightThreshold = 4.5
	cfg.BatchThreshold = 2

	got := Decide(cfg, PolicyInput{Weight: 4, NewChars: 1, TotalChars: 1000, PendingQueue: 2, Now: time.Now()})
	if got.Reason != ReasonBatchThreshold {
		t.Errorf("Reason = %s, want %s", got.Reason, ReasonBatchThreshold)
	}
}
