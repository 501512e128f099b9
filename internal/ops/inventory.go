package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
)

// RealmInfo is the realm header of a content map.
type RealmInfo struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	CurrentVersion    int      `json:"current_version"`
	QualityScore      *float64 `json:"quality_score,omitempty"`
	LastSynthesisAt   *int64   `json:"last_synthesis_at,omitempty"`
	SynthesisDisabled bool     `json:"synthesis_disabled"`
	PendingBatchCount int      `json:"pending_batch_count"`
}

// ContentMapEntry is one source in a content map.
type ContentMapEntry struct {
	content.SourceSummary
	ImportanceIndicators int `json:"importance_indicators"`
}

// ContentStats aggregates the sources of a realm.
type ContentStats struct {
	TotalSources      int                        `json:"total_sources"`
	ByType            map[content.SourceType]int `json:"by_type"`
	TotalWeight       float64                    `json:"total_weight"`
	AverageWeight     float64                    `json:"average_weight"`
	HighPriorityCount int                        `json:"high_priority_count"`
}

// ContentMapOutput contains the result of the ContentMap operation.
type ContentMapOutput struct {
	RealmInfo      RealmInfo                                `json:"realm_info"`
	ContentSources map[content.SourceType][]ContentMapEntry `json:"content_sources"`
	Statistics     ContentStats                             `json:"statistics"`
}

// ContentMap builds an overview of everything a realm's prompt is built from:
// sources grouped by type with previews and tags, plus weight statistics.
// High priority means at or above the high-weight threshold.
func ContentMap(ctx context.Context, env *Env, realmID string) (*ContentMapOutput, error) {
	realmID, err := requireID(realmID, "realm_id")
	if err != nil {
		return nil, err
	}
	realm, err := db.GetRealm(ctx, env.DB, realmID)
	if err != nil {
		return nil, err
	}
	sources, err := db.ListSources(ctx, env.DB, db.SourceFilter{RealmID: &realm.ID})
	if err != nil {
		return nil, err
	}
	pending, err := db.CountPendingQueue(ctx, env.DB, realm.ID)
	if err != nil {
		return nil, err
	}

	out := &ContentMapOutput{
		RealmInfo: RealmInfo{
			ID:                realm.ID,
			Name:              realm.Name,
			CurrentVersion:    realm.CurrentVersion,
			QualityScore:      realm.QualityScore,
			LastSynthesisAt:   realm.LastSynthesisAt,
			SynthesisDisabled: realm.SynthesisDisabled,
			PendingBatchCount: pending,
		},
		ContentSources: make(map[content.SourceType][]ContentMapEntry, len(content.AllSourceTypes)),
		Statistics: ContentStats{
			TotalSources: len(sources),
			ByType:       make(map[content.SourceType]int),
		},
	}
	for _, t := range content.AllSourceTypes {
		out.ContentSources[t] = []ContentMapEntry{}
	}

	threshold := env.Config.Synthesis.HighWeightThreshold
	for _, s := range sources {
		entry := ContentMapEntry{SourceSummary: s.ToSummary()}
		if a, ok := content.AnalysisFromMetadata(s.Metadata); ok {
			entry.ImportanceIndicators = a.ImportanceIndicators
		}
		out.ContentSources[s.SourceType] = append(out.ContentSources[s.SourceType], entry)

		stats := &out.Statistics
		stats.TotalWeight += s.Weight
		stats.ByType[s.SourceType]++
		if s.Weight >= threshold {
			stats.HighPriorityCount++
		}
	}
	if len(sources) > 0 {
		out.Statistics.AverageWeight = out.Statistics.TotalWeight / float64(len(sources))
	}
	return out, nil
}
