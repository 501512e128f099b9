package content

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Analysis
	}{
		{
			name: "professional and detail oriented",
			text: "I work as a careful editor.",
			want: Analysis{
				Themes:               []string{"professional"},
				Traits:               []string{"detail-oriented"},
				ContentLength:        27,
				ImportanceIndicators: 0,
			},
		},
		{
			name: "case insensitive multi-word phrase",
			text: "I WANT TO Study design",
			want: Analysis{
				Themes:               []string{"learning", "goals"},
				Traits:               []string{"creative"},
				ContentLength:        22,
				ImportanceIndicators: 0,
			},
		},
		{
			name: "importance words counted once each",
			text: "It is important, important and critical to be key",
			want: Analysis{
				Themes:               []string{"values"},
				Traits:               []string{},
				ContentLength:        49,
				ImportanceIndicators: 3,
			},
		},
		{
			name: "tags follow rule order",
			text: "I believe in helping people reach their career dreams",
			want: Analysis{
				Themes:               []string{"professional", "goals", "values"},
				Traits:               []string{"collaborative"},
				ContentLength:        53,
				ImportanceIndicators: 0,
			},
		},
		{
			name: "empty",
			text: "",
			want: Analysis{Themes: []string{}, Traits: []string{}},
		},
		{
			name: "length counts runes",
			text: "héllo wörld",
			want: Analysis{Themes: []string{}, Traits: []string{}, ContentLength: 11},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Analyze(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	text := "My key goal is to learn precise creative work."
	first := Analyze(text)
	second := Analyze(text)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Analyze not idempotent (-first +second):\n%s", diff)
	}
}

func TestAnalysisFromMetadata_RoundTripsThroughJSON(t *testing.T) {
	a := Analyze("I value careful work")
	md := WithAnalysis(map[string]any{"origin": "test"}, a, 1700000000)

	data, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got, ok := AnalysisFromMetadata(decoded)
	if !ok {
		t.Fatal("AnalysisFromMetadata() ok = false, want true")
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("analysis mismatch (-want +got):\n%s", diff)
	}
	if decoded["origin"] != "test" {
		t.Errorf("existing metadata lost: %v", decoded)
	}
}

func TestAnalysisFromMetadata_Missing(t *testing.T) {
	if _, ok := AnalysisFromMetadata(nil); ok {
		t.Error("AnalysisFromMetadata(nil) ok = true, want false")
	}
	if _, ok := AnalysisFromMetadata(map[string]any{MetadataAnalysisKey: "junk"}); ok {
		t.Error("AnalysisFromMetadata(junk) ok = true, want false")
	}
}

func TestWithAnalysis_DoesNotMutateInput(t *testing.T) {
	md := map[string]any{"a": 1}
	_ = WithAnalysis(md, Analyze("x"), 1)
	if _, ok := md[MetadataAnalysisKey]; ok {
		t.Error("WithAnalysis mutated its input")
	}
}
