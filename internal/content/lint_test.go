package content

import "testing"

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		weight   float64
		maxChars int
		want     Problem
	}{
		{"valid", "hello", 1, 100, ""},
		{"blank body", "  \n ", 1, 0, ProblemEmpty},
		{"too large", "abcdef", 1, 5, ProblemTooLarge},
		{"multibyte counted as runes", "héllo", 1, 5, ""},
		{"weight above range", "x", 5.5, 0, ProblemWeight},
		{"negative weight", "x", -0.1, 0, ProblemWeight},
		{"boundary weights are valid", "x", 5, 0, ""},
		{"no max means unlimited", "a long enough body", 0, 0, ""},
		{"empty wins over weight", "", 9, 0, ProblemEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.body, tt.weight, tt.maxChars); got != tt.want {
				t.Errorf("Check(%q, %v, %d) = %q, want %q", tt.body, tt.weight, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestToSummary(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'a'
	}
	src := &ContentSource{
		ID:         "s1",
		SourceType: SourceText,
		Content:    string(long) + " I work on design",
		Weight:     2,
	}

	sum := src.ToSummary()
	if sum.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", sum.Title)
	}
	if CountChars(sum.Preview) != PreviewChars+3 {
		t.Errorf("Preview length = %d", CountChars(sum.Preview))
	}
	if len(sum.Themes) != 1 || sum.Themes[0] != "professional" {
		t.Errorf("Themes = %v", sum.Themes)
	}
	if len(sum.Traits) != 1 || sum.Traits[0] != "creative" {
		t.Errorf("Traits = %v", sum.Traits)
	}
}
