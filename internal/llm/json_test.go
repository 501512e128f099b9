package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/config"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\nplain\n```", "plain"},
		{"  no fences  ", "no fences"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, StripFences(tt.in))
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Themes []string `json:"themes"`
		Score  float64  `json:"quality_score"`
	}
	err := DecodeJSON("```json\n{\"themes\": [\"work\"], \"quality_score\": 0.8}\n```", &out)
	require.NoError(t, err)
	require.Equal(t, []string{"work"}, out.Themes)
	require.Equal(t, 0.8, out.Score)
}

func TestDecodeJSON_Errors(t *testing.T) {
	var out map[string]any
	require.Error(t, DecodeJSON("", &out))
	require.Error(t, DecodeJSON("```json\n```", &out))
	require.Error(t, DecodeJSON("Sure! Here is the JSON: {", &out))
}

func TestNew_WithoutKeyIsUnavailable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.APIKey = ""

	gen, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.True(t, errors.Is(err, ErrUnavailable))

	_, err = gen.Stream(context.Background(), Request{Prompt: "hi"}, nil)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	require.Error(t, err)
}
