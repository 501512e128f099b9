package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes Markdown code fences (``` and ```json) and surrounding
// whitespace from model output.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// DecodeJSON strips code fences from text and unmarshals the rest into v.
func DecodeJSON(text string, v any) error {
	cleaned := StripFences(text)
	if cleaned == "" {
		return fmt.Errorf("empty model response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("malformed model JSON: %w", err)
	}
	return nil
}
