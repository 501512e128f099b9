package content

import "strings"

// Reflection is a question posed to the user within a realm.
type Reflection struct {
	ID              string  `json:"id"`
	RealmID         *string `json:"realm_id,omitempty"`
	Question        string  `json:"question"`
	Answer          *string `json:"answer,omitempty"`
	Category        *string `json:"category,omitempty"`
	ImportanceScore float64 `json:"importance_score"`
	CreatedAt       int64   `json:"created_at"`
	AnsweredAt      *int64  `json:"answered_at,omitempty"`
}

// IsAnswered reports whether the reflection carries a non-blank answer.
func (r *Reflection) IsAnswered() bool {
	return r.Answer != nil && strings.TrimSpace(*r.Answer) != ""
}

// Text is a free-form document ingested by the user.
type Text struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	SourceFileName *string `json:"source_file_name,omitempty"`
	CreatedAt      int64   `json:"created_at"`
}
