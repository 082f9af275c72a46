// Package history holds the conversation transcript replayed to the model on every call.
package history

import (
	"strings"
	"time"
)

// Role tags the origin of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one piece of turn content. Only text is produced today.
type Part struct {
	Text string `json:"text"`
}

// Turn is one message unit in the transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTurn builds a user-origin turn with a single text part.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}, CreatedAt: time.Now().UTC()}
}

// ModelTurn builds a model-origin turn with a single text part.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []Part{{Text: text}}, CreatedAt: time.Now().UTC()}
}

// Text concatenates the text of all parts.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
