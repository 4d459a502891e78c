// Package conversation models the interview turn history sent to the
// text-generation collaborator.
package conversation

// Role identifies the speaker of a turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// HistoryWindow is the number of most recent turns kept when building a
// generation prompt. Older turns are silently dropped, never mutated.
const HistoryWindow = 15

// Turn is one utterance in the conversation. Turns are immutable once
// appended; insertion order is chronological.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Valid reports whether the turn passes shape validation.
func (t Turn) Valid() bool {
	if t.Content == "" {
		return false
	}
	return t.Role == RoleInterviewer || t.Role == RoleCandidate
}

// Sanitize filters out turns that fail shape validation. Malformed turns
// are dropped individually; the rest of the history is kept.
func Sanitize(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out
}

// Window returns the most recent HistoryWindow turns.
func Window(turns []Turn) []Turn {
	if len(turns) <= HistoryWindow {
		return turns
	}
	return turns[len(turns)-HistoryWindow:]
}
