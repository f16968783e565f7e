package model

// Session is the full ordered history for one conversational scope. Messages
// are chronological: the oldest exchange first, new exchanges appended at the
// end.
type Session struct {
	ScopeKey string    `json:"scope_key"`
	Messages []Message `json:"messages"`
}
