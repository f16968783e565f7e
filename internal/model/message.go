package model

import "time"

const (
	FeedbackNone     = ""
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// SourceCandidate is a citation exactly as the remote query service returns
// it. Filepath is null when the service has no locatable origin document for
// the match.
type SourceCandidate struct {
	Filepath *string `json:"filepath"`
	Score    float64 `json:"score"`
}

// Source is a display-ready citation; Filepath is always set.
type Source struct {
	Filepath string  `json:"filepath"`
	Score    float64 `json:"score"`
}

// Message is one query/answer exchange. ID, Query, Answer and Timestamp are
// fixed once the message is appended to a session; only Feedback may change
// afterwards, and only after the feedback service has confirmed the new value.
type Message struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
}
