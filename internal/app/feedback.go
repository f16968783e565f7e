package app

import (
	"context"

	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/model"
	"insightdocs-gateway/internal/upstream"
)

// FeedbackRecorder submits one judgment for one message to the remote
// feedback service. Idempotence per message lives in the session manager,
// which owns the confirmed feedback state.
type FeedbackRecorder struct {
	client *upstream.Client
	creds  auth.CredentialProvider
}

func NewFeedbackRecorder(client *upstream.Client, creds auth.CredentialProvider) *FeedbackRecorder {
	return &FeedbackRecorder{client: client, creds: creds}
}

func (r *FeedbackRecorder) Submit(ctx context.Context, msg model.Message, positive bool) error {
	token, err := r.creds.Token(ctx)
	if err != nil {
		return ErrAuthMissing
	}
	return r.client.SubmitFeedback(ctx, token, msg, positive)
}
