package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/model"
	"insightdocs-gateway/internal/ranker"
	"insightdocs-gateway/internal/upstream"
)

var (
	ErrEmptyQuery  = errors.New("query is empty")
	ErrAuthMissing = errors.New("authentication required")
)

// QueryPipeline executes exactly one query round trip: credential lookup,
// one dispatch to the scope's endpoint, and composition of the resulting
// Message with ranked sources. No retries; a failed call is surfaced.
type QueryPipeline struct {
	client *upstream.Client
	creds  auth.CredentialProvider
}

func NewQueryPipeline(client *upstream.Client, creds auth.CredentialProvider) *QueryPipeline {
	return &QueryPipeline{client: client, creds: creds}
}

// Run submits one query for the scope. The credential is resolved fresh on
// every call; with no credential available, no network call is made.
func (p *QueryPipeline) Run(ctx context.Context, scope, query string) (*model.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	token, err := p.creds.Token(ctx)
	if err != nil {
		return nil, ErrAuthMissing
	}

	result, err := p.client.Query(ctx, token, scope, query)
	if err != nil {
		return nil, err
	}

	return &model.Message{
		ID:        uuid.NewString(),
		Query:     query,
		Answer:    result.Answer,
		Timestamp: time.Now(),
		Sources:   ranker.Rank(result.Sources),
	}, nil
}
