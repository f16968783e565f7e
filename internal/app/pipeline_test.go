package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"insightdocs-gateway/internal/app"
	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/upstream"
)

func pipelineClient(baseURL string) *upstream.Client {
	return upstream.NewClient(upstream.Config{
		BaseURL:      baseURL,
		QueryPaths:   map[string]string{"tech": "/query/search"},
		FeedbackPath: "/query/feedback",
	})
}

func TestPipelineComposesRankedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"answer": "X is Y",
			"sources": [
				{"filepath": "a.md", "score": 0.9},
				{"filepath": "a.md", "score": 0.5},
				{"filepath": null, "score": 0.99}
			]
		}`))
	}))
	defer srv.Close()

	p := app.NewQueryPipeline(pipelineClient(srv.URL), auth.NewStaticProvider("token-1"))

	msg, err := p.Run(context.Background(), "tech", "What is X?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected a fresh message id")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("expected a timestamp")
	}
	if msg.Answer != "X is Y" {
		t.Fatalf("answer = %q", msg.Answer)
	}
	if len(msg.Sources) != 1 {
		t.Fatalf("sources = %+v, want exactly one after dedup", msg.Sources)
	}
	if msg.Sources[0].Filepath != "a.md" || msg.Sources[0].Score != 0.9 {
		t.Fatalf("sources[0] = %+v", msg.Sources[0])
	}
}

func TestPipelineMissingCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := app.NewQueryPipeline(pipelineClient(srv.URL), auth.NewStaticProvider(""))

	_, err := p.Run(context.Background(), "tech", "q")
	if !errors.Is(err, app.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("network called %d times despite missing credential", calls.Load())
	}
}

func TestPipelineEmptyQuery(t *testing.T) {
	p := app.NewQueryPipeline(pipelineClient("http://127.0.0.1:0"), auth.NewStaticProvider("token"))

	_, err := p.Run(context.Background(), "tech", "   ")
	if !errors.Is(err, app.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestPipelineFreshIDsPerRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	p := app.NewQueryPipeline(pipelineClient(srv.URL), auth.NewStaticProvider("token"))

	first, err := p.Run(context.Background(), "tech", "q")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := p.Run(context.Background(), "tech", "q")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("ids not unique: %q", first.ID)
	}
}
