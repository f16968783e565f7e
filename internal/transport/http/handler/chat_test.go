package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	appsvc "insightdocs-gateway/internal/app"
	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/store"
	"insightdocs-gateway/internal/transport/http/handler"
	"insightdocs-gateway/internal/transport/http/middleware"
	"insightdocs-gateway/internal/upstream"
)

// newTestRouter wires the chat routes against a stub upstream API. The
// returned counter tracks upstream query calls.
func newTestRouter(t *testing.T, upstreamHandler http.HandlerFunc, token string) (http.Handler, *atomic.Int32) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstreamHandler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := upstream.NewClient(upstream.Config{
		BaseURL: srv.URL,
		QueryPaths: map[string]string{
			"tech":     "/query/search",
			"non-tech": "/query/search-non-technical",
		},
		FeedbackPath: "/query/feedback",
	})
	creds := auth.NewContextProvider(auth.NewStaticProvider(token))
	sessions := store.NewSessionStore(store.NewMemoryKV())
	pipeline := appsvc.NewQueryPipeline(client, creds)
	recorder := appsvc.NewFeedbackRecorder(client, creds)

	managers := appsvc.NewManagerSet([]string{"tech", "non-tech"}, func(scope string) *appsvc.SessionManager {
		return appsvc.NewSessionManager(scope, pipeline, recorder, sessions, nil)
	})

	router := gin.New()
	chatHandler := handler.NewChatHandler(managers, nil)
	group := router.Group("/api/v1/chat")
	group.Use(middleware.BearerToken())
	group.POST("/:scope/messages", chatHandler.Submit)
	group.GET("/:scope/history", chatHandler.History)
	group.POST("/:scope/feedback", chatHandler.Feedback)
	group.POST("/:scope/scroll", chatHandler.Scroll)
	group.DELETE("/:scope/history", chatHandler.Clear)
	return router, &calls
}

func answerStub(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(`{"answer":"X is Y","sources":[{"filepath":"a.md","score":0.9}]}`))
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitReturnsMessageAndView(t *testing.T) {
	router, _ := newTestRouter(t, answerStub, "configured-token")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/messages", `{"query":"What is X?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Message struct {
				Answer  string `json:"answer"`
				Sources []struct {
					Filepath string `json:"filepath"`
				} `json:"sources"`
			} `json:"message"`
			View struct {
				State    string `json:"state"`
				Messages []any  `json:"messages"`
			} `json:"view"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Data.Message.Answer != "X is Y" {
		t.Fatalf("answer = %q", resp.Data.Message.Answer)
	}
	if len(resp.Data.Message.Sources) != 1 || resp.Data.Message.Sources[0].Filepath != "a.md" {
		t.Fatalf("sources = %+v", resp.Data.Message.Sources)
	}
	if resp.Data.View.State != "idle" || len(resp.Data.View.Messages) != 1 {
		t.Fatalf("view = %+v", resp.Data.View)
	}
}

func TestSubmitUnknownScope(t *testing.T) {
	router, calls := newTestRouter(t, answerStub, "token")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/legal/messages", `{"query":"q"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if calls.Load() != 0 {
		t.Fatalf("upstream called for unknown scope")
	}
}

func TestSubmitWithoutAnyCredential(t *testing.T) {
	router, calls := newTestRouter(t, answerStub, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/messages", `{"query":"q"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
	}
	if calls.Load() != 0 {
		t.Fatalf("upstream called without a credential")
	}
}

func TestSubmitForwardsRequestBearer(t *testing.T) {
	var gotAuth string
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		answerStub(w, r)
	}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/tech/messages", bytes.NewReader([]byte(`{"query":"q"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer caller-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	if gotAuth != "Bearer caller-token" {
		t.Fatalf("upstream authorization = %q", gotAuth)
	}
}

func TestSubmitUpstreamErrorSurfacesMessage(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}, "token")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/messages", `{"query":"q"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Message != "db down" {
		t.Fatalf("message = %q, want service-provided text", resp.Message)
	}

	// The failure is also visible on the view, and history stays empty.
	hw := doJSON(t, router, http.MethodGet, "/api/v1/chat/tech/history", "")
	var view struct {
		Data struct {
			Error    string `json:"error"`
			Messages []any  `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if view.Data.Error != "db down" {
		t.Fatalf("view error = %q", view.Data.Error)
	}
	if len(view.Data.Messages) != 0 {
		t.Fatalf("history length = %d, want 0", len(view.Data.Messages))
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	router, calls := newTestRouter(t, answerStub, "token")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/messages", `{"query":"q"}`)
	var resp struct {
		Data struct {
			Message struct {
				ID string `json:"id"`
			} `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}

	before := calls.Load()
	fw := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/feedback",
		`{"message_id":"`+resp.Data.Message.ID+`","positive":true}`)
	if fw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", fw.Code, fw.Body.String())
	}
	if calls.Load() != before+1 {
		t.Fatalf("feedback made %d upstream calls, want 1", calls.Load()-before)
	}

	// Same judgment again: no further upstream call.
	fw2 := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/feedback",
		`{"message_id":"`+resp.Data.Message.ID+`","positive":true}`)
	if fw2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", fw2.Code)
	}
	if calls.Load() != before+1 {
		t.Fatalf("repeated judgment reached upstream")
	}
}

func TestClearEmptiesScope(t *testing.T) {
	router, _ := newTestRouter(t, answerStub, "token")

	_ = doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/messages", `{"query":"q"}`)
	w := doJSON(t, router, http.MethodDelete, "/api/v1/chat/tech/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	hw := doJSON(t, router, http.MethodGet, "/api/v1/chat/tech/history", "")
	var view struct {
		Data struct {
			Messages []any `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if len(view.Data.Messages) != 0 {
		t.Fatalf("history length = %d after clear", len(view.Data.Messages))
	}
}

func TestScrollUpdatesFollowLatest(t *testing.T) {
	router, _ := newTestRouter(t, answerStub, "token")

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat/tech/scroll", `{"distance_from_bottom":200}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data struct {
			FollowLatest bool `json:"follow_latest"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Data.FollowLatest {
		t.Fatal("still following after scrolling away")
	}
}
