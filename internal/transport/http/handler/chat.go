package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insightdocs-gateway/internal/app"
	"insightdocs-gateway/internal/model"
	"insightdocs-gateway/internal/repository"
	"insightdocs-gateway/internal/transport/http/response"
	"insightdocs-gateway/internal/upstream"
)

type ChatHandler struct {
	managers     *app.ManagerSet
	exchangeRepo *repository.ExchangeRepository
}

type SubmitRequest struct {
	Query string `json:"query" binding:"required"`
}

type FeedbackRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Positive  *bool  `json:"positive" binding:"required"`
}

type ScrollRequest struct {
	DistanceFromBottom float64 `json:"distance_from_bottom"`
}

func NewChatHandler(managers *app.ManagerSet, exchangeRepo *repository.ExchangeRepository) *ChatHandler {
	return &ChatHandler{managers: managers, exchangeRepo: exchangeRepo}
}

// Submit runs one query for the scope and returns the refreshed view state.
// A rejected submission (empty query, one already in flight) reaches the
// client as an error without any upstream call having been made.
func (h *ChatHandler) Submit(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	msg, err := manager.Submit(c.Request.Context(), req.Query)
	if err != nil {
		var reqErr *upstream.RequestError
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSubmissionInFlight):
			response.Error(c, http.StatusConflict, response.CodeSubmissionBusy, err.Error())
		case errors.Is(err, app.ErrAuthMissing):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.As(err, &reqErr):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, reqErr.Message)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit query failed")
		}
		return
	}

	response.OK(c, gin.H{
		"message": msg,
		"view":    manager.View(),
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}
	response.OK(c, manager.View())
}

func (h *ChatHandler) Feedback(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Positive == nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	err := manager.SubmitFeedback(c.Request.Context(), req.MessageID, *req.Positive)
	if err != nil {
		var reqErr *upstream.RequestError
		switch {
		case errors.Is(err, app.ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, response.CodeMessageNotFound, err.Error())
		case errors.Is(err, app.ErrFeedbackInFlight):
			response.Error(c, http.StatusConflict, response.CodeFeedbackBusy, err.Error())
		case errors.Is(err, app.ErrAuthMissing):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.As(err, &reqErr):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, reqErr.Message)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit feedback failed")
		}
		return
	}

	response.OK(c, manager.View())
}

// Clear wipes the live history, its durable entry, and the archived rows for
// the scope.
func (h *ChatHandler) Clear(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	if err := manager.Clear(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear history failed")
		return
	}
	if h.exchangeRepo != nil {
		if err := h.exchangeRepo.DeleteByScope(c.Param("scope")); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear archive failed")
			return
		}
	}

	response.OK(c, gin.H{"cleared_scope": c.Param("scope")})
}

func (h *ChatHandler) Scroll(c *gin.Context) {
	manager, ok := h.manager(c)
	if !ok {
		return
	}

	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	manager.RecordScroll(req.DistanceFromBottom)
	response.OK(c, gin.H{"follow_latest": manager.View().FollowLatest})
}

// Archive returns the long-term archived transcript for the scope.
func (h *ChatHandler) Archive(c *gin.Context) {
	scope := c.Param("scope")
	if _, ok := h.manager(c); !ok {
		return
	}
	if h.exchangeRepo == nil {
		response.OK(c, []model.ExchangeRecord{})
		return
	}

	records, err := h.exchangeRepo.ListByScope(scope, 0)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list archive failed")
		return
	}
	response.OK(c, records)
}

func (h *ChatHandler) manager(c *gin.Context) (*app.SessionManager, bool) {
	manager, err := h.managers.Get(c.Request.Context(), c.Param("scope"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeScopeNotFound, err.Error())
		return nil, false
	}
	return manager, true
}
