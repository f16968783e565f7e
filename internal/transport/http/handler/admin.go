package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insightdocs-gateway/internal/auth"
	"insightdocs-gateway/internal/transport/http/response"
	"insightdocs-gateway/internal/upstream"
)

// AdminHandler proxies the remote corpus maintenance endpoints.
type AdminHandler struct {
	client *upstream.Client
	creds  auth.CredentialProvider
}

func NewAdminHandler(client *upstream.Client, creds auth.CredentialProvider) *AdminHandler {
	return &AdminHandler{client: client, creds: creds}
}

func (h *AdminHandler) PopulateConfluence(c *gin.Context) {
	h.run(c, upstream.OpPopulateConfluence)
}

func (h *AdminHandler) PopulateMarkdown(c *gin.Context) {
	h.run(c, upstream.OpPopulateMarkdown)
}

func (h *AdminHandler) Reset(c *gin.Context) {
	h.run(c, upstream.OpReset)
}

func (h *AdminHandler) run(c *gin.Context, op upstream.AdminOperation) {
	ctx := c.Request.Context()

	token, err := h.creds.Token(ctx)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
		return
	}

	msg, err := h.client.RunAdminOperation(ctx, token, op)
	if err != nil {
		var reqErr *upstream.RequestError
		if errors.As(err, &reqErr) {
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, reqErr.Message)
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "admin operation failed")
		return
	}

	response.OK(c, gin.H{"message": msg})
}
