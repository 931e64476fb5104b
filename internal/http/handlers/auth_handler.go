package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/auth"
)

// IssueTokenRequest names the identity a development token is minted for.
type IssueTokenRequest struct {
	UserID string `json:"userId" binding:"required" example:"buyer-7"`
	Name   string `json:"name,omitempty" example:"Ana"`
}

// IssueTokenResponse carries a signed bearer token.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken godoc
// @ID          issueToken
// @Summary     Issue a development token
// @Description Mints an HS256 bearer token for any user id. Mounted only when AUTH_DEV_TOKENS is enabled.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.IssueTokenRequest  true  "Identity"
//
// @Success     201  {object}  handlers.IssueTokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Tokens disabled"
// @Router      /auth/token [post]
func (h *Handlers) IssueToken(c *gin.Context) {
	if h.tokens == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	}
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId required")
		return
	}
	tok, exp, err := h.tokens.IssueToken(req.UserID, req.Name, h.tokenTTL)
	switch {
	case errors.Is(err, auth.ErrTokensDisabled):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid user id")
		return
	}
	ok(c, http.StatusCreated, IssueTokenResponse{Token: tok, ExpiresAt: exp})
}
