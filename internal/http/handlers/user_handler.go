package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
)

// UpdateProfileRequest sets the caller's display name.
type UpdateProfileRequest struct {
	// DisplayName is shown as senderName; whitespace is collapsed.
	DisplayName string `json:"displayName" binding:"required" example:"Green Valley Farm"`
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Set display name
// @Description Stores the caller's display name. Online conversation partners receive a refreshed list.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.UpdateProfileRequest  true  "Profile"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "displayName required")
		return
	}
	u, err := h.userSvc.SetDisplayName(c.Request.Context(), middleware.UserID(c), req.DisplayName)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed, "failed to update profile")
		return
	}
	ok(c, http.StatusOK, u)
}
