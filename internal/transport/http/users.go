package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/domain"
	"github.com/Chung305/threadline/internal/service/session"
	"github.com/Chung305/threadline/internal/transport/http/middleware"
)

type UserHandler struct {
	Sessions *session.Service
}

func NewUserHandler(sessions *session.Service) *UserHandler {
	return &UserHandler{Sessions: sessions}
}

// List returns every account. The route is gated on the ADMIN role.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Sessions.GetUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "users fetched", users)
}

// Me returns the authenticated account, re-read from the store so the
// response reflects updates made since the token was issued.
func (h *UserHandler) Me(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, domain.NotAuthenticated("not authenticated"))
		return
	}
	fresh, err := h.Sessions.GetUser(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "user fetched", fresh)
}

// Update applies a partial update to the authenticated account. Absent
// fields keep their value.
func (h *UserHandler) Update(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, domain.NotAuthenticated("not authenticated"))
		return
	}

	var req struct {
		Email       *string `json:"email"`
		Username    *string `json:"username"`
		DisplayName *string `json:"display_name"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	trim(req.Email)
	trim(req.Username)
	trim(req.DisplayName)

	updated, err := h.Sessions.UpdateUser(c.Request.Context(), session.UpdateUserParams{
		ID:          account.ID,
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "user updated", updated)
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
