package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/service/session"
	"github.com/Chung305/threadline/internal/transport/http/middleware"
)

type AuthHandler struct {
	Sessions *session.Service
}

func NewAuthHandler(sessions *session.Service) *AuthHandler {
	return &AuthHandler{Sessions: sessions}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	result, err := h.Sessions.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "user registered", result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Credential string `json:"credential"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	// Clients may send the identifier as credential, username, or email.
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		credential = strings.TrimSpace(req.Username)
	}
	if credential == "" {
		credential = strings.TrimSpace(req.Email)
	}

	result, err := h.Sessions.Login(c.Request.Context(), credential, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "login successful", result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	result, err := h.Sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "token refreshed", result)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	accessToken := middleware.BearerToken(c)
	if err := h.Sessions.Logout(c.Request.Context(), req.RefreshToken, accessToken); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "logged out", nil)
}
