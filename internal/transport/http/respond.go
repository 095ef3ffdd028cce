package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/domain"
)

func respond(c *gin.Context, status int, message string, result any) {
	body := gin.H{"success": true, "message": message}
	if result != nil {
		body["result"] = result
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	if kind == domain.KindUnknown {
		// The wrapped cause stays in the log; the client sees a generic line.
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "error": kind.String()})
}

func respondInvalidBody(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "invalid request body",
		"error":   domain.KindValidation.String(),
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindNotAuthenticated, domain.KindTokenInvalid, domain.KindTokenExpired:
		return http.StatusUnauthorized
	case domain.KindNotAuthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
