package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/DIPEDEV/batalla-numeros/services"
	"github.com/DIPEDEV/batalla-numeros/storage"
	"github.com/DIPEDEV/batalla-numeros/store"

	"github.com/gin-gonic/gin"
)

var statusByError = []struct {
	err    error
	status int
}{
	{services.ErrMatchNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{storage.ErrNotFound, http.StatusNotFound},
	{services.ErrNotHost, http.StatusForbidden},
	{services.ErrAnonymousUser, http.StatusForbidden},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrMatchFull, http.StatusConflict},
	{services.ErrMatchInProgress, http.StatusConflict},
	{services.ErrNameTaken, http.StatusConflict},
	{services.ErrReservedName, http.StatusConflict},
	{services.ErrUsernameTaken, http.StatusConflict},
	{services.ErrEmailTaken, http.StatusConflict},
	{services.ErrIllegalTransition, http.StatusConflict},
	{store.ErrConflict, http.StatusConflict},
	{services.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
	{services.ErrOAuthDisabled, http.StatusServiceUnavailable},
}

var validationErrors = []error{
	services.ErrPracticeMatch,
	services.ErrInvalidName,
	services.ErrInvalidConfig,
	services.ErrNoCompetitors,
	services.ErrNotBot,
	services.ErrNotInMatch,
	services.ErrNoPowerUp,
	services.ErrNoTarget,
	services.ErrUnknownReaction,
	services.ErrInvalidUsername,
	services.ErrInvalidImage,
	storage.ErrInvalidKey,
}

// statusFor maps a service error to its HTTP status. Anything unknown is
// an internal failure.
func statusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	return userID, true
}
