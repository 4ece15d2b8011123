// Package handlers contains the gin HTTP layer. Handlers bind and
// validate request bodies, delegate to the stores and the scheduling
// manager, and translate domain errors into the response taxonomy.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/healthcareclinic/clinic-api/internal/config"
	"github.com/healthcareclinic/clinic-api/internal/mail"
	"github.com/healthcareclinic/clinic-api/internal/otp"
	"github.com/healthcareclinic/clinic-api/internal/scheduling"
	"github.com/healthcareclinic/clinic-api/internal/storage"
	"github.com/healthcareclinic/clinic-api/internal/store"
	"github.com/healthcareclinic/clinic-api/internal/token"
)

// Handler carries every collaborator the HTTP layer needs. All of them are
// constructor-scoped: nothing here reaches for package globals.
type Handler struct {
	Users        *store.Users
	Admins       *store.Admins
	Documents    *store.Documents
	Appointments *scheduling.Manager
	Repo         *scheduling.Repository
	Tokens       *token.Manager
	Mailer       mail.Sender
	Uploader     storage.Uploader
	Cfg          *config.Config
	Log          *logrus.Logger
}

// respondError maps domain errors onto the HTTP taxonomy. Anything
// unrecognized collapses to a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": verr.Message})
	case errors.Is(err, otp.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired OTP."})
	case errors.Is(err, scheduling.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Unauthorized to update this appointment."})
	case errors.Is(err, scheduling.ErrStaleRevision):
		c.JSON(http.StatusConflict, gin.H{"message": "Appointment was modified by someone else. Reload and retry."})
	case errors.Is(err, scheduling.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Appointment not found."})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Already exists."})
	default:
		h.Log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
	}
}
