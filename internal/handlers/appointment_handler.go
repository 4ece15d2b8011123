package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/middleware"
	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/scheduling"
)

type createAppointmentRequest struct {
	DoctorID string    `json:"doctorId" binding:"required"`
	Name     string    `json:"name" binding:"required"`
	Email    string    `json:"email" binding:"required"`
	Mobile   string    `json:"mobile" binding:"required"`
	Gender   string    `json:"gender" binding:"required"`
	Address  string    `json:"address" binding:"required"`
	Age      int       `json:"age" binding:"required"`
	Disease  string    `json:"disease" binding:"required"`
	Date     time.Time `json:"date" binding:"required"`
	Message  string    `json:"message"`
}

// CreateAppointment books an appointment for the authenticated patient.
func (h *Handler) CreateAppointment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.Role != models.RolePatient {
		c.JSON(http.StatusForbidden, gin.H{"message": "Only patients can book appointments."})
		return
	}

	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All required fields must be provided."})
		return
	}

	doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid doctor or patient ID."})
		return
	}

	apt, err := h.Appointments.Create(c.Request.Context(), user.ID, scheduling.CreateInput{
		DoctorID: doctorID,
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Gender:   req.Gender,
		Address:  req.Address,
		Age:      req.Age,
		Disease:  req.Disease,
		Date:     req.Date,
		Message:  req.Message,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apt)
}

// GetPatientAppointments lists the authenticated patient's appointments,
// newest first.
func (h *Handler) GetPatientAppointments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	appointments, err := h.Repo.ListByPatient(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// GetDoctorAppointments lists the authenticated doctor's appointments.
func (h *Handler) GetDoctorAppointments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	appointments, err := h.Repo.ListByDoctor(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

type updateAppointmentRequest struct {
	Date   *time.Time `json:"date"`
	Status *string    `json:"status"`
	// Revision the caller last read; stale values are rejected so two
	// concurrent edits cannot silently overwrite each other.
	Revision int64 `json:"revision" binding:"required"`
}

// UpdateAppointment handles both reschedules (date) and decisions
// (status). Status changes are reserved for the assigned doctor;
// reschedules are open to either party.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid appointment ID."})
		return
	}

	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}
	if req.Date == nil && req.Status == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No fields to update."})
		return
	}

	actor := scheduling.Actor{ID: user.ID, Role: user.Role}
	ctx := c.Request.Context()
	revision := req.Revision

	var apt *models.Appointment
	if req.Date != nil {
		apt, err = h.Appointments.Reschedule(ctx, id, actor, *req.Date, revision)
		if err != nil {
			h.respondError(c, err)
			return
		}
		revision = apt.Revision
	}
	if req.Status != nil {
		apt, err = h.Appointments.UpdateStatus(ctx, id, actor, *req.Status, revision)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment updated successfully.", "appointment": apt})
}

// DeleteAppointment cancels (removes) the appointment. Either party may
// cancel; the cancellation notice carries the deleted snapshot.
func (h *Handler) DeleteAppointment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid appointment ID."})
		return
	}

	actor := scheduling.Actor{ID: user.ID, Role: user.Role}
	if err := h.Appointments.Cancel(c.Request.Context(), id, actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted successfully."})
}
