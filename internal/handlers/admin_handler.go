package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/mail"
	"github.com/healthcareclinic/clinic-api/internal/middleware"
	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/otp"
	"github.com/healthcareclinic/clinic-api/internal/scheduling"
	"github.com/healthcareclinic/clinic-api/internal/utils"
)

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin checks back-office credentials and sends the admin OTP.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required."})
		return
	}

	ctx := c.Request.Context()
	admin, err := h.Admins.FindByEmail(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}
	if !utils.CheckPasswordHash(req.Password, admin.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}

	code, err := otp.Generate()
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Admins.SetChallenge(ctx, admin.ID, otp.NewChallenge(code, time.Now())); err != nil {
		h.respondError(c, err)
		return
	}

	subject, body := mail.OTPMessage("admin login", code)
	if err := h.Mailer.Send(admin.Email, subject, body); err != nil {
		h.Log.WithError(err).Error("failed to send admin OTP email")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email."})
}

// AdminVerifyOTP completes the admin login with a day-long session.
func (h *Handler) AdminVerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and OTP are required."})
		return
	}

	ctx := c.Request.Context()
	admin, err := h.Admins.FindByEmail(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired OTP."})
		return
	}

	ch := otp.Challenge{Code: admin.OTPCode, ExpiresAt: admin.OTPExpires, Attempts: admin.OTPAttempts}
	if err := ch.Verify(req.OTP, time.Now()); err != nil {
		if ch.Attempts != admin.OTPAttempts {
			if recErr := h.Admins.RecordAttempt(ctx, admin.ID, ch.Attempts); recErr != nil {
				h.Log.WithError(recErr).Error("failed to record admin OTP attempt")
			}
		}
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired OTP."})
		return
	}
	if err := h.Admins.ClearChallenge(ctx, admin.ID); err != nil {
		h.respondError(c, err)
		return
	}

	tok, err := h.Tokens.Issue(admin.ID.Hex(), models.RoleAdmin, h.Cfg.JWT.AdminTokenTTL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful.",
		"token":   tok,
		"admin":   gin.H{"email": admin.Email, "mobile": admin.Mobile, "role": admin.Role},
	})
}

type adminUpdateRequest struct {
	Password string `json:"password"`
	Mobile   string `json:"mobile"`
}

// AdminUpdate changes the admin's own password and/or mobile.
func (h *Handler) AdminUpdate(c *gin.Context) {
	admin := middleware.CurrentAdmin(c)
	var req adminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	var hashed string
	if req.Password != "" {
		var err error
		hashed, err = utils.HashPassword(req.Password)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}
	if err := h.Admins.UpdateDetails(c.Request.Context(), admin.ID, hashed, req.Mobile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin details updated successfully."})
}

// AdminAnalytics returns the dashboard counters.
func (h *Handler) AdminAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	totalDoctors, err := h.Users.CountByRole(ctx, models.RoleDoctor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	totalPatients, err := h.Users.CountByRole(ctx, models.RolePatient)
	if err != nil {
		h.respondError(c, err)
		return
	}
	todayAppointments, err := h.Repo.CountToday(ctx, time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	totalAppointments, err := h.Repo.CountAll(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalDoctors":      totalDoctors,
		"totalPatients":     totalPatients,
		"todayAppointments": todayAppointments,
		"totalAppointments": totalAppointments,
	})
}

// AdminListDoctors returns full doctor records for moderation.
func (h *Handler) AdminListDoctors(c *gin.Context) {
	h.adminListByRole(c, models.RoleDoctor)
}

func (h *Handler) AdminListPatients(c *gin.Context) {
	h.adminListByRole(c, models.RolePatient)
}

func (h *Handler) adminListByRole(c *gin.Context, role string) {
	users, err := h.Users.ListByRole(c.Request.Context(), role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) AdminRemoveDoctor(c *gin.Context) {
	h.adminRemoveByRole(c, models.RoleDoctor, "Doctor")
}

func (h *Handler) AdminRemovePatient(c *gin.Context) {
	h.adminRemoveByRole(c, models.RolePatient, "Patient")
}

func (h *Handler) adminRemoveByRole(c *gin.Context, role, label string) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Users.DeleteByRole(c.Request.Context(), id, role); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": label + " removed successfully."})
}

func (h *Handler) AdminBlockDoctor(c *gin.Context) {
	h.adminSetBlocked(c, models.RoleDoctor, "Doctor", true)
}

func (h *Handler) AdminUnblockDoctor(c *gin.Context) {
	h.adminSetBlocked(c, models.RoleDoctor, "Doctor", false)
}

func (h *Handler) AdminBlockPatient(c *gin.Context) {
	h.adminSetBlocked(c, models.RolePatient, "Patient", true)
}

func (h *Handler) AdminUnblockPatient(c *gin.Context) {
	h.adminSetBlocked(c, models.RolePatient, "Patient", false)
}

func (h *Handler) adminSetBlocked(c *gin.Context, role, label string, blocked bool) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Users.SetBlocked(c.Request.Context(), id, role, blocked); err != nil {
		h.respondError(c, err)
		return
	}
	action := "blocked"
	if !blocked {
		action = "unblocked"
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s %s successfully.", label, action)})
}

type editDoctorRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	ShortDesc      string `json:"shortDesc"`
	Specialty      string `json:"specialty"`
	Experience     string `json:"experience"`
	Qualifications string `json:"qualifications"`
}

// AdminEditDoctor updates doctor profile fields; empty values are left
// untouched.
func (h *Handler) AdminEditDoctor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req editDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	fields := bson.M{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Age > 0 {
		fields["age"] = req.Age
	}
	if req.Gender != "" {
		fields["gender"] = req.Gender
	}
	if req.ShortDesc != "" {
		fields["shortDesc"] = req.ShortDesc
	}
	if req.Specialty != "" {
		fields["specialty"] = req.Specialty
	}
	if req.Experience != "" {
		fields["experience"] = req.Experience
	}
	if req.Qualifications != "" {
		fields["qualifications"] = req.Qualifications
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No update fields provided."})
		return
	}

	if err := h.Users.UpdateDoctorProfile(c.Request.Context(), id, fields); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Doctor details updated successfully."})
}

// AdminRecentAppointments returns the five newest appointments for the
// dashboard.
func (h *Handler) AdminRecentAppointments(c *gin.Context) {
	appointments, err := h.Repo.ListRecent(c.Request.Context(), 5)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// AdminCancelAppointment force-cancels any appointment, bypassing the
// patient/doctor ownership check.
func (h *Handler) AdminCancelAppointment(c *gin.Context) {
	admin := middleware.CurrentAdmin(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	actor := scheduling.Actor{ID: admin.ID, Role: models.RoleAdmin}
	if err := h.Appointments.Cancel(c.Request.Context(), id, actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully."})
}

type adminRescheduleRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// AdminRescheduleAppointment force-reschedules with the same date-window
// rule as user reschedules; the revision check is skipped.
func (h *Handler) AdminRescheduleAppointment(c *gin.Context) {
	admin := middleware.CurrentAdmin(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req adminRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Date is required."})
		return
	}

	actor := scheduling.Actor{ID: admin.ID, Role: models.RoleAdmin}
	apt, err := h.Appointments.Reschedule(c.Request.Context(), id, actor, req.Date, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment rescheduled successfully.", "appointment": apt})
}

// AdminExportAppointments streams every appointment as an xlsx workbook.
func (h *Handler) AdminExportAppointments(c *gin.Context) {
	appointments, err := h.Repo.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Appointments"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Patient", "Doctor", "Name", "Email", "Mobile", "Date", "Reason", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for row, apt := range appointments {
		values := []interface{}{
			apt.ID.Hex(),
			apt.Patient.Hex(),
			apt.Doctor.Hex(),
			apt.Name,
			apt.Email,
			apt.Mobile,
			apt.Date.Format("2006-01-02 15:04"),
			apt.Disease,
			apt.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="appointments.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		h.Log.WithError(err).Error("failed to stream appointment export")
	}
}

func (h *Handler) pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID."})
		return primitive.NilObjectID, false
	}
	return id, true
}
