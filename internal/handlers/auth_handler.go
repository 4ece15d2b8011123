package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/healthcareclinic/clinic-api/internal/mail"
	"github.com/healthcareclinic/clinic-api/internal/middleware"
	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/otp"
	"github.com/healthcareclinic/clinic-api/internal/storage"
	"github.com/healthcareclinic/clinic-api/internal/utils"
)

var nationalIDRx = regexp.MustCompile(`^\d{12}$`)

type RegisterRequest struct {
	Name       string `form:"name" binding:"required"`
	Age        int    `form:"age" binding:"required,min=1,max=150"`
	Gender     string `form:"gender" binding:"required,oneof=male female other"`
	Role       string `form:"role" binding:"required,oneof=patient doctor"`
	Email      string `form:"email" binding:"required,email"`
	Mobile     string `form:"mobile" binding:"required,mobile"`
	NationalID string `form:"nationalId" binding:"required"`
	Password   string `form:"password" binding:"required,min=8"`

	// Doctor profile fields; required when role=doctor.
	ShortDesc      string `form:"shortDesc"`
	Specialty      string `form:"specialty"`
	Experience     string `form:"experience"`
	Qualifications string `form:"qualifications"`
}

// Register creates an unverified account and sends the registration OTP.
// Doctors additionally upload a profile image as multipart field "img".
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All required fields must be provided."})
		return
	}
	if !nationalIDRx.MatchString(req.NationalID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "National ID must be 12 digits."})
		return
	}
	if req.Role == models.RoleDoctor &&
		(req.ShortDesc == "" || req.Specialty == "" || req.Experience == "" || req.Qualifications == "") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All doctor profile fields are required."})
		return
	}

	ctx := c.Request.Context()
	if exists, err := h.Users.EmailExists(ctx, req.Email); err != nil {
		h.respondError(c, err)
		return
	} else if exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists."})
		return
	}
	if exists, err := h.Users.NationalIDExists(ctx, req.NationalID); err != nil {
		h.respondError(c, err)
		return
	} else if exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "National ID already exists."})
		return
	}

	var imgURL string
	if req.Role == models.RoleDoctor {
		url, ok := h.uploadProfileImage(c)
		if !ok {
			return
		}
		imgURL = url
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	user := &models.User{
		Name:       req.Name,
		Age:        req.Age,
		Gender:     req.Gender,
		Role:       req.Role,
		Email:      req.Email,
		Mobile:     req.Mobile,
		NationalID: req.NationalID,
		Password:   hashed,
	}
	if req.Role == models.RoleDoctor {
		user.ImageURL = imgURL
		user.ShortDesc = req.ShortDesc
		user.Specialty = req.Specialty
		user.Experience = req.Experience
		user.Qualifications = req.Qualifications
	}

	if err := h.Users.Insert(ctx, user); err != nil {
		// The unique indexes are the authority; the pre-checks above only
		// improve the error message under low contention.
		h.respondError(c, err)
		return
	}

	if !h.issueUserOTP(c, user, "registration") {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "OTP sent to email. Please verify."})
}

func (h *Handler) uploadProfileImage(c *gin.Context) (string, bool) {
	fileHeader, err := c.FormFile("img")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Profile image is required for doctors."})
		return "", false
	}
	data, contentType, ok := h.readUpload(c, fileHeader, map[string]string{
		"image/jpeg": "", "image/jpg": "", "image/png": "",
	}, "Image size must be less than 1MB.", "Only JPG, JPEG, or PNG files are allowed.")
	if !ok {
		return "", false
	}

	url, err := h.Uploader.Upload(c.Request.Context(), storage.FolderDoctorProfiles, fileHeader.Filename, contentType, data)
	if err != nil {
		h.Log.WithError(err).Error("profile image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error while uploading image."})
		return "", false
	}
	return url, true
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyRegOTP completes registration.
func (h *Handler) VerifyRegOTP(c *gin.Context) {
	user, ok := h.verifyUserOTP(c)
	if !ok {
		return
	}
	h.Log.WithField("user", user.ID.Hex()).Info("registration verified")
	c.JSON(http.StatusOK, gin.H{"message": "Registration successful. Please log in."})
}

type loginRequest struct {
	Role     string `json:"role" binding:"required,oneof=patient doctor"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and sends a fresh login OTP. Any previously
// pending challenge (registration included) is replaced.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
		return
	}

	user, err := h.Users.FindByEmailAndRole(c.Request.Context(), req.Email, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials."})
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials."})
		return
	}
	if user.Blocked {
		c.JSON(http.StatusForbidden, gin.H{"message": "Account is blocked."})
		return
	}

	if !h.issueUserOTP(c, user, "login") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email. Please verify."})
}

// VerifyOTP completes login and mints the session token.
func (h *Handler) VerifyOTP(c *gin.Context) {
	user, ok := h.verifyUserOTP(c)
	if !ok {
		return
	}
	if user.Blocked {
		c.JSON(http.StatusForbidden, gin.H{"message": "Account is blocked."})
		return
	}

	tok, err := h.Tokens.Issue(user.ID.Hex(), user.Role, h.Cfg.JWT.AccountTokenTTL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "message": "Login successful."})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required."})
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User not found."})
		return
	}

	if !h.issueUserOTP(c, user, "password reset") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email. Please verify."})
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email, OTP and new password are required."})
		return
	}

	user, ok := h.verifyChallenge(c, req.Email, req.OTP)
	if !ok {
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Users.UpdatePassword(c.Request.Context(), user.ID, hashed); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful. Please log in."})
}

// Me returns the authenticated account's profile.
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated."})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListDoctors is the public doctor directory used by the booking form.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.Users.ListDoctorSummaries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}

// DoctorAnalytics returns the doctor's own appointment and patient counts.
func (h *Handler) DoctorAnalytics(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.Role != models.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"message": "Permission denied."})
		return
	}

	ctx := c.Request.Context()
	total, err := h.Repo.CountByDoctor(ctx, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	patients, err := h.Repo.DistinctPatients(ctx, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalAppointments": total,
		"totalPatients":     len(patients),
	})
}

// issueUserOTP attaches a fresh challenge to the account and emails the
// code. OTP delivery is synchronous: it gates the auth flow, so a relay
// failure must surface to the caller.
func (h *Handler) issueUserOTP(c *gin.Context, user *models.User, purpose string) bool {
	code, err := otp.Generate()
	if err != nil {
		h.respondError(c, err)
		return false
	}
	ch := otp.NewChallenge(code, time.Now())
	if err := h.Users.SetChallenge(c.Request.Context(), user.ID, ch); err != nil {
		h.respondError(c, err)
		return false
	}

	subject, body := mail.OTPMessage(purpose, code)
	if err := h.Mailer.Send(user.Email, subject, body); err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"user":    user.ID.Hex(),
			"purpose": purpose,
		}).Error("failed to send OTP email")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return false
	}
	return true
}

// verifyUserOTP binds the common {email, otp} body and checks the pending
// challenge.
func (h *Handler) verifyUserOTP(c *gin.Context) (*models.User, bool) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and OTP are required."})
		return nil, false
	}
	return h.verifyChallenge(c, req.Email, req.OTP)
}

// verifyChallenge enforces single use: success clears the challenge, a
// mismatch persists the bumped attempt counter. The failure response never
// distinguishes wrong, expired, locked or absent codes.
func (h *Handler) verifyChallenge(c *gin.Context, email, submitted string) (*models.User, bool) {
	ctx := c.Request.Context()
	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired OTP."})
		return nil, false
	}

	ch := otp.Challenge{Code: user.OTPCode, ExpiresAt: user.OTPExpires, Attempts: user.OTPAttempts}
	if err := ch.Verify(submitted, time.Now()); err != nil {
		if ch.Attempts != user.OTPAttempts {
			if recErr := h.Users.RecordAttempt(ctx, user.ID, ch.Attempts); recErr != nil {
				h.Log.WithError(recErr).WithField("user", user.ID.Hex()).
					Error("failed to record OTP attempt")
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired OTP."})
		return nil, false
	}

	if err := h.Users.ClearChallenge(ctx, user.ID); err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return user, true
}
