package main

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthcareclinic/clinic-api/internal/config"
	"github.com/healthcareclinic/clinic-api/internal/handlers"
	"github.com/healthcareclinic/clinic-api/internal/logger"
	"github.com/healthcareclinic/clinic-api/internal/mail"
	"github.com/healthcareclinic/clinic-api/internal/middleware"
	"github.com/healthcareclinic/clinic-api/internal/outbox"
	"github.com/healthcareclinic/clinic-api/internal/scheduling"
	"github.com/healthcareclinic/clinic-api/internal/storage"
	"github.com/healthcareclinic/clinic-api/internal/store"
	"github.com/healthcareclinic/clinic-api/internal/token"
	"github.com/healthcareclinic/clinic-api/internal/utils"
)

var mobileRx = regexp.MustCompile(`^\d{10}$`)

func main() {
	// .env is optional; the config file expands ${VAR} references itself.
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.Database.URI))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.WithError(err).Fatal("MongoDB is not reachable")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Error("failed to disconnect from MongoDB")
		}
	}()
	log.Info("connected to MongoDB")

	db := client.Database(cfg.Database.Name)

	users := store.NewUsers(db)
	admins := store.NewAdmins(db)
	documents := store.NewDocuments(db)
	notifications := store.NewOutbox(db)

	if err := users.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("failed to create user indexes")
	}
	if err := seedAdmin(ctx, admins, cfg); err != nil {
		log.WithError(err).Fatal("failed to seed admin account")
	}

	mailer := mail.NewSMTPSender(cfg.Email.Host, cfg.Email.Port, cfg.Email.User, cfg.Email.Pass, cfg.Email.From)
	uploader := storage.NewHTTPUploader(cfg.Storage.UploadURL, cfg.Storage.APIKey)
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	repo := scheduling.NewRepository(db)
	appointments := scheduling.NewManager(repo, users, notifications, log)

	worker := outbox.NewWorker(notifications, mailer, log, cfg.Outbox.BaseBackoff, cfg.Outbox.MaxAttempts)
	scheduler := worker.Start(cfg.Outbox.Interval)
	defer scheduler.Stop()

	h := &handlers.Handler{
		Users:        users,
		Admins:       admins,
		Documents:    documents,
		Appointments: appointments,
		Repo:         repo,
		Tokens:       tokens,
		Mailer:       mailer,
		Uploader:     uploader,
		Cfg:          cfg,
		Log:          log,
	}

	registerValidators()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(r, h, tokens, users, admins)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.WithField("addr", addr).Info("starting server")
	if err := r.Run(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return mobileRx.MatchString(fl.Field().String())
		})
	}
}

func seedAdmin(ctx context.Context, admins *store.Admins, cfg *config.Config) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return fmt.Errorf("admin seed email and password are required")
	}
	hashed, err := utils.HashPassword(cfg.Admin.Password)
	if err != nil {
		return err
	}
	return admins.EnsureSeed(ctx, cfg.Admin.Email, hashed, cfg.Admin.Mobile)
}

func registerRoutes(r *gin.Engine, h *handlers.Handler, tokens *token.Manager, users *store.Users, admins *store.Admins) {
	account := middleware.RequireAccount(tokens, users)
	admin := middleware.RequireAdmin(tokens, admins)
	authLimit := middleware.AuthRateLimiter()

	auth := r.Group("/auth")
	{
		auth.POST("/register", authLimit, h.Register)
		auth.POST("/verify-reg-otp", authLimit, h.VerifyRegOTP)
		auth.POST("/login", authLimit, h.Login)
		auth.POST("/verify-otp", authLimit, h.VerifyOTP)
		auth.POST("/forgot-password", authLimit, h.ForgotPassword)
		auth.POST("/reset-password", authLimit, h.ResetPassword)
		auth.GET("/me", account, h.Me)
		auth.GET("/doctors", h.ListDoctors)
	}

	r.GET("/analytics", account, h.DoctorAnalytics)

	appointments := r.Group("/appointments", account)
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/patient", h.GetPatientAppointments)
		appointments.GET("/doctor", h.GetDoctorAppointments)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}

	documents := r.Group("/documents", account)
	{
		documents.POST("/upload", h.UploadDocument)
		documents.GET("/patient", h.GetPatientDocuments)
		documents.GET("/doctor", h.GetDoctorDocuments)
		documents.GET("/patients", h.GetPatientsForDoctor)
		documents.DELETE("/:id", h.DeleteDocument)
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/login", authLimit, h.AdminLogin)
		adminGroup.POST("/verify-otp", authLimit, h.AdminVerifyOTP)

		adminGroup.PUT("/update", admin, h.AdminUpdate)
		adminGroup.GET("/analytics", admin, h.AdminAnalytics)

		adminGroup.GET("/doctors", admin, h.AdminListDoctors)
		adminGroup.PUT("/doctors/:id", admin, h.AdminEditDoctor)
		adminGroup.PUT("/doctors/:id/block", admin, h.AdminBlockDoctor)
		adminGroup.PUT("/doctors/:id/unblock", admin, h.AdminUnblockDoctor)
		adminGroup.DELETE("/doctors/:id", admin, h.AdminRemoveDoctor)

		adminGroup.GET("/patients", admin, h.AdminListPatients)
		adminGroup.PUT("/patients/:id/block", admin, h.AdminBlockPatient)
		adminGroup.PUT("/patients/:id/unblock", admin, h.AdminUnblockPatient)
		adminGroup.DELETE("/patients/:id", admin, h.AdminRemovePatient)

		adminGroup.GET("/appointments/recent", admin, h.AdminRecentAppointments)
		adminGroup.GET("/appointments/export", admin, h.AdminExportAppointments)
		adminGroup.PUT("/appointments/:id/reschedule", admin, h.AdminRescheduleAppointment)
		adminGroup.DELETE("/appointments/:id", admin, h.AdminCancelAppointment)
	}
}
