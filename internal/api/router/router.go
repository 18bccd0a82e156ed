package router

import (
	"college-records/internal/api/handlers"
	"college-records/internal/api/middleware"
	"college-records/internal/domain/user"
	serviceInterfaces "college-records/internal/interfaces/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services is everything the HTTP layer calls into
type Services struct {
	Version     string
	Credentials user.CredentialService
	Registry    serviceInterfaces.RegistryService
	Reconciler  serviceInterfaces.ReconciliationService
	Enrollments serviceInterfaces.EnrollmentService
	Attendance  serviceInterfaces.AttendanceService
	Marks       serviceInterfaces.MarksService
	Maintenance serviceInterfaces.MaintenanceService
	Health      map[string]handlers.HealthChecker
}

func NewRouter(s Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig()))
	r.Use(gin.Recovery())

	healthHandler := handlers.NewHealthHandler(s.Version, s.Health)
	authHandler := handlers.NewAuthHandler(s.Credentials)
	attendanceHandler := handlers.NewAttendanceHandler(s.Attendance)
	marksHandler := handlers.NewMarksHandler(s.Marks)
	registryHandler := handlers.NewRegistryHandler(s.Registry, s.Reconciler)
	maintenanceHandler := handlers.NewMaintenanceHandler(s.Maintenance, s.Enrollments)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		authed := v1.Group("")
		authed.Use(middleware.Auth(s.Credentials))

		authed.GET("/auth/me", authHandler.Me)

		staff := authed.Group("")
		staff.Use(middleware.RequireRole(user.RoleAdmin, user.RoleTeacher))
		{
			attendance := staff.Group("/attendance")
			{
				attendance.POST("/session", attendanceHandler.CreateSession)
				attendance.GET("/session/:session_id", attendanceHandler.GetSession)
				attendance.PATCH("/session/:session_id/status", attendanceHandler.UpdateSessionStatus)
				attendance.POST("/session/:session_id/roster", attendanceHandler.SeedRoster)
				attendance.PUT("/record", attendanceHandler.SetRecord)
				attendance.POST("/record/toggle", attendanceHandler.ToggleRecord)
			}

			marks := staff.Group("/marks")
			{
				marks.PUT("/:enrollment_id", marksHandler.SetMark)
				marks.GET("/:enrollment_id/summary", marksHandler.Summary)
			}
		}

		admin := authed.Group("")
		admin.Use(middleware.RequireRole(user.RoleAdmin))
		{
			admin.POST("/enrollments/ensure", maintenanceHandler.EnsureEnrollment)

			jobs := admin.Group("/admin")
			{
				jobs.POST("/reconcile-offerings", maintenanceHandler.ReconcileOfferings)
				jobs.POST("/reconcile-sections", maintenanceHandler.ReconcileSections)
				jobs.POST("/audit-placement", maintenanceHandler.AuditPlacement)

				jobs.POST("/users", authHandler.CreateUser)
				jobs.POST("/colleges", registryHandler.CreateCollege)
				jobs.POST("/departments", registryHandler.CreateDepartment)
				jobs.POST("/sections", registryHandler.CreateSection)
				jobs.DELETE("/sections/:id", registryHandler.DeleteSection)
				jobs.POST("/courses", registryHandler.CreateCourse)
				jobs.POST("/terms", registryHandler.CreateTerm)
				jobs.POST("/teachers", registryHandler.CreateTeacher)
				jobs.POST("/students", registryHandler.CreateStudent)
				jobs.DELETE("/students/:id", registryHandler.DeleteStudent)
				jobs.POST("/offerings", registryHandler.CreateOffering)
				jobs.PUT("/offerings/:id/teacher", registryHandler.AssignTeacher)
				jobs.DELETE("/offerings/:id", registryHandler.DeleteOffering)
				jobs.POST("/components", registryHandler.CreateComponent)
			}
		}
	}
	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	return cfg
}
