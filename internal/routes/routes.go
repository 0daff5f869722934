package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medtrack-server/internal/config"
	"medtrack-server/internal/handlers"
	"medtrack-server/internal/middleware"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// NewRouter builds the gin engine with the global middleware stack and all
// application routes.
func NewRouter(db *gorm.DB, cfg *config.Config, clock services.Clock, log zerolog.Logger) *gin.Engine {
	utils.RegisterValidators()

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, db, cfg, clock)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, clock services.Clock) {
	// Initialize services and handlers
	patientHandler := handlers.NewPatientHandler(services.NewPatientService(db, clock))
	medicationHandler := handlers.NewMedicationHandler(services.NewMedicationService(db))
	assignmentHandler := handlers.NewAssignmentHandler(services.NewAssignmentService(db, clock))
	healthHandler := handlers.NewHealthHandler(db)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		medicationRoutes := api.Group("/medications")
		{
			medicationRoutes.POST("", medicationHandler.CreateMedication)
			medicationRoutes.GET("", medicationHandler.GetMedications)
			medicationRoutes.GET("/:id", medicationHandler.GetMedicationByID)
			medicationRoutes.PATCH("/:id", medicationHandler.UpdateMedication)
			medicationRoutes.DELETE("/:id", medicationHandler.DeleteMedication)
		}

		patientRoutes := api.Group("/patients")
		{
			patientRoutes.POST("", patientHandler.CreatePatient)
			patientRoutes.GET("", patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
		}

		assignmentRoutes := api.Group("/assignments")
		{
			assignmentRoutes.POST("", assignmentHandler.CreateAssignment)
			assignmentRoutes.GET("", assignmentHandler.GetAssignments)
			assignmentRoutes.GET("/:id", assignmentHandler.GetAssignmentByID)
			assignmentRoutes.PATCH("/:id", assignmentHandler.UpdateAssignment)
			assignmentRoutes.DELETE("/:id", assignmentHandler.DeleteAssignment)
		}
	}

	// Simple health check endpoint
	router.GET("/health", healthHandler.Health)
}
