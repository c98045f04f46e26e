package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/tquast/kimai2/internal/config"
	"github.com/tquast/kimai2/internal/constants"
	"github.com/tquast/kimai2/internal/database"
	"github.com/tquast/kimai2/internal/handlers"
	"github.com/tquast/kimai2/internal/middleware"
	"github.com/tquast/kimai2/internal/rate"
	"github.com/tquast/kimai2/internal/repository"
	"github.com/tquast/kimai2/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize repositories
	db := database.GetDB()
	timesheetRepo := repository.NewTimesheetRepository(db)
	tagRepo := repository.NewTagRepository(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	calculator := rate.NewCalculator(cfg.DefaultHourlyRate, cfg.WeekendRateFactor)
	authService := services.NewAuthService(userRepo, cfg.DefaultTimezone)
	projectService := services.NewProjectService(customerRepo, projectRepo, activityRepo)
	timesheetService := services.NewTimesheetService(
		timesheetRepo,
		activityRepo,
		projectRepo,
		userRepo,
		tagRepo,
		calculator,
		cfg.ActiveEntriesLimit,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	timesheetHandler := handlers.NewTimesheetHandler(timesheetService)
	tagHandler := handlers.NewTagHandler(tagRepo)
	projectHandler := handlers.NewProjectHandler(projectService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Kimai timesheet API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.PATCH("/me", middleware.RequireAuth(), authHandler.UpdatePreferences)
		}

		// Timesheet routes (protected)
		timesheets := api.Group("/timesheets")
		timesheets.Use(middleware.RequireAuth())
		{
			timesheets.GET("", timesheetHandler.ListTimesheets)
			timesheets.POST("", timesheetHandler.CreateTimesheet)
			timesheets.GET("/active", timesheetHandler.GetActiveTimesheets)
			timesheets.POST("/start", timesheetHandler.StartTimesheet)
			timesheets.POST("/export", timesheetHandler.ExportTimesheets)
			timesheets.GET("/:id", middleware.RequireTimesheetAccess(), timesheetHandler.GetTimesheet)
			timesheets.PATCH("/:id", middleware.RequireTimesheetAccess(), timesheetHandler.UpdateTimesheet)
			timesheets.DELETE("/:id", middleware.RequireTimesheetAccess(), timesheetHandler.DeleteTimesheet)
			timesheets.POST("/:id/stop", middleware.RequireTimesheetAccess(), timesheetHandler.StopTimesheet)
			timesheets.POST("/:id/restart", middleware.RequireTimesheetAccess(), timesheetHandler.RestartTimesheet)
			timesheets.POST("/:id/meta", middleware.RequireTimesheetAccess(), timesheetHandler.SetMetaField)
		}

		// Tag routes (protected)
		tags := api.Group("/tags")
		tags.Use(middleware.RequireAuth())
		{
			tags.GET("", tagHandler.ListTags)
			tags.POST("", tagHandler.CreateTag)
			tags.DELETE("/:id", tagHandler.DeleteTag)
		}

		// Customer/project/activity routes (protected)
		admin := api.Group("")
		admin.Use(middleware.RequireAuth())
		{
			admin.GET("/customers", projectHandler.ListCustomers)
			admin.POST("/customers", projectHandler.CreateCustomer)
			admin.GET("/projects", projectHandler.ListProjects)
			admin.POST("/projects", projectHandler.CreateProject)
			admin.GET("/activities", projectHandler.ListActivities)
			admin.POST("/activities", projectHandler.CreateActivity)
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
