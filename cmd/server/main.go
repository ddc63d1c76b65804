package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/abarak-biu/tf-encrypted/internal/auth"
	"github.com/abarak-biu/tf-encrypted/internal/config"
	"github.com/abarak-biu/tf-encrypted/internal/events"
	"github.com/abarak-biu/tf-encrypted/internal/handlers"
	"github.com/abarak-biu/tf-encrypted/internal/models"
	"github.com/abarak-biu/tf-encrypted/internal/rng"
)

func main() {
	// Load config & init
	appCfg := config.Load()
	db := config.InitDB(appCfg)
	models.Migrate(db)
	auth.Init(appCfg.JWTSecret)

	// The cipher self-test gates every generation; refuse to serve at all
	// if it fails rather than erroring on the first request.
	if err := rng.Init(); err != nil {
		log.Fatalf("rng: %v", err)
	}

	if err := events.Init(appCfg); err != nil {
		log.Printf("events: disabled: %v", err)
	}
	defer events.Close()

	// Setup router
	r := gin.Default()
	r.Use(config.CORSMiddleware())

	api := r.Group("/api/v1")
	{
		// Auth
		api.POST("/admin/login", handlers.Login)

		// Admin users (CRUD)
		users := api.Group("/admin/users", handlers.RequireAuth(models.RoleSuperAdmin))
		{
			users.POST("", handlers.CreateUser)
			users.GET("", handlers.ListUsers)
			users.GET("/:id", handlers.GetUser)
			users.PUT("/:id", handlers.UpdateUser)
			users.DELETE("/:id", handlers.DeleteUser)
		}

		// TensorSpec CRUD
		specs := api.Group("/tensor-specs", handlers.RequireAuth(models.RoleSuperAdmin, models.RoleAdmin))
		{
			specs.GET("", handlers.ListTensorSpecs)
			specs.GET("/:id", handlers.GetTensorSpec)
			specs.POST("", handlers.CreateTensorSpec)
			specs.PUT("/:id", handlers.UpdateTensorSpec)
			specs.DELETE("/:id", handlers.DeleteTensorSpec)
		}

		// Generation endpoints. Auditors get the read-only views; the
		// handlers themselves refuse execute/replay for that role.
		gens := api.Group("/generations", handlers.RequireAuth(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAuditor))
		{
			gens.GET("", handlers.ListGenerations)
			gens.GET("/:id", handlers.GetGeneration)
			gens.POST("/execute", handlers.ExecuteGeneration)
			gens.POST("/replay/:id", handlers.ReplayGeneration)
		}
	}

	// Start the HTTP server (port from env or default)
	r.Run(":" + appCfg.Port)
}
