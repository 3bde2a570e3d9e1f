package main

import (
	"fmt"
	"log"

	"opensurvey/config"
	"opensurvey/handlers"
	"opensurvey/routes"
	"opensurvey/services"
	"opensurvey/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Select the storage driver
	table, err := openTable(cfg)
	if err != nil {
		log.Fatal("Failed to open storage:", err)
	}

	// Initialize services
	surveyService := services.NewSurveyService(table)
	tallyService := services.NewTallyService(surveyService)
	provisionService := services.NewProvisionService(table, surveyService)

	// Initialize handlers
	surveyHandler := handlers.NewSurveyHandler(surveyService, tallyService)
	adminHandler := handlers.NewAdminHandler(provisionService)

	// Setup Gin router
	router := gin.Default()

	// Setup routes
	routes.SetupRoutes(router, surveyHandler, adminHandler)

	// Start server
	log.Printf("Server starting on port %s (storage driver: %s)", cfg.Port, cfg.StorageDriver)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func openTable(cfg *config.Config) (storage.Table, error) {
	switch cfg.StorageDriver {
	case "postgres":
		db, err := config.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&storage.SurveyRow{}); err != nil {
			return nil, err
		}
		return storage.NewPostgres(db), nil
	case "redis":
		return storage.NewRedis(config.InitRedis(cfg), cfg.TableName), nil
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
