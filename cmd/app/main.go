package main

import (
	"context"
	"fmt"
	"fulfillment/cmd"
	httpin "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/core/application/automation"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configs := getConfigs()

	gormDB, err := gorm.Open(postgres.Open(configs.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	app := cmd.NewCompositionRoot(configs, gormDB)

	manager, err := app.CreateRealtimeManager(configs.DSN())
	if err != nil {
		log.Fatalf("Error creating realtime manager: %v", err)
	}
	defer manager.Cleanup()

	engine, err := app.CreateAutomationEngine()
	if err != nil {
		log.Fatalf("Error loading automation rules: %v", err)
	}
	defer engine.Cleanup()

	consumer := automation.NewConsumer(engine, manager, app.Logger())
	if err = consumer.Start(context.Background()); err != nil {
		log.Fatalf("Error starting automation consumer: %v", err)
	}
	defer consumer.Stop()

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}
	defer jobManager.StopAll()

	startWebServer(&app, engine, configs.HTTPPort)
}

func getConfigs() cmd.Config {
	return cmd.Config{
		HTTPPort:   goDotEnvVariable("HTTP_PORT"),
		DBHost:     goDotEnvVariable("DB_HOST"),
		DBPort:     goDotEnvVariable("DB_PORT"),
		DBUser:     goDotEnvVariable("DB_USER"),
		DBPassword: goDotEnvVariable("DB_PASSWORD"),
		DBName:     goDotEnvVariable("DB_NAME"),
		DBSslMode:  goDotEnvVariable("DB_SSLMODE"),
	}
}

func goDotEnvVariable(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Fatalf("Error loading .env file")
	}
	return os.Getenv(key)
}

func startWebServer(app *cmd.CompositionRoot, engine *automation.Engine, port string) {
	e := echo.New()

	server := httpin.NewServer(
		app.CreateCreateOrderCommandHandler(),
		app.CreateTransitionOrderCommandHandler(),
		app.CreateRollbackOrderCommandHandler(),
		app.CreateUpdateItemStatusCommandHandler(),
		app.CreateGetOrderQueryHandler(),
		app.CreateGetWorkflowLogQueryHandler(),
		engine,
	)
	server.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(fmt.Sprintf("0.0.0.0:%s", port)))
}
