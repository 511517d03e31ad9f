package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"metacards/internal/app"
	"metacards/internal/storage/ch"
	"metacards/internal/storage/migrations"
)

func main() {
	ctx := context.Background()

	// Load .env first so the container settings below take precedence
	_ = godotenv.Load()

	log.Println("Starting ClickHouse testcontainer...")

	// Start ClickHouse container
	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}

	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	// Apply the schema before the bot connects
	sqlDB := ch.OpenSQL(host, port.Int(), "default", "default", "devpassword", false)
	err = migrations.Up(ctx, sqlDB, migrations.ClickHouse)
	sqlDB.Close()
	if err != nil {
		log.Fatalf("Failed to migrate ClickHouse: %v", err)
	}

	// Set environment variables for the application
	os.Setenv("STORAGE_DRIVER", "clickhouse")
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", strconv.Itoa(port.Int()))
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	// Local runs always poll
	os.Setenv("WEBHOOK_URL", "")
	os.Setenv("RENDER_EXTERNAL_URL", "")

	if os.Getenv("LOG_FORMAT") == "" {
		os.Setenv("LOG_FORMAT", "console")
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" && os.Getenv("BOT_TOKEN") == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set. Please set it in your .env file or environment.")
		log.Println("   The bot will fail to start without a valid token.")
	}

	log.Println("Starting application with ClickHouse backend...")
	fmt.Println()

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM, then the deferred cleanup removes the container
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
