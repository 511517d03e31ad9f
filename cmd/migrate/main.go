package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"metacards/internal/storage/ch"
	"metacards/internal/storage/migrations"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	driver := flag.String("driver", getEnv("STORAGE_DRIVER", "sqlite"), "storage backend: sqlite or clickhouse")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [-driver sqlite|clickhouse] [up|down|status|version]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Get command from arguments (default to "up")
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	db, dialect, err := open(*driver)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to %s successfully", *driver)

	log.Printf("Running migrations: %s", command)
	if err := migrations.Run(context.Background(), db, dialect, command); err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}
	log.Printf("Migration %s completed successfully", command)
}

func open(driver string) (*sql.DB, migrations.Dialect, error) {
	switch driver {
	case "sqlite":
		path := getEnv("SQLITE_PATH", "bot_database.db")
		db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
		return db, migrations.SQLite, err
	case "clickhouse":
		port, err := strconv.Atoi(getEnv("CLICKHOUSE_PORT", "9000"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		db := ch.OpenSQL(
			getEnv("CLICKHOUSE_HOST", "localhost"),
			port,
			getEnv("CLICKHOUSE_DATABASE", "default"),
			getEnv("CLICKHOUSE_USER", "default"),
			os.Getenv("CLICKHOUSE_PASSWORD"),
			os.Getenv("CLICKHOUSE_USE_TLS") == "true",
		)
		return db, migrations.ClickHouse, nil
	}
	return nil, "", fmt.Errorf("unknown driver %q (want sqlite or clickhouse)", driver)
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
