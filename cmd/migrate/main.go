package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/socialzwater/backend/internal/auth"
	"github.com/socialzwater/backend/internal/database"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/migrations"
)

const dbName = "socialz"

func main() {
	// Load environment
	_ = godotenv.Load()

	var (
		command     = flag.String("cmd", "up", "Command: up, down, status, create-operator")
		databaseURL = flag.String("db", "", "Database URL (or set DATABASE_URL env)")
		email       = flag.String("email", "", "Operator email (with -cmd=create-operator)")
		name        = flag.String("name", "", "Operator display name (with -cmd=create-operator)")
		password    = flag.String("password", "", "Operator password (or set OPERATOR_PASSWORD env)")
	)
	flag.Parse()

	logger.Init(logger.Config{Level: "info", Pretty: true})
	log := logger.Get()

	dbURL := *databaseURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal().Msg("DATABASE_URL is required (set via -db flag or DATABASE_URL env)")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	switch *command {
	case "up":
		if err := migrations.Run(db, dbName); err != nil {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
	case "down":
		if err := migrations.Rollback(db, dbName); err != nil {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
	case "status":
		version, dirty, err := migrations.Status(db, dbName)
		if err != nil {
			log.Fatal().Err(err).Msg("Status check failed")
		}
		fmt.Printf("version: %d\ndirty:   %t\n", version, dirty)
	case "create-operator":
		if err := createOperator(ctx, dbURL, *email, *name, *password); err != nil {
			log.Fatal().Err(err).Msg("Create operator failed")
		}
	default:
		log.Fatal().Str("cmd", *command).Msg("Unknown command")
	}
}

func createOperator(ctx context.Context, dbURL, email, name, password string) error {
	if password == "" {
		password = os.Getenv("OPERATOR_PASSWORD")
	}
	if email == "" || password == "" {
		return fmt.Errorf("-email and -password (or OPERATOR_PASSWORD) are required")
	}

	gormDB, err := database.Connect(dbURL, false)
	if err != nil {
		return err
	}
	// Only the password hash is stored, so the token settings do not matter here
	svc := auth.NewAuthService(gormDB, "", time.Hour)
	op, err := svc.CreateOperator(ctx, email, password, name)
	if err != nil {
		return err
	}

	logger.Info().Uint("id", op.ID).Str("email", op.Email).Msg("Operator created")
	return nil
}
