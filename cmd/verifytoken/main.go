// Команда verifytoken подтверждает email вручную по токену из письма.
//
//	verifytoken <token>
package main

import (
	"context"
	"fmt"
	"os"

	"conference_backend/database"
	"conference_backend/internal/app"
	"conference_backend/internal/config"
	"conference_backend/internal/logger"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: verifytoken <token>")
		os.Exit(2)
	}
	token := os.Args[1]

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	ctx := context.Background()
	infra, err := app.InitializeInfrastructure(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize infrastructure", "error", err)
	}
	defer infra.Close()

	svc, err := app.InitializeServices(cfg, infra)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	account, err := svc.AuthService.VerifyEmail(ctx, db, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("User %s has been successfully verified.\n", account.Email)
}
