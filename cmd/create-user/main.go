package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/etests/etests-backend/internal/config"
	"github.com/etests/etests-backend/internal/database"
	"github.com/etests/etests-backend/internal/logger"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/repository"
	"github.com/etests/etests-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.AppName+"-create-user", cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	fmt.Println("=== Create New User ===")

	name := prompt("Enter Full Name: ")
	email := prompt("Enter Email: ")
	if name == "" || email == "" {
		fmt.Println("Error: name and email are required")
		os.Exit(1)
	}

	role := model.Role(prompt("Enter Role [teacher/student] (default teacher): "))
	if role == "" {
		role = model.RoleTeacher
	}
	if role != model.RoleTeacher && role != model.RoleStudent {
		fmt.Println("Error: role must be teacher or student")
		os.Exit(1)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(bytePassword) < 6 {
		fmt.Println("Error: password must be at least 6 characters")
		os.Exit(1)
	}

	// ─── Create ────────────────────────────────────────────────────────
	user, err := authService.Register(ctx, &model.RegisterRequest{
		Email:    email,
		Password: string(bytePassword),
		FullName: name,
		Role:     role,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		fmt.Printf("Error: %s is already registered\n", email)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %s\n", user.Role, user.FullName, user.Email, user.ID)
}
