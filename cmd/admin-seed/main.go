// Command admin-seed creates a staff account for the admin console.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/table-order/internal/app"
	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var in auth.CreateAdminInput
	var role string
	flag.StringVar(&in.UserID, "user-id", "", "login identifier (required)")
	flag.StringVar(&in.DisplayName, "name", "", "display name (required)")
	flag.StringVar(&in.Password, "password", "", "initial password; leave empty to set it later via /api/auth/set-password")
	flag.StringVar(&in.Email, "email", "", "optional email")
	flag.StringVar(&in.Phone, "phone", "", "optional phone")
	flag.StringVar(&role, "role", string(auth.RoleAdmin), "Admin or Manager")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	in.Role = auth.Role(role)
	if !in.Role.CanAdminister() {
		log.Warn().Str("role", role).Msg("Role cannot sign in to the admin console")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := seed(cfg, in); err != nil {
		log.Fatal().Err(err).Str("user_id", in.UserID).Msg("Failed to create admin user")
	}
}

func seed(cfg *config.Config, in auth.CreateAdminInput) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to close stores")
		}
	}()

	svc := auth.NewService(stores.Admins, auth.NewTokens(cfg.Auth.Secret, cfg.Auth.ExpiresIn))
	u, err := svc.CreateAdmin(ctx, in)
	if err != nil {
		return err
	}

	log.Info().
		Str("id", u.ID).
		Str("user_id", u.UserID).
		Str("role", string(u.Role)).
		Bool("password_set", u.PasswordHash != "").
		Msg("Admin user created")
	return nil
}
