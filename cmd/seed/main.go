// Package main seeds a demo organization tree with one user per role.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/config"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/internal/models"
	"github.com/orgtasks/backend/internal/organizations"
	"github.com/orgtasks/backend/pkg/database"
)

var cli struct {
	Password   string `required:"" env:"SEED_PASSWORD" help:"Password for every seeded user."`
	OwnerEmail string `default:"owner@acme.test" help:"Email of the seeded owner; seeding is skipped if it exists."`
	Debug      bool   `help:"Enable debug logging."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("seed"),
		kong.Description("Create a demo organization tree with an owner, an admin and a viewer."))
	kctx.FatalIfErrorf(run(context.Background()))
}

func run(ctx context.Context) error {
	logger, _ := zap.NewDevelopment()
	if !cli.Debug {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	users := auth.NewRepository(pool)
	if _, err := users.GetByEmail(ctx, cli.OwnerEmail); err == nil {
		logger.Info("seed data already present", zap.String("owner_email", cli.OwnerEmail))
		return nil
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("check seed: %w", err)
	}

	orgs := organizations.NewRepository(pool)
	root := &models.Organization{Name: "Acme"}
	if err := orgs.Create(ctx, root); err != nil {
		return fmt.Errorf("create root organization: %w", err)
	}
	child := &models.Organization{Name: "Acme Engineering", ParentID: &root.ID}
	if err := orgs.Create(ctx, child); err != nil {
		return fmt.Errorf("create child organization: %w", err)
	}

	seeds := []auth.CreateUserParams{
		{Email: cli.OwnerEmail, FirstName: "Olivia", LastName: "Owner", Role: models.RoleOwner, OrganizationID: root.ID},
		{Email: "admin@acme.test", FirstName: "Adam", LastName: "Admin", Role: models.RoleAdmin, OrganizationID: child.ID},
		{Email: "viewer@acme.test", FirstName: "Vera", LastName: "Viewer", Role: models.RoleViewer, OrganizationID: child.ID},
	}
	for i, p := range seeds {
		p.Password = cli.Password
		u, err := users.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("create user %s: %w", p.Email, err)
		}
		if i == 0 {
			if err := orgs.SetOwner(ctx, root.ID, u.ID); err != nil {
				return fmt.Errorf("set owner: %w", err)
			}
		}
		logger.Info("seeded user", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}
	return nil
}
