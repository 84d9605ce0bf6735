// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"stokado/internal/core/id"
	"stokado/internal/infrastructure/storage/postgres"
	"stokado/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@stokado.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM sys_users WHERE email = $1 AND NOT deletion_mark`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO sys_users (id, email, password_hash, name, role, is_active, version)
		VALUES ($1, $2, $3, 'System Admin', 'admin', true, 1)
	`, userID, adminEmail, string(passwordHash))
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	type locationSeed struct {
		code string
		name string
	}

	locations := []locationSeed{
		{"WH-MAIN", "Main Warehouse"},
		{"WH-COLD", "Cold Storage"},
		{"WH-RET", "Returns Area"},
	}

	for _, l := range locations {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_locations (id, code, name, version, deletion_mark)
			VALUES ($1, $2, $3, 1, false)
			ON CONFLICT DO NOTHING
		`, id.New(), l.code, l.name)
		if err != nil {
			return fmt.Errorf("seed location %s: %w", l.code, err)
		}
	}

	type productSeed struct {
		code       string
		name       string
		unit       string
		lotTracked bool
	}

	products := []productSeed{
		{"SKU-001", "Cardboard Box M", "pcs", false},
		{"SKU-002", "Packing Tape", "pcs", false},
		{"SKU-003", "Frozen Berries 1kg", "pcs", true},
		{"SKU-004", "Olive Oil 5L", "pcs", true},
	}

	for _, p := range products {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_products (id, code, name, unit, lot_tracked, version, deletion_mark)
			VALUES ($1, $2, $3, $4, $5, 1, false)
			ON CONFLICT DO NOTHING
		`, id.New(), p.code, p.name, p.unit, p.lotTracked)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.code, err)
		}
	}

	log.Infow("demo data seeded", "locations", len(locations), "products", len(products))
	return nil
}
