package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/salon-booking/internal/auth"
	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/db"
	"github.com/hackgods/salon-booking/internal/logging"
)

// every seeded user shares this password
const devPassword = "reserva123"

func main() {
	logger := logging.New(config.LoggingConfig{Level: "info"})
	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedUsers(context.Background(), pool, logger, 200); err != nil {
		logger.Error("seed users", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete", "password", devPassword)
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger, count int) error {
	logger.Info("seeding users", "count", count)

	hash, err := auth.HashPassword(devPassword)
	if err != nil {
		return err
	}

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id, err := auth.NewUserID()
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO users (id, name, email, phone, password_hash, created_at, appointment_count)
				VALUES ($1, $2, $3, $4, $5, now(), 0)
				ON CONFLICT DO NOTHING
			`, id, gofakeit.Name(), strings.ToLower(gofakeit.Email()), gofakeit.Phone(), hash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		logger.Info("seeded users batch", "upto", end)
	}

	return nil
}
