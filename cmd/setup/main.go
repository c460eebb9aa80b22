// Command setup migrates the database and creates the bootstrap admin account.
package main

import (
	"context"
	"log"
	"time"

	"github.com/tiptop/backend/internal/config"
	"github.com/tiptop/backend/internal/database"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/seed"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db := database.InitDatabase()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accounts := repository.NewAccountRepository(db)
	created, err := seed.Admin(ctx, accounts, cfg.Admin)
	if err != nil {
		logger.Log.Fatal("Setup failed", zap.Error(err))
	}

	ledgers := repository.NewLedgerRepository(db)
	repaired, err := ledgers.RepairMissing(ctx)
	if err != nil {
		logger.Log.Fatal("Ledger repair failed", zap.Error(err))
	}

	if created {
		logger.Log.Warn("Admin account created, change the password after first login",
			zap.String("username", cfg.Admin.Username),
			zap.String("email", cfg.Admin.Email))
	}
	logger.Log.Info("Setup completed", zap.Int64("ledgers_repaired", repaired))
}
