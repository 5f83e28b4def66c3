// Command admin is the operator tool for managing accounts directly in the
// database, outside the HTTP session policy.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/config"
	"github.com/iliyamo/property-listings/internal/database"
	"github.com/iliyamo/property-listings/internal/middleware"
	"github.com/iliyamo/property-listings/internal/repository"
	"github.com/iliyamo/property-listings/internal/service"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Manage property-listings accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		createAdminCmd(openOperator),
		setRoleCmd(openOperator),
		deleteUserCmd(openOperator),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openOperator connects to the database and builds the UserService the
// commands run against. The returned func releases the connections.
func openOperator(ctx context.Context) (operator, func(), error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	// Deleting a user removes their listings, so cached pages are purged too.
	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	purger := middleware.NewRedisPurger(config.LoadCacheConfig(), rdb, log)

	svc := service.NewUserService(repository.NewUserRepo(db), purger, cfg.BcryptCost, log)
	closeFn := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = db.Close()
		_ = log.Sync()
	}
	return svc, closeFn, nil
}
