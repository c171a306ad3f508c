package main

import (
	"context"
	"crimson-backend/cmd/config"
	migration "crimson-backend/cmd/database/migrate"
	"crimson-backend/internal/utils"
	"crimson-backend/internal/utils/logging"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "crimson",
	Short: "Crimson blood and organ donation backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.LoadConfig()
		var err error
		logger, err = logging.New(utils.GetConfig("APP_ENV"), utils.GetConfig("LOG_LEVEL"))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := config.ConnectDB()
		if err != nil {
			return err
		}
		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := migration.Migrate(db); err != nil {
				return err
			}
		}

		app, err := config.NewApp(ctx, db, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		errCh := make(chan error, 1)
		go func() {
			port := utils.GetConfigOr("APP_PORT", "8080")
			logger.Info("listening", zap.String("port", port))
			errCh <- app.Fiber.Listen(":" + port)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDB()
		if err != nil {
			return err
		}
		if err := migration.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migration complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "run migrations before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Fatalf("crimson: %v", err)
		}
	}
}
