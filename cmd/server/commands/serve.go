package commands

import (
	"retroboard/internal/config"
	"retroboard/internal/logging"
	"retroboard/internal/migrations"
	"retroboard/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fail("Invalid logging configuration", err)
		}
		defer logger.Sync()

		s, err := server.Init(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("server initialization failed", zap.Error(err))
			return fail("Server initialization failed", err)
		}

		if serveMigrate {
			sqlDB, err := s.DB.DB()
			if err != nil {
				return fail("Failed to get database handle", err)
			}
			if err := migrations.Up(sqlDB); err != nil {
				s.Close()
				return fail("Migration failed", err)
			}
			logger.Info("migrations applied")
		}

		if err := s.Run(cmd.Context()); err != nil {
			logger.Error("server stopped with error", zap.Error(err))
			return fail("Server stopped with error", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}
