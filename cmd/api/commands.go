package main

import (
	"github.com/spf13/cobra"

	"github.com/universys/universyslite/internal/bootstrap"
	"github.com/universys/universyslite/internal/server"
)

var (
	skipMigrate bool
	skipSeed    bool
)

// serveCmd runs the API until SIGINT or SIGTERM
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Connect to PostgreSQL (and Redis when enabled), apply migrations,
seed default data and serve the API until interrupted.`,
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create default departments, the admin account and a first term",
	RunE:  runSeed,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply migrations on startup")
	serveCmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "Do not create default data on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv, err := server.NewServer(cmd.Context(), server.Options{
		ConfigPath: configPath,
		Migrate:    !skipMigrate,
		Seed:       !skipSeed,
	})
	if err != nil {
		return err
	}
	return srv.Run()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	pool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer pool.Close()
	return bootstrap.RunMigrations(cmd.Context(), pool, lgr)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	pool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer pool.Close()
	return bootstrap.SeedDefaults(cmd.Context(), cfg, pool, lgr)
}
