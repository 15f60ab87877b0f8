package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/universys/universyslite/internal/bootstrap"
	"github.com/universys/universyslite/internal/pkg/logger"
)

// @title UniversysLite API
// @version 1.0
// @description Course registration, grading and billing for a university registrar

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "universys",
	Short: "University registrar API",
	Long: `universys serves the registrar REST API: catalog, sections,
enrollment with waitlists, grading, transcripts and tuition billing.

Available subcommands:
  serve   - Run the HTTP server
  migrate - Apply pending database migrations
  seed    - Create default departments, the admin account and a first term`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
