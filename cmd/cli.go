package cmd

import (
	"os"

	"github.com/apigatehq/apigate-cli/client"
	"github.com/apigatehq/apigate-cli/db"
	"github.com/apigatehq/apigate-cli/pkg/clierr"
	"github.com/apigatehq/apigate-cli/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverURL string

func Execute() {
	rootCmd := createRootCmd()
	initializeDatabase()
	defer closeDatabase()

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(1)
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apigate",
		Short: "A command-line client for the Apigate API management service",
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "Base URL of the Apigate server")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		apisCmd(),
		keysCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// defaultServer resolves the server URL from the environment with a local
// development fallback.
func defaultServer() string {
	if s := os.Getenv("APIGATE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8000"
}

// newAPIClient builds an authenticated client backed by the CLI database so
// the stored login is shared across invocations.
func newAPIClient() (*client.Client, error) {
	if err := validation.ValidateServerURL(serverURL); err != nil {
		return nil, clierr.New(clierr.Validation, "invalid server URL", err)
	}
	store := db.NewStore(db.NewTokenRepository(db.Db))
	return client.New(serverURL, store), nil
}

func initializeDatabase() {
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		os.Exit(1)
	}
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
		os.Exit(1)
	}
}
