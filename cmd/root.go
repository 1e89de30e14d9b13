package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the odoocal application
var rootCmd = &cobra.Command{
	Use:   "odoocal",
	Short: "Calendar favorites, reminders and attendees from the command line",
	Long: `odoocal works with the calendar of an Odoo server as the logged-in user.

It can run as:
  - A CLI to manage favorite calendar filters, watch event reminders and
    inspect attendees
  - An MCP (Model Context Protocol) server for AI assistants

Connection settings are read from a .env file and the environment
(ODOO_URL, ODOO_DB, ODOO_LOGIN, ODOO_PASSWORD) and can be overridden
with flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogging(rootOpts.Debug)
	},
}

// rootOpts holds the flags shared by all commands
var rootOpts = &connectOptions{}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "odoocal version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler. Logs go to stderr so
// they never mix with command output or the stdio MCP transport.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	addConnectionFlags(rootCmd, rootOpts)

	rootCmd.AddCommand(newFavoritesCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newAttendeesCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
