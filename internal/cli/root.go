package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg       *Config
	apiClient *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "shapesync",
		Short: "Client for the shapesync server",
		Long: `shapesync joins a shapesync server as a player and inspects it through
its status API.

Use "play" to join in a terminal view, "bot" to run a headless random
walker, and "players", "health" or "watch" to look at the server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			apiClient = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Status API URL (env: SHAPESYNC_API)")
	rootCmd.PersistentFlags().StringVar(&cfg.GameAddr, "addr", cfg.GameAddr, "Game server address (env: SHAPESYNC_ADDR)")
	rootCmd.PersistentFlags().StringVar(&cfg.ProfilePath, "profile", cfg.ProfilePath, "Profile file path (env: SHAPESYNC_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file (env: SHAPESYNC_LOG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newBotCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
