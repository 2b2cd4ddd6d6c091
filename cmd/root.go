package cmd

import (
	"fmt"
	"os"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configFile string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "Converse com o Jarvis no terminal",
	Long: `A streaming chat client for the Jarvis IA backend.

Conversations are stored locally per account and replies stream in as
the model produces them. Optional speech output reads replies aloud and
speech input dictates your next message.

Quick Start:
  jarvis login <token>       # Store the access token from the portal
  jarvis chat                # Start (or resume) a conversation
  jarvis list                # List your chats
  jarvis export --format md  # Export the current chat as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Custom config file location")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
