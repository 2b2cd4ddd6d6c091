package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store an access token",
	Long: `Store the access token obtained from the Jarvis portal.

The token is decoded locally to resolve which account the stored chats
belong to; it is sent to the backend on every request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(args[0])

		identity, err := internal.DecodeIdentity(token)
		if err != nil {
			return fmt.Errorf("token is not usable: %w", err)
		}

		cfg, err := internal.LoadConfig(configPath())
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(cfg.TokenPath), 0o755); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
		if err := os.WriteFile(cfg.TokenPath, []byte(token), 0o600); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Printf("Logado como %s", identity.Subject)
		if identity.IsAdmin() {
			fmt.Print(" (admin)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
