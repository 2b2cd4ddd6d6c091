package cmd

import (
	"fmt"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var logoutKeepChats bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token and local chats",
	Long: `Remove the stored access token. Unless --keep-chats is set, the
account's locally stored chats are deleted as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.LoadConfig(configPath())
		if err != nil {
			return err
		}

		if !promptConfirm("Sair e remover o token armazenado?") {
			return nil
		}

		// Resolve the identity before the token disappears so the right
		// account's chats can be purged
		_, identity, credErr := internal.LoadCredential(cfg.TokenPath)

		internal.PurgeCredential(cfg.TokenPath)

		if credErr != nil {
			internal.LogWarn("Stored token was unusable, leaving local chats in place: %v", credErr)
			fmt.Println("Token removido.")
			return nil
		}

		if !logoutKeepChats {
			db, err := internal.OpenDatabase(cfg.StatePath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := internal.NewChatStore(db, identity).Purge(); err != nil {
				return err
			}
			fmt.Printf("Token e chats de %s removidos.\n", identity.Subject)
			return nil
		}

		fmt.Println("Token removido.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&logoutKeepChats, "keep-chats", false, "Keep locally stored chats")
}
