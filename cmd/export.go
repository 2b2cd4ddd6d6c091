package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/israel2640/JARVIS-IA-LIGHT/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportAll    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [chat-id]",
	Short: "Export chats to file",
	Long: `Export stored chats to various formats (md, yaml, json).

With no argument the current chat is exported. Use 'jarvis list' to see
chat IDs, or --all to export every chat at once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		state, err := app.store.Load()
		if err != nil {
			return err
		}

		var chats []*internal.Chat
		switch {
		case exportAll:
			chats = state.SortedChats()
		case len(args) == 1:
			chatID, ok := resolveChatID(state, args[0])
			if !ok {
				return fmt.Errorf("chat not found: %s", args[0])
			}
			chats = append(chats, state.Chats[chatID])
		default:
			chat := state.CurrentChat()
			if chat == nil {
				return fmt.Errorf("no current chat")
			}
			chats = append(chats, chat)
		}

		if err := os.MkdirAll(exportOutput, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, chat := range chats {
			path := filepath.Join(exportOutput, exportFilename(chat, exporter.Extension()))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := exporter.Export(chat, f); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to export chat %s: %w", chat.ID, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Printf("Exported %q to %s\n", chat.Title, path)
		}
		return nil
	},
}

// exportFilename builds a filesystem-safe name from the chat title and
// short ID
func exportFilename(chat *internal.Chat, ext string) string {
	title := strings.ToLower(chat.Title)
	title = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, title)
	title = strings.Trim(title, "-")
	if title == "" {
		title = "chat"
	}
	shortID := chat.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf("%s-%s.%s", title, shortID, ext)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", ".", "Output directory")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every chat")
}
