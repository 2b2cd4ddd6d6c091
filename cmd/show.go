package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit int
)

var (
	// Styles for show command
	chatHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	chatMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [chat-id]",
	Short: "Show the messages of a chat",
	Long: `Display every message of a stored chat. With no argument the
current chat is shown; otherwise the argument is a chat ID or an
unambiguous prefix of one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := app.store.Load()
		if err != nil {
			return err
		}

		chat := state.CurrentChat()
		if len(args) == 1 {
			chatID, ok := resolveChatID(state, args[0])
			if !ok {
				return fmt.Errorf("chat not found: %s", args[0])
			}
			chat = state.Chats[chatID]
		}
		if chat == nil {
			return fmt.Errorf("no current chat")
		}

		displayChatHeader(chat)

		messages := chat.Messages
		total := len(messages)
		if showLimit > 0 && showLimit < total {
			messages = messages[:showLimit]
		}

		for i, msg := range messages {
			displayChatMessage(i, msg)
		}

		if showLimit > 0 && showLimit < total {
			remaining := total - showLimit
			fmt.Println()
			fmt.Println(chatMetaStyle.Render(fmt.Sprintf("... (%d more message(s))", remaining)))
		}
		return nil
	},
}

func displayChatHeader(chat *internal.Chat) {
	header := chatHeaderStyle.Render(fmt.Sprintf("💬 %s", chat.Title))
	fmt.Println(header)

	meta := []string{
		fmt.Sprintf("Created: %s", chat.GetTimestamp().Format("2006-01-02 15:04")),
		fmt.Sprintf("Messages: %d", len(chat.Messages)),
		fmt.Sprintf("ID: %s", chat.ID),
	}
	fmt.Println(chatMetaStyle.Render(strings.Join(meta, " • ")))
	fmt.Println()
}

func displayChatMessage(index int, msg internal.Message) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 Você"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Jarvis"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	// Zero-based so the index lines up with /edit inside the chat loop
	header := actorStyle.Render(actorLabel) + " " + indexStyle.Render(fmt.Sprintf("[%d]", index))
	if msg.Degraded {
		header += " " + degradedStyle.Render("(parcial)")
	}
	fmt.Println(header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		fmt.Println(messageContentStyle.Render(wrapText(content, 80)))
	} else {
		fmt.Println(messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}

	fmt.Println()
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Limit number of messages to show")
}
