package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chats",
	Long:  `List every stored chat for the logged-in account, newest first.`,
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

		printChatTable(state)
		return nil
	},
}

func printChatTable(state *internal.SessionState) {
	chats := state.SortedChats()
	if len(chats) == 0 {
		fmt.Println(headerStyle.Render("📋 No chats found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 %d chat(s)", len(chats)))
	fmt.Println(header)
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

	for _, chat := range chats {
		title := chat.Title
		if title == "" {
			title = internal.DefaultChatTitle
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		if chat.ID == state.CurrentChatID {
			title = currentStyle.Render("● " + title)
		} else {
			title = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title)
		}

		msgCount := countStyle.Render(strconv.Itoa(len(chat.Messages)))
		created := dateStyle.Render(formatChatDate(chat.GetTimestamp()))

		shortID := chat.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		id := idStyle.Render(shortID)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", id, title, msgCount, created)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: use the ID with `jarvis show <id>` or `/switch <id>` inside the chat"))
}

func formatChatDate(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
