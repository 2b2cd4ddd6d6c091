package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
	"github.com/spf13/cobra"
)

var (
	chatNoSpeech bool
)

var (
	// Styles for the chat REPL
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))

	chatTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Open the interactive chat loop against the configured backend.

Replies stream in token by token. Slash commands manage chats from
inside the loop; type /help to list them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		opts := internal.SessionOptions{
			Confirm: promptConfirm,
		}

		if app.cfg.Speech.Enabled && !chatNoSpeech {
			if engine, ok := internal.DetectSpeechEngine(app.cfg.Speech.Engine); ok {
				opts.Speaker = internal.NewSpeaker(engine, app.cfg.Speech.Voice)
			} else {
				internal.LogWarn("No speech synthesis engine found, replies will not be read aloud")
			}
			if rec, ok := internal.NewRecognizer(app.cfg.Speech); ok {
				opts.Recognizer = rec
			}
		}

		// Repaint only the unseen suffix of the accumulated reply so the
		// stream renders as a continuous line
		var printed int
		opts.Publish = func(partial string) {
			if len(partial) > printed {
				fmt.Print(replyStyle.Render(partial[printed:]))
				printed = len(partial)
			}
		}

		manager, err := internal.NewSessionManager(app.store, app.backend, opts)
		if err != nil {
			return err
		}

		fmt.Println(chatTitleStyle.Render(fmt.Sprintf("💬 %s", manager.CurrentChat().Title)))
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Conectado como %s. Digite /help para os comandos.", app.identity.Subject)))
		printHistory(manager.CurrentChat())

		ctx := cmd.Context()
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for {
			fmt.Print(promptStyle.Render("você> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "/") {
				if quit := runSlashCommand(ctx, manager, opts.Recognizer != nil, line, &printed); quit {
					break
				}
				continue
			}

			printed = 0
			if err := submitAndRender(manager, func() error {
				return manager.SubmitTurn(ctx, line)
			}); err != nil {
				return err
			}
		}
		return scanner.Err()
	},
}

// submitAndRender runs one submission, terminates the streamed line, and
// annotates degraded replies
func submitAndRender(manager *internal.SessionManager, submit func() error) error {
	if err := submit(); err != nil {
		if errors.Is(err, internal.ErrLoginRequired) {
			return err
		}
		fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
		return nil
	}
	fmt.Println()

	chat := manager.CurrentChat()
	if len(chat.Messages) > 0 {
		last := chat.Messages[len(chat.Messages)-1]
		if last.Role == internal.RoleAssistant && last.Degraded {
			fmt.Println(degradedStyle.Render("⚠ conexão interrompida, resposta parcial salva"))
		}
	}
	return nil
}

func runSlashCommand(ctx context.Context, manager *internal.SessionManager, canListen bool, line string, printed *int) bool {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		return true

	case "/help":
		printChatHelp(canListen)

	case "/new":
		chat, err := manager.NewChatThread()
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
			return false
		}
		fmt.Println(chatTitleStyle.Render(fmt.Sprintf("💬 %s", chat.Title)))
		printHistory(chat)

	case "/chats":
		printChatTable(manager.State())

	case "/switch":
		if len(args) != 1 {
			fmt.Println(noticeStyle.Render("uso: /switch <id>"))
			return false
		}
		chatID, ok := resolveChatID(manager.State(), args[0])
		if !ok {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ chat não encontrado: %s", args[0])))
			return false
		}
		if err := manager.SwitchChat(chatID); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
			return false
		}
		fmt.Println(chatTitleStyle.Render(fmt.Sprintf("💬 %s", manager.CurrentChat().Title)))
		printHistory(manager.CurrentChat())

	case "/delete":
		target := manager.CurrentChat().ID
		if len(args) == 1 {
			chatID, ok := resolveChatID(manager.State(), args[0])
			if !ok {
				fmt.Println(errorStyle.Render(fmt.Sprintf("✗ chat não encontrado: %s", args[0])))
				return false
			}
			target = chatID
		}
		if err := manager.DeleteChat(target); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
			return false
		}
		fmt.Println(chatTitleStyle.Render(fmt.Sprintf("💬 %s", manager.CurrentChat().Title)))

	case "/edit":
		if len(args) < 2 {
			fmt.Println(noticeStyle.Render("uso: /edit <número> <novo texto>"))
			return false
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println(noticeStyle.Render("uso: /edit <número> <novo texto>"))
			return false
		}
		newContent := strings.Join(args[1:], " ")
		*printed = 0
		if err := submitAndRender(manager, func() error {
			return manager.EditMessage(ctx, index, newContent)
		}); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
		}

	case "/title":
		if len(args) == 0 {
			fmt.Println(noticeStyle.Render("uso: /title <novo título>"))
			return false
		}
		title := strings.Join(args, " ")
		if err := manager.RenameChat(manager.CurrentChat().ID, title); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
			return false
		}
		fmt.Println(chatTitleStyle.Render(fmt.Sprintf("💬 %s", manager.CurrentChat().Title)))

	case "/attach":
		if len(args) == 0 {
			fmt.Println(noticeStyle.Render("uso: /attach <arquivo> [arquivo...]"))
			return false
		}
		fc, err := manager.AttachFiles(ctx, args)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
			return false
		}
		fmt.Println(noticeStyle.Render(fmt.Sprintf("📎 %d arquivo(s) anexado(s) à próxima mensagem: %s",
			len(fc.Filenames), strings.Join(fc.Filenames, ", "))))

	case "/mic":
		if !canListen {
			fmt.Println(noticeStyle.Render("entrada por voz não está configurada (speech.listen_command)"))
			return false
		}
		fmt.Println(noticeStyle.Render("🎤 ouvindo..."))
		*printed = 0
		if err := submitAndRender(manager, func() error {
			return manager.ListenAndSubmit(ctx)
		}); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
		}

	default:
		fmt.Println(noticeStyle.Render(fmt.Sprintf("comando desconhecido: %s (tente /help)", command)))
	}
	return false
}

func printChatHelp(canListen bool) {
	help := []string{
		"/new                 começar um novo chat",
		"/chats               listar todos os chats",
		"/switch <id>         trocar de chat",
		"/delete [id]         apagar um chat (o atual, se omitido)",
		"/edit <n> <texto>    editar a mensagem n e reenviar dali",
		"/title <texto>       renomear o chat atual",
		"/attach <arquivos>   anexar arquivos à próxima mensagem",
	}
	if canListen {
		help = append(help, "/mic                 ditar a próxima mensagem")
	}
	help = append(help, "/quit                sair")
	for _, line := range help {
		fmt.Println(noticeStyle.Render("  " + line))
	}
}

func printHistory(chat *internal.Chat) {
	for i, msg := range chat.Messages {
		label := "🤖"
		style := replyStyle
		if msg.Role == internal.RoleUser {
			label = "👤"
			style = promptStyle
		}
		fmt.Printf("%s %s %s\n", noticeStyle.Render(fmt.Sprintf("[%d]", i)), label, style.Render(msg.Content))
		if msg.Degraded {
			fmt.Println(degradedStyle.Render("    ⚠ resposta parcial"))
		}
	}
}

// resolveChatID accepts a full chat ID or an unambiguous prefix
func resolveChatID(state *internal.SessionState, ref string) (string, bool) {
	if _, ok := state.Chats[ref]; ok {
		return ref, true
	}
	match := ""
	for id := range state.Chats {
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", false
			}
			match = id
		}
	}
	return match, match != ""
}

// promptConfirm asks a yes/no question on stdin
func promptConfirm(prompt string) bool {
	fmt.Printf("%s [s/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "s" || answer == "sim" || answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatNoSpeech, "no-speech", false, "Disable speech output and input for this run")
}
