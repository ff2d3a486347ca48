package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"docchat-client/internal/bootstrap"
	"docchat-client/internal/config"
	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/events"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	userColor   = color.New(color.FgCyan, color.Bold)
	botColor    = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed)
	warnColor   = color.New(color.FgYellow)
	infoColor   = color.New(color.FgHiBlack)
	headerColor = color.New(color.FgMagenta, color.Bold)
)

const helpText = `Commands:
  /token <jwt>          store the bearer token
  /context <mode>       switch between "general" and "document-search"
  /upload <paths...>    stage files for the next question
  /docs                 list documents (refreshes statuses)
  /select <id> [off]    select or deselect a document
  /delete <id>          delete a document
  /save [title]         save the conversation
  /sessions             list saved conversations
  /load <id>            load a saved conversation
  /rmsession <id>       delete a saved conversation
  /reset                start a new conversation
  /export [txt|json]    write the transcript to a file
  /quit                 exit
Anything else is sent as a question.`

type repl struct {
	c     *bootstrap.Container
	tabID string
	lines chan string
}

func main() {
	cfg := config.Load()
	container := bootstrap.NewContainer(cfg, logger.NewIsolatedLogger(cfg.App.LogFilePath))
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &repl{c: container, tabID: "cli-" + uuid.NewString(), lines: make(chan string)}
	if err := r.watchNotifications(ctx); err != nil {
		errColor.Printf("Notifications unavailable: %v\n", err)
	}

	if token := os.Getenv("DOCCHAT_TOKEN"); token != "" {
		r.setToken(ctx, token)
	}

	headerColor.Println("=== Document Chat ===")
	fmt.Println(helpText)
	r.printConversation(ctx)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			r.lines <- scanner.Text()
		}
		close(r.lines)
	}()

	for {
		userColor.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-r.lines:
			if !ok {
				return
			}
			if !r.handle(ctx, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// watchNotifications prints notifications addressed to this session.
func (r *repl) watchNotifications(ctx context.Context) error {
	ch, err := r.c.EventBus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for event := range ch {
			if events.TabID(event) != r.tabID {
				continue
			}
			switch event.EventType() {
			case constant.EventNotification:
				level, _ := event.Payload()["level"].(string)
				text, _ := event.Payload()["message"].(string)
				printNotification(level, text)
			case constant.EventTokenEvicted:
				warnColor.Println("\n[auth] Your token was discarded. Use /token to sign in again.")
			}
		}
	}()
	return nil
}

func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		r.ask(ctx, line)
		return true
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		fmt.Println(helpText)
	case "/token":
		if len(args) != 1 {
			errColor.Println("usage: /token <jwt>")
			return true
		}
		r.setToken(ctx, args[0])
	case "/context":
		if len(args) != 1 {
			errColor.Println("usage: /context general|document-search")
			return true
		}
		r.switchContext(ctx, args[0])
	case "/upload":
		r.stage(ctx, args)
	case "/docs":
		r.listDocuments(ctx)
	case "/select":
		r.selectDocument(ctx, args)
	case "/delete":
		if len(args) != 1 {
			errColor.Println("usage: /delete <id>")
			return true
		}
		if err := r.c.DocumentService.Delete(ctx, r.tabID, args[0]); err != nil {
			errColor.Printf("Delete failed: %v\n", err)
			return true
		}
		r.listDocuments(ctx)
	case "/save":
		res, err := r.c.SavedSessionService.Save(ctx, r.tabID, &dto.SaveChatSessionRequest{Title: strings.Join(args, " ")})
		if err != nil {
			errColor.Printf("Save failed: %v\n", err)
			return true
		}
		infoColor.Printf("Saved %q as %s\n", res.Title, res.Id)
	case "/sessions":
		r.listSessions(ctx)
	case "/load":
		if len(args) != 1 {
			errColor.Println("usage: /load <id>")
			return true
		}
		if _, err := r.c.SavedSessionService.Load(ctx, r.tabID, args[0]); err != nil {
			errColor.Printf("Load failed: %v\n", err)
		}
		r.printConversation(ctx)
	case "/rmsession":
		if len(args) != 1 {
			errColor.Println("usage: /rmsession <id>")
			return true
		}
		if !r.confirm(fmt.Sprintf("Delete saved conversation %s?", args[0])) {
			return true
		}
		if err := r.c.SavedSessionService.Delete(ctx, r.tabID, args[0], true); err != nil {
			errColor.Printf("Delete failed: %v\n", err)
			return true
		}
		infoColor.Println("Deleted.")
	case "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		r.export(ctx, format)
	case "/reset":
		if _, err := r.c.ChatbotService.Reset(ctx, r.tabID); err != nil {
			errColor.Printf("Reset failed: %v\n", err)
			return true
		}
		r.printConversation(ctx)
	default:
		errColor.Printf("Unknown command %s\n", cmd)
	}
	return true
}

func (r *repl) export(ctx context.Context, format string) {
	file, err := r.c.ChatbotService.Export(ctx, r.tabID, format)
	if err != nil {
		errColor.Printf("Export failed: %v\n", err)
		return
	}
	if err := os.WriteFile(file.Filename, file.Body, 0o644); err != nil {
		errColor.Printf("Cannot write %s: %v\n", file.Filename, err)
		return
	}
	infoColor.Printf("Exported to %s\n", file.Filename)
}

func (r *repl) setToken(ctx context.Context, token string) {
	if err := r.c.ChatbotService.SetToken(ctx, r.tabID, &dto.SetTokenRequest{Token: token}); err != nil {
		errColor.Printf("Token rejected: %v\n", err)
		return
	}
	infoColor.Println("Token stored.")
}

func (r *repl) switchContext(ctx context.Context, mode string) {
	res, err := r.c.ChatbotService.SwitchContext(ctx, r.tabID, &dto.SwitchContextRequest{Context: mode})
	if err != nil {
		errColor.Printf("Switch failed: %v\n", err)
		return
	}
	if !res.Changed {
		infoColor.Printf("Already in %s mode.\n", res.Conversation.Context)
		return
	}
	printMessages(res.Conversation.Messages)
}

func (r *repl) ask(ctx context.Context, question string) {
	res, err := r.c.ChatbotService.SendTurn(ctx, r.tabID, &dto.SendTurnRequest{Question: question})
	if err != nil {
		errColor.Printf("Request failed: %v\n", err)
		return
	}
	// The user line was already typed; only show what came back.
	for _, m := range res.Appended {
		if m.Origin == constant.ChatMessageOriginAssistant {
			printMessage(m)
		}
	}
}

func (r *repl) stage(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		errColor.Println("usage: /upload <paths...>")
		return
	}

	files := make([]backend.FileUpload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errColor.Printf("Cannot read %s: %v\n", p, err)
			continue
		}
		files = append(files, backend.FileUpload{Filename: filepath.Base(p), Data: data})
	}
	if len(files) == 0 {
		return
	}

	res, err := r.c.DocumentService.Stage(ctx, r.tabID, files)
	if err != nil {
		errColor.Printf("Staging failed: %v\n", err)
		return
	}
	for _, rej := range res.Rejections {
		warnColor.Printf("  rejected %s: %s\n", rej.Filename, rej.Message)
	}
	if len(res.Staged) > 0 {
		infoColor.Printf("Staged: %s (sent with your next question)\n", strings.Join(res.Staged, ", "))
	}
}

func (r *repl) listDocuments(ctx context.Context) {
	docs, err := r.c.DocumentService.Refresh(ctx, r.tabID)
	if err != nil {
		errColor.Printf("Refresh failed: %v\n", err)
		if docs, err = r.c.DocumentService.List(ctx, r.tabID); err != nil {
			return
		}
	}
	if len(docs) == 0 {
		infoColor.Println("No documents.")
		return
	}
	for _, d := range docs {
		mark := " "
		if d.Selected {
			mark = "*"
		}
		fmt.Printf(" %s %s  %-40s %s\n", mark, d.Id, d.Filename, d.ProcessingStatus)
	}
}

func (r *repl) selectDocument(ctx context.Context, args []string) {
	if len(args) == 0 {
		errColor.Println("usage: /select <id> [off]")
		return
	}
	selected := !(len(args) > 1 && args[1] == "off")
	if _, err := r.c.DocumentService.Select(ctx, r.tabID, args[0], &dto.SelectDocumentRequest{Selected: selected}); err != nil {
		errColor.Printf("Select failed: %v\n", err)
		return
	}
	r.listDocuments(ctx)
}

func (r *repl) listSessions(ctx context.Context) {
	sessions, err := r.c.SavedSessionService.List(ctx, r.tabID)
	if err != nil {
		errColor.Printf("Listing failed: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		infoColor.Println("No saved conversations.")
		return
	}
	for _, s := range sessions {
		fmt.Printf("  %s  %-50s %-16s %3d msgs  %s\n", s.Id, s.Title, s.Context, s.MessageCount, s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) printConversation(ctx context.Context) {
	conv, err := r.c.ChatbotService.GetState(ctx, r.tabID)
	if err != nil {
		errColor.Printf("Cannot read conversation: %v\n", err)
		return
	}
	headerColor.Printf("--- %s ---\n", conv.Context)
	printMessages(conv.Messages)
}

func printMessages(msgs []*dto.ChatMessageResponse) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printMessage(m *dto.ChatMessageResponse) {
	switch m.Kind {
	case constant.ChatMessageKindError:
		errColor.Printf("bot: %s\n", m.Body)
	case constant.ChatMessageKindUser, constant.ChatMessageKindFile:
		userColor.Printf("you: %s\n", m.Body)
	default:
		botColor.Printf("bot: %s\n", m.Body)
		if m.LowConfidence {
			warnColor.Println("     (some documents were still indexing)")
		}
		for _, s := range m.Sources {
			infoColor.Printf("     source: %s\n", s)
		}
	}
}

func printNotification(level, text string) {
	switch level {
	case constant.NotificationLevelError:
		errColor.Printf("\n[!] %s\n", text)
	case constant.NotificationLevelWarning:
		warnColor.Printf("\n[!] %s\n", text)
	default:
		infoColor.Printf("\n[i] %s\n", text)
	}
}

func (r *repl) confirm(prompt string) bool {
	warnColor.Printf("%s [y/N] ", prompt)
	answer, ok := <-r.lines
	if !ok {
		return false
	}
	answer = strings.TrimSpace(answer)
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}
