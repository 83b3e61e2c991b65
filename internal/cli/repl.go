// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/oncosight/oncosight-tui/internal/auth"
	"github.com/oncosight/oncosight-tui/internal/chat"
	"github.com/oncosight/oncosight-tui/internal/health"
	"github.com/oncosight/oncosight-tui/internal/model"
	"github.com/oncosight/oncosight-tui/internal/util"
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain line-mode session.
type REPL struct {
	line        *liner.State
	historyFile string
	session     *auth.Manager
	engine      *chat.Engine
	history     *chat.HistoryClient
	monitor     *health.Monitor
	renderer    *glamour.TermRenderer
}

// New creates a REPL with input history persisted under stateDir.
func New(stateDir string, session *auth.Manager, engine *chat.Engine, history *chat.HistoryClient, monitor *health.Monitor) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &REPL{
		line:        line,
		historyFile: filepath.Join(stateDir, "input_history"),
		session:     session,
		engine:      engine,
		history:     history,
		monitor:     monitor,
	}
	r.loadHistory()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		r.renderer = renderer
	}
	return r
}

func (r *REPL) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory() {
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// Close saves input history and restores the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

// =============================================================================
// LOGIN
// =============================================================================

// EnsureLogin prompts for credentials until a session exists or the user
// aborts. The password is read with echo off.
func (r *REPL) EnsureLogin(ctx context.Context) error {
	if r.session.Authenticated() {
		return nil
	}

	for {
		email, err := r.line.Prompt("email: ")
		if err != nil {
			return fmt.Errorf("login aborted: %w", err)
		}
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}

		fmt.Print("password: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		err = r.session.Login(ctx, email, string(pw))
		if err == nil {
			if id := r.session.Identity(); id != nil {
				fmt.Printf("Signed in as %s.\n", id.DisplayName())
			}
			return nil
		}

		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			fmt.Println("Invalid email or password, try again.")
		case errors.Is(err, auth.ErrEmailUnverified):
			fmt.Println("Your email is not verified. Use /resend after starting, or check your inbox.")
			return err
		default:
			return err
		}
	}
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run drives the prompt loop until the user exits.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Println("OncoSight plain mode. Type /help for commands, /quit to exit.")

	for {
		input, err := r.line.Prompt("oncosight> ")
		if err != nil {
			// Ctrl+C or Ctrl+D both exit cleanly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if done := r.command(ctx, input); done {
				return nil
			}
			continue
		}

		r.send(ctx, input)
	}
}

func (r *REPL) send(ctx context.Context, text string) {
	if r.monitor.Status() == health.StatusOffline {
		if r.monitor.ForceCheck(ctx) == health.StatusOffline {
			fmt.Println("Offline: message not sent. Use /status to recheck the connection.")
			return
		}
	}

	reply := r.engine.Send(ctx, text)
	if reply == nil {
		fmt.Println("Nothing sent. Are you logged in?")
		return
	}
	r.printMessage(reply)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command executes a slash command; true means exit.
func (r *REPL) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /chats            list your chats
  /open <chat-id>   resume a chat
  /new              start a fresh chat
  /clear            clear the current conversation
  /mode <name>      switch agent: general, patient, research
  /status           check the connection
  /whoami           show the signed-in user
  /resend <email>   resend the verification email
  /logout           sign out and exit
  /quit             exit`)

	case "/chats":
		metas, err := r.history.Metadata(ctx)
		if err != nil {
			fmt.Printf("Could not list chats: %v\n", err)
			break
		}
		if len(metas) == 0 {
			fmt.Println("No chats yet.")
			break
		}
		for _, m := range metas {
			title := util.FirstLine(m.Title)
			if title == "" {
				title = "(untitled)"
			}
			// PadRight counts display cells, so wide ids still line up.
			fmt.Printf("  %s %s\n", util.PadRight(m.ChatID, 28), title)
		}

	case "/open":
		if len(args) != 1 {
			fmt.Println("Usage: /open <chat-id>")
			break
		}
		r.engine.Open(ctx, args[0])
		if err := r.engine.LastErr(); err != nil {
			fmt.Printf("Could not load history: %v\n", err)
			break
		}
		for _, msg := range r.engine.Messages() {
			r.printMessage(msg)
		}

	case "/new":
		r.engine.Open(ctx, "")
		fmt.Println("Started a new chat.")

	case "/clear":
		r.engine.Clear()
		fmt.Println("Conversation cleared.")

	case "/mode":
		if len(args) != 1 {
			fmt.Printf("Current mode: %s\n", r.engine.Mode())
			break
		}
		mode, err := chat.ParseMode(args[0])
		if err != nil {
			fmt.Println(err)
			break
		}
		r.engine.SetMode(mode)
		fmt.Printf("Mode set to %s.\n", mode)

	case "/status":
		fmt.Printf("Connection: %s\n", r.monitor.ForceCheck(ctx))

	case "/whoami":
		id := r.session.Identity()
		if id == nil {
			fmt.Println("Not signed in.")
			break
		}
		fmt.Printf("%s <%s> (%s)\n", id.DisplayName(), id.Email, id.Role)

	case "/resend":
		if len(args) != 1 {
			fmt.Println("Usage: /resend <email>")
			break
		}
		if err := r.session.ResendVerification(ctx, args[0]); err != nil {
			fmt.Printf("Could not resend: %v\n", err)
			break
		}
		fmt.Println("If the address is registered, a verification email is on its way.")

	case "/logout":
		r.session.Logout(ctx)
		fmt.Println("Signed out.")
		return true

	default:
		fmt.Printf("Unknown command %s. Try /help.\n", cmd)
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) printMessage(msg *model.Message) {
	switch {
	case msg.Role == model.RoleUser:
		fmt.Printf("you: %s\n", msg.Content)
	case msg.IsError:
		fmt.Printf("! %s\n", msg.Content)
	default:
		fmt.Println(r.renderMarkdown(msg.Content))
		for _, src := range msg.Sources {
			fmt.Printf("    source: %s\n", src)
		}
	}
}

func (r *REPL) renderMarkdown(md string) string {
	if r.renderer == nil {
		return md
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
