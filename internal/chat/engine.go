// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oncosight/oncosight-tui/internal/api"
	"github.com/oncosight/oncosight-tui/internal/auth"
	"github.com/oncosight/oncosight-tui/internal/model"
)

// DefaultGreeting opens a fresh conversation.
const DefaultGreeting = "Hello! I'm the OncoSight assistant. How can I help you today?"

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the active conversation and the send loop. All methods are
// safe for concurrent use; network calls run outside the lock so a slow
// agent never blocks snapshot reads.
type Engine struct {
	mu      sync.Mutex
	client  *api.Client
	session *auth.Manager
	history *HistoryClient
	mode    Mode

	conv        *model.Conversation
	resumed     bool
	sending     bool
	greeting    string
	deepTimeout time.Duration
}

// NewEngine creates an engine with a fresh greeted conversation.
func NewEngine(client *api.Client, session *auth.Manager, history *HistoryClient, mode Mode) *Engine {
	e := &Engine{
		client:      client,
		session:     session,
		history:     history,
		mode:        mode,
		greeting:    DefaultGreeting,
		deepTimeout: DefaultDeepTimeout,
	}
	e.conv = e.freshConversation()
	return e
}

// SetGreeting overrides the greeting used to seed new conversations.
func (e *Engine) SetGreeting(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if text != "" {
		e.greeting = text
	}
}

// SetMode switches the agent mode for subsequent sends.
func (e *Engine) SetMode(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the active agent mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetDeepTimeout bounds the patient and research agent calls. Non-positive
// values are ignored.
func (e *Engine) SetDeepTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.deepTimeout = d
	}
}

func (e *Engine) freshConversation() *model.Conversation {
	conv := model.NewConversation("")
	conv.Insert(model.NewAssistantMessage(e.greeting))
	return conv
}

// =============================================================================
// OPEN / CLEAR
// =============================================================================

// Open switches to a conversation. With an id it resumes that chat and
// loads its server-side history; a history failure leaves an empty resumed
// conversation with LastErr set rather than failing the switch. With an
// empty id it starts a fresh greeted conversation.
func (e *Engine) Open(ctx context.Context, chatID string) {
	if chatID == "" {
		e.mu.Lock()
		e.conv = e.freshConversation()
		e.resumed = false
		e.mu.Unlock()
		return
	}

	conv := model.NewConversation(chatID)
	conv.Loading = true

	e.mu.Lock()
	e.conv = conv
	e.resumed = true
	e.mu.Unlock()

	messages, err := e.history.FetchHistory(ctx, chatID)

	e.mu.Lock()
	defer e.mu.Unlock()
	// The user may have switched away while history loaded.
	if e.conv != conv {
		return
	}
	conv.Loading = false
	if err != nil {
		conv.LastErr = err
		log.Printf("chat: failed to resume history: %v", err)
		return
	}
	conv.Merge(messages)
}

// Clear resets the conversation. A resumed chat keeps its id so the server
// thread continues; a local chat gets a new id.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resumed {
		id := e.conv.ID
		e.conv = model.NewConversation(id)
		return
	}
	e.conv = e.freshConversation()
}

// =============================================================================
// SEND
// =============================================================================

// agentRequest is the payload for the agent endpoints.
type agentRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
}

// agentResponse is the agents' answer envelope. ReturnStatus is "success",
// "fallback", or "failed"; a 200 with "failed" is still a failure.
type agentResponse struct {
	Answer       string   `json:"answer"`
	Reasoning    []string `json:"reasoning"`
	Sources      []string `json:"sources"`
	ReturnStatus string   `json:"return_status"`
}

// Send submits a question and returns the assistant's reply, which on
// failure is a synthetic error message (IsError set) so the conversation
// never silently drops a turn. Returns nil when there is nothing to send:
// blank input, a send already in flight, or no authenticated session.
func (e *Engine) Send(ctx context.Context, text string) *model.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	e.mu.Lock()
	if e.sending || !e.session.Authenticated() {
		e.mu.Unlock()
		return nil
	}
	e.sending = true
	conv := e.conv
	mode := e.mode
	deep := e.deepTimeout
	conv.Insert(model.NewUserMessage(text))
	conv.LastErr = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.sending = false
		e.mu.Unlock()
	}()

	reply := e.ask(ctx, mode, deep, text, conv.ID)

	e.mu.Lock()
	defer e.mu.Unlock()
	conv.Insert(reply)
	if reply.IsError {
		conv.LastErr = errors.New(reply.Content)
	}
	return reply
}

// ask performs the agent call and maps every failure to a synthetic reply.
func (e *Engine) ask(ctx context.Context, mode Mode, deep time.Duration, question, chatID string) *model.Message {
	var userID string
	if id := e.session.Identity(); id != nil {
		userID = id.UserID
	}

	req := agentRequest{Question: question, UserID: userID, ChatID: chatID}
	var resp agentResponse
	err := e.client.Call(ctx, http.MethodPost, mode.Endpoint(), req, &resp, mode.CallOptions(deep))
	if err != nil {
		return errorReply(err)
	}
	if resp.ReturnStatus == "failed" {
		log.Printf("chat: agent reported failure")
		return syntheticReply("The assistant could not answer that question. Please try again.")
	}
	if resp.Answer == "" {
		log.Printf("chat: agent returned empty answer")
		return syntheticReply("The assistant returned an empty answer. Please try again.")
	}

	msg := model.NewAssistantMessage(resp.Answer)
	msg.Sources = resp.Sources
	msg.Reasoning = resp.Reasoning
	return msg
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

// errorReply maps a transport or API failure to a message the user can act
// on. The underlying error stays in the log, not in the conversation.
func errorReply(err error) *model.Message {
	log.Printf("chat: send failed: %v", err)

	switch {
	case errors.Is(err, api.ErrTimeout):
		return syntheticReply("The request timed out. The service may be under heavy load; please try again.")
	case errors.Is(err, context.Canceled):
		return syntheticReply("The request was cancelled.")
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return syntheticReply("Your session has expired. Please log in again.")
		case apiErr.Retryable():
			return syntheticReply("The service is having trouble right now. Please try again in a moment.")
		default:
			return syntheticReply("The request was rejected: " + apiErr.Message)
		}
	}

	return syntheticReply("Could not reach the OncoSight service. Check your connection and try again.")
}

func syntheticReply(text string) *model.Message {
	msg := model.NewAssistantMessage(text)
	msg.IsError = true
	return msg
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Messages returns a copy of the conversation's message slice. The
// messages themselves are shared; treat them as read-only.
func (e *Engine) Messages() []*model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Message, len(e.conv.Messages))
	copy(out, e.conv.Messages)
	return out
}

// ConversationID returns the active chat id.
func (e *Engine) ConversationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.ID
}

// Sending reports whether a send is in flight.
func (e *Engine) Sending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sending
}

// Loading reports whether history is being fetched for the active chat.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.Loading
}

// LastErr returns the most recent failure on the active conversation.
func (e *Engine) LastErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.LastErr
}

// Resumed reports whether the active conversation came from the server.
func (e *Engine) Resumed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumed
}
