// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/oncosight/oncosight-tui/internal/api"
	"github.com/oncosight/oncosight-tui/internal/model"
)

// =============================================================================
// HISTORY CLIENT
// =============================================================================

// HistoryClient reads server-side chat history and metadata.
type HistoryClient struct {
	client *api.Client
	userID func() string
}

// NewHistoryClient creates a history client. userID supplies the current
// user id at call time, so the client survives re-login.
func NewHistoryClient(client *api.Client, userID func() string) *HistoryClient {
	return &HistoryClient{client: client, userID: userID}
}

// historyMessage is one raw entry of the backend's history payload.
type historyMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Reasoning []any  `json:"reasoning"`
	Sources   []any  `json:"sources"`
}

// FetchHistory loads the full history of a chat and normalizes it into the
// conversation model. Tool traces and other non-dialogue entries are
// dropped; a bad timestamp keeps the message with a zero time rather than
// losing it.
func (h *HistoryClient) FetchHistory(ctx context.Context, chatID string) ([]*model.Message, error) {
	body := map[string]string{"user_id": h.userID(), "chat_id": chatID}

	var resp struct {
		ChatHistory []historyMessage `json:"chat_history"`
	}
	err := h.client.Call(ctx, http.MethodPost, "/chats/fetch_history", body, &resp, api.CallOptions{Authenticated: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	messages := make([]*model.Message, 0, len(resp.ChatHistory))
	for _, raw := range resp.ChatHistory {
		role, ok := model.SenderToRole(raw.Sender)
		if !ok {
			continue
		}
		msg := model.NewMessage(role, raw.Content)
		msg.Timestamp = parseTimestamp(raw.Timestamp)
		msg.Sources = stringify(raw.Sources)
		msg.Reasoning = stringify(raw.Reasoning)
		messages = append(messages, msg)
	}

	log.Printf("history: loaded %d of %d messages for chat", len(messages), len(resp.ChatHistory))
	return messages, nil
}

// ChatIDs lists the ids of the user's chats.
func (h *HistoryClient) ChatIDs(ctx context.Context) ([]string, error) {
	body := map[string]string{"user_id": h.userID()}

	var resp struct {
		ChatIDs []string `json:"chat_ids"`
	}
	err := h.client.Call(ctx, http.MethodPost, "/chats/get_ids", body, &resp, api.CallOptions{Authenticated: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return resp.ChatIDs, nil
}

// ChatMeta is the listing entry for one chat. The backend keys each entry
// by its document id and stamps creation time only.
type ChatMeta struct {
	ChatID    string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Metadata lists the user's chats with titles for the recents view.
func (h *HistoryClient) Metadata(ctx context.Context) ([]ChatMeta, error) {
	body := map[string]string{"user_id": h.userID()}

	var resp struct {
		ChatsMetadata []ChatMeta `json:"chats_metadata"`
	}
	err := h.client.Call(ctx, http.MethodPost, "/chats/get_metadata", body, &resp, api.CallOptions{Authenticated: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat metadata: %w", err)
	}
	return resp.ChatsMetadata, nil
}

// Exists reports whether the chat id exists on the backend.
func (h *HistoryClient) Exists(ctx context.Context, chatID string) (bool, error) {
	body := map[string]string{"user_id": h.userID(), "chat_id": chatID}

	var resp struct {
		Result bool `json:"result"`
	}
	err := h.client.Call(ctx, http.MethodPost, "/chats/exists", body, &resp, api.CallOptions{Authenticated: true})
	if err != nil {
		return false, fmt.Errorf("failed to check chat existence: %w", err)
	}
	return resp.Result, nil
}

// Title fetches the server-generated title of a chat.
func (h *HistoryClient) Title(ctx context.Context, chatID string) (string, error) {
	body := map[string]string{"user_id": h.userID(), "chat_id": chatID}

	var resp struct {
		Result string `json:"result"`
	}
	err := h.client.Call(ctx, http.MethodPost, "/chats/get_title", body, &resp, api.CallOptions{Authenticated: true})
	if err != nil {
		return "", fmt.Errorf("failed to fetch chat title: %w", err)
	}
	return resp.Result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// timestampFormats covers the layouts the backend emits.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999", // naive ISO without zone
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stringify flattens a loosely typed JSON list into strings, skipping
// non-string entries.
func stringify(items []any) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
