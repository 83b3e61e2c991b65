// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one ordered chat thread between a user and the backend
// agent. It exists only for the lifetime of the chat view; the backend is
// the system of record.
type Conversation struct {
	// ID is either minted locally for a fresh chat or supplied by the
	// caller to continue a stored one.
	ID string `json:"id"`

	// Messages is kept non-decreasing by timestamp after every mutation.
	Messages []*Message `json:"messages"`

	// Loading is set while history is being fetched.
	Loading bool `json:"-"`

	// LastErr records the most recent non-fatal failure (history load or
	// send). It never makes the conversation unusable.
	LastErr error `json:"-"`
}

// NewConversation creates a conversation. An empty id mints a fresh one.
func NewConversation(id string) *Conversation {
	if id == "" {
		id = "chat_" + uuid.NewString()
	}
	return &Conversation{
		ID:       id,
		Messages: make([]*Message, 0),
	}
}

// =============================================================================
// ORDERED INSERTION
// =============================================================================

// Insert adds a message keeping the list sorted by timestamp. Equal
// timestamps keep insertion order (the new message goes after existing ones),
// so appends of already-ordered messages are stable.
func (c *Conversation) Insert(msg *Message) {
	idx := sort.Search(len(c.Messages), func(i int) bool {
		return c.Messages[i].Timestamp.After(msg.Timestamp)
	})
	c.Messages = append(c.Messages, nil)
	copy(c.Messages[idx+1:], c.Messages[idx:])
	c.Messages[idx] = msg
}

// Last returns the most recent message, or nil if empty.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// HISTORY MERGE
// =============================================================================

// mergeKey identifies a message across the local/server id boundary. The
// backend assigns its own ids to echoed messages, so identity is
// (second-resolution timestamp, normalized content, role) instead.
type mergeKey struct {
	ts      int64
	content string
	role    Role
}

func keyOf(m *Message) mergeKey {
	return mergeKey{
		ts:      m.Timestamp.Truncate(time.Second).Unix(),
		content: norm.NFC.String(strings.TrimSpace(m.Content)),
		role:    m.Role,
	}
}

// Merge reconciles history loaded from the backend with whatever is already
// in the conversation. Messages already present (by merge key) are skipped,
// so merging is idempotent and a locally-appended message survives the
// backend echoing the same message back. Ordering is restored after the
// merge.
func (c *Conversation) Merge(history []*Message) {
	seen := make(map[mergeKey]struct{}, len(c.Messages))
	for _, m := range c.Messages {
		seen[keyOf(m)] = struct{}{}
	}

	for _, m := range history {
		k := keyOf(m)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		c.Insert(m)
	}
}

// Reset clears all messages, optionally seeding an initial one.
func (c *Conversation) Reset(seed *Message) {
	c.Messages = make([]*Message, 0, 1)
	c.LastErr = nil
	if seed != nil {
		c.Insert(seed)
	}
}
