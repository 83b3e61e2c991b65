// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func msgAt(role Role, content string, t time.Time) *Message {
	m := NewMessage(role, content)
	m.Timestamp = t
	return m
}

// assertOrdered verifies the timestamp-ascending invariant.
func assertOrdered(t *testing.T, c *Conversation) {
	t.Helper()
	for i := 1; i < len(c.Messages); i++ {
		if c.Messages[i].Timestamp.Before(c.Messages[i-1].Timestamp) {
			t.Fatalf("messages out of order at index %d: %v before %v",
				i, c.Messages[i].Timestamp, c.Messages[i-1].Timestamp)
		}
	}
}

func TestInsertKeepsTimestampOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewConversation("")

	// Insert out of order: T3, T1, T2.
	c.Insert(msgAt(RoleUser, "third", base.Add(3*time.Second)))
	c.Insert(msgAt(RoleUser, "first", base.Add(1*time.Second)))
	c.Insert(msgAt(RoleAssistant, "second", base.Add(2*time.Second)))

	assertOrdered(t, c)
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if c.Messages[i].Content != w {
			t.Errorf("position %d = %q, expected %q", i, c.Messages[i].Content, w)
		}
	}
}

func TestInsertStableOnEqualTimestamps(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewConversation("")

	c.Insert(msgAt(RoleUser, "a", ts))
	c.Insert(msgAt(RoleAssistant, "b", ts))
	c.Insert(msgAt(RoleUser, "c", ts))

	got := []string{c.Messages[0].Content, c.Messages[1].Content, c.Messages[2].Content}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tie-break order = %v, expected %v", got, want)
			break
		}
	}
}

func TestMergeDeduplicatesByTimestampAndContent(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewConversation("chat_123")

	// Locally appended optimistic message.
	local := msgAt(RoleUser, "hello", ts)
	c.Insert(local)

	// Backend echoes the same message with a different id and sub-second
	// timestamp skew, plus one new assistant message.
	echo := msgAt(RoleUser, "hello", ts.Add(300*time.Millisecond))
	answer := msgAt(RoleAssistant, "hi there", ts.Add(2*time.Second))

	c.Merge([]*Message{echo, answer})

	if c.Len() != 2 {
		t.Fatalf("message count after merge = %d, expected 2", c.Len())
	}
	if c.Messages[0].ID != local.ID {
		t.Error("merge replaced the local message instead of keeping it")
	}
	assertOrdered(t, c)

	// Merging the same history again must be a no-op.
	c.Merge([]*Message{echo, answer})
	if c.Len() != 2 {
		t.Errorf("merge is not idempotent: count = %d, expected 2", c.Len())
	}
}

func TestMergeDistinguishesRoles(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewConversation("")

	c.Insert(msgAt(RoleUser, "same text", ts))
	c.Merge([]*Message{msgAt(RoleAssistant, "same text", ts)})

	if c.Len() != 2 {
		t.Errorf("messages with same content but different roles must not collapse: count = %d", c.Len())
	}
}

func TestSenderToRole(t *testing.T) {
	tests := []struct {
		sender string
		role   Role
		ok     bool
	}{
		{"Human", RoleUser, true},
		{"AI", RoleAssistant, true},
		{"user", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"Tool", "", false},
		{"Other", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		role, ok := SenderToRole(tc.sender)
		if role != tc.role || ok != tc.ok {
			t.Errorf("SenderToRole(%q) = (%q, %v), expected (%q, %v)",
				tc.sender, role, ok, tc.role, tc.ok)
		}
	}
}

func TestNewConversationMintsID(t *testing.T) {
	a := NewConversation("")
	b := NewConversation("")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("minted ids must be unique and non-empty: %q vs %q", a.ID, b.ID)
	}

	c := NewConversation("chat_existing")
	if c.ID != "chat_existing" {
		t.Errorf("supplied id not kept: %q", c.ID)
	}
}

func TestResetSeeds(t *testing.T) {
	c := NewConversation("")
	c.Insert(NewUserMessage("old"))
	seed := NewAssistantMessage("welcome")

	c.Reset(seed)

	if c.Len() != 1 || c.Messages[0] != seed {
		t.Errorf("reset did not seed correctly: len=%d", c.Len())
	}
}

func TestMessagePreview(t *testing.T) {
	m := NewUserMessage("a long message that should be cut")
	if got := m.Preview(10); got != "a long ..." {
		t.Errorf("Preview = %q", got)
	}
	if got := m.Preview(100); got != m.Content {
		t.Errorf("short content must not be truncated: %q", got)
	}
}
