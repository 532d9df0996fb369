package models

// Sender markers used in supervisor mailboxes. Peer threads use the sender's
// company name instead.
const (
	SenderSupervisor = "SUPERVISOR"
	SenderUser       = "USER"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 10000

// MessageItem is one chat message. Timestamp is Unix milliseconds.
type MessageItem struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read,omitempty"`
}

// Thread is an ordered message history, oldest first.
type Thread []MessageItem

// LastUnreadFrom reports whether the last message was sent by counterparty
// and is still unread. Only the last message is inspected.
func (t Thread) LastUnreadFrom(counterparty string) bool {
	if len(t) == 0 {
		return false
	}
	last := t[len(t)-1]
	return last.Sender == counterparty && !last.Read
}

// MarkRead flips the trailing unread messages of every sender other than self
// to read, walking back until a message from self. It reports whether
// anything changed.
func (t Thread) MarkRead(self string) bool {
	changed := false
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Sender == self {
			break
		}
		if !t[i].Read {
			t[i].Read = true
			changed = true
		}
	}
	return changed
}
