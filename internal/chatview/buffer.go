package chatview

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Buffer holds a single conversation's optimistic messages between send and
// server confirmation. Each conversation view owns exactly one buffer; it is
// never shared across conversations.
type Buffer struct {
	mu      sync.Mutex
	entries []Message
}

// NewBuffer returns an empty optimistic buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewTempID generates a client-side temporary message identifier.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// Add stages an outgoing message and returns the copy stored, including its
// assigned temporary id when the caller left ID empty.
func (b *Buffer) Add(m Message) Message {
	if m.ID == "" {
		m.ID = NewTempID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, m)
	return m
}

// Remove drops the entry with the given temporary id. It is the caller's
// confirmation path: invoked when an ack arrives with a matching ClientRef or
// when Supersedes identifies the confirmed copy.
func (b *Buffer) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Fail marks the entry with the given id as failed so the view can render a
// retry affordance instead of leaving the message stuck pending.
func (b *Buffer) Fail(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].ID == id {
			b.entries[i].Failed = true
			return true
		}
	}
	return false
}

// Reconcile removes every staged entry retired by the given confirmed
// messages, matching first on ClientRef and then by Supersedes. It returns the
// number of entries removed.
func (b *Buffer) Reconcile(confirmed []Message, refs map[string]string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	kept := b.entries[:0]
	for _, entry := range b.entries {
		if retiredBy(entry, confirmed, refs) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	b.entries = kept
	return removed
}

// Snapshot returns a copy of the staged entries in insertion order.
func (b *Buffer) Snapshot() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of staged entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func retiredBy(entry Message, confirmed []Message, refs map[string]string) bool {
	for _, c := range confirmed {
		if ref, ok := refs[c.ID]; ok && ref == entry.ID {
			return true
		}
		if Supersedes(c, entry) {
			return true
		}
	}
	return false
}
