// Package chatview merges the durable message history of a conversation with a
// transient buffer of optimistically sent messages into one ordered,
// deduplicated, date-grouped display sequence.
package chatview

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TempIDPrefix tags client-generated identifiers for messages that have not
// been confirmed by the server yet.
const TempIDPrefix = "temp-"

// SupersedeWindow bounds how far apart in time an ack and its optimistic copy
// may be and still be treated as the same logical message.
const SupersedeWindow = time.Minute

// Message is the view-layer representation of a direct message. Confirmed
// messages carry the server-assigned id; optimistic ones a TempIDPrefix id.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
	Failed     bool      `json:"failed,omitempty"`
}

// Pending reports whether the message is still awaiting server confirmation.
func (m Message) Pending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix) && !m.Failed
}

// DisplayItem kinds.
const (
	KindMessage     = "message"
	KindDateDivider = "date_divider"
)

// DisplayItem is one renderable row: either a message or a synthetic divider
// marking the start of a calendar day.
type DisplayItem struct {
	Kind    string    `json:"kind"`
	Message *Message  `json:"message,omitempty"`
	Pending bool      `json:"pending,omitempty"`
	Day     time.Time `json:"day,omitempty"`
	Label   string    `json:"label,omitempty"`
}

// Render produces the display sequence for a conversation. Confirmed messages
// win on id collision, the combined set is sorted ascending by creation time
// (ties resolved by insertion order, confirmed before optimistic), and a date
// divider opens each local-calendar-day bucket. The function is pure and
// idempotent, so callers may re-invoke it on every render.
func Render(confirmed, optimistic []Message, loc *time.Location) []DisplayItem {
	if loc == nil {
		loc = time.Local
	}

	seen := make(map[string]struct{}, len(confirmed))
	combined := make([]Message, 0, len(confirmed)+len(optimistic))
	for _, m := range confirmed {
		seen[m.ID] = struct{}{}
		combined = append(combined, m)
	}
	for _, m := range optimistic {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		combined = append(combined, m)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.Before(combined[j].CreatedAt)
	})

	items := make([]DisplayItem, 0, len(combined)+4)
	var currentDay time.Time
	for i := range combined {
		m := combined[i]
		day := startOfDay(m.CreatedAt, loc)
		if currentDay.IsZero() || !day.Equal(currentDay) {
			currentDay = day
			items = append(items, DisplayItem{
				Kind:  KindDateDivider,
				Day:   day,
				Label: dayLabel(day),
			})
		}
		items = append(items, DisplayItem{
			Kind:    KindMessage,
			Message: &combined[i],
			Pending: m.Pending(),
		})
	}

	return items
}

// Supersedes reports whether a confirmed message retires the given optimistic
// copy. Exact ClientRef matches are handled upstream; this is the fallback for
// acks that lost their reference, matching on participants, content and
// temporal proximity.
func Supersedes(confirmed, optimistic Message) bool {
	if !strings.HasPrefix(optimistic.ID, TempIDPrefix) {
		return false
	}
	if confirmed.SenderID != optimistic.SenderID || confirmed.ReceiverID != optimistic.ReceiverID {
		return false
	}
	if confirmed.Content != optimistic.Content {
		return false
	}

	delta := confirmed.CreatedAt.Sub(optimistic.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= SupersedeWindow
}

// NewestChanged reports whether the tail message of the rendered sequence
// differs between two renders. The view layer auto-scrolls only when this is
// true, so new messages never yank a reader browsing history on unrelated
// re-renders.
func NewestChanged(prev, next []DisplayItem) bool {
	prevTail := tailMessage(prev)
	nextTail := tailMessage(next)
	if nextTail == nil {
		return false
	}
	if prevTail == nil {
		return true
	}
	return prevTail.ID != nextTail.ID
}

func tailMessage(items []DisplayItem) *Message {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == KindMessage {
			return items[i].Message
		}
	}
	return nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func dayLabel(day time.Time) string {
	return fmt.Sprintf("%s %d, %d", day.Month().String(), day.Day(), day.Year())
}
