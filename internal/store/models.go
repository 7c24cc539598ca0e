package store

// Message roles and types mirror what the chat surface renders.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// DefaultTitle is the placeholder shown before a real title is derived.
const DefaultTitle = "New chat"

// Message is owned by exactly one conversation. It is immutable once
// appended, except for the in-place update that resolves a pending
// assistant placeholder.
type Message struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Content     string         `json:"content"`
	Timestamp   int64          `json:"timestamp"`
	MessageType string         `json:"messageType"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// TitleStatus is the transient per-conversation title lifecycle state.
// It is never persisted.
type TitleStatus string

const (
	TitleIdle    TitleStatus = "idle"
	TitleLoading TitleStatus = "loading"
	TitleError   TitleStatus = "error"
)

// HasStableTitle reports whether the conversation already carries a
// human-meaningful title that must not be regenerated.
func (c *Conversation) HasStableTitle() bool {
	return c.Title != "" && c.Title != c.ID && c.Title != DefaultTitle
}

func copyMessages(messages []Message) []Message {
	copied := make([]Message, len(messages))
	copy(copied, messages)
	for i := range copied {
		if copied[i].Metadata == nil {
			continue
		}
		meta := make(map[string]any, len(copied[i].Metadata))
		for k, v := range copied[i].Metadata {
			meta[k] = v
		}
		copied[i].Metadata = meta
	}
	return copied
}
