package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/llm"
	"github.com/klob0t/chloe/internal/logger"
)

// systemPrompt is prepended to every text-path transcript.
const systemPrompt = `You are Chloe, a warm and slightly informal AI assistant. Your persona is that of the user's digital best friend: mature yet fun, intelligent and insightful, with responses that are concise, clear, and delivered with characteristic warmth.`

const assistantErrorMessage = "Sorry, I encountered an error. Please try again."

// Completer produces a final assistant answer for a role/content
// transcript, running any tool round trips internally.
type Completer interface {
	Chat(ctx context.Context, turns []llm.Turn, model string) (string, error)
}

// ImageGenerator resolves an /imagine request into an image URL plus
// echoed metadata.
type ImageGenerator interface {
	Generate(ctx context.Context, req image.Request) (*image.Result, error)
}

// Store manages the set of conversations and the active message list.
// In-memory state is a write-through cache over the persisted KV: every
// save reads, merges by conversation id and writes back. A nil KV makes
// persistence a silent no-op.
type Store struct {
	mu sync.Mutex

	kv        KV
	completer Completer
	images    ImageGenerator

	conversations map[string]*Conversation
	deleted       map[string]struct{}
	currentID     string
	messages      []Message
	isTyping      bool
	isLoading     bool

	titleStatus map[string]TitleStatus
	titleModel  string
	titleWG     sync.WaitGroup

	now func() time.Time
}

func New(kv KV, completer Completer, images ImageGenerator) *Store {
	return &Store{
		kv:            kv,
		completer:     completer,
		images:        images,
		conversations: make(map[string]*Conversation),
		deleted:       make(map[string]struct{}),
		titleStatus:   make(map[string]TitleStatus),
		now:           time.Now,
	}
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func newID(prefix string, at int64) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", prefix, at, suffix)
}

// SetTitleModel selects the completion model used for title
// generation. Empty keeps the completer's default.
func (s *Store) SetTitleModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titleModel = model
}

// CreateConversation registers a fresh empty conversation, marks it
// current and returns its id.
func (s *Store) CreateConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	id := newID("conv", now)
	s.registerLocked(&Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.currentID = id
	s.messages = nil
	return id
}

// CurrentConversationID returns the active conversation id, if any.
func (s *Store) CurrentConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Messages returns a copy of the active message list.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMessages(s.messages)
}

// IsBusy reports whether a send is in flight.
func (s *Store) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading || s.isTyping
}

// SendMessage appends the user message plus an empty assistant
// placeholder, dispatches the image or text path and finalizes the
// placeholder in place. All failures become user-visible placeholder
// content; SendMessage itself never fails.
func (s *Store) SendMessage(ctx context.Context, content, model string) Message {
	isImage := IsImagineCommand(content)

	s.mu.Lock()
	now := s.nowMillis()
	userMsg := Message{
		ID:          newID("msg", now),
		Role:        RoleUser,
		Content:     content,
		Timestamp:   now,
		MessageType: MessageTypeText,
	}
	placeholderType := MessageTypeText
	if isImage {
		placeholderType = MessageTypeImage
	}
	placeholder := Message{
		ID:          newID("msg", now),
		Role:        RoleAssistant,
		Content:     "",
		Timestamp:   now,
		MessageType: placeholderType,
	}
	history := copyMessages(s.messages)
	s.messages = append(s.messages, userMsg, placeholder)
	s.isTyping = true
	s.isLoading = true
	s.mu.Unlock()

	if isImage {
		s.runImagePath(ctx, content, placeholder.ID)
	} else {
		s.runTextPath(ctx, content, model, history, placeholder.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if final, ok := s.findMessage(placeholder.ID); ok {
		return *final
	}
	return placeholder
}

func (s *Store) runImagePath(ctx context.Context, content, placeholderID string) {
	cmd, err := ParseImagineCommand(content)
	if err != nil {
		s.finalizePlaceholder(placeholderID, err.Error(), MessageTypeText, nil)
		return
	}

	req := image.Request{
		Prompt:         cmd.Prompt,
		Seed:           cmd.Seed,
		GuidanceScale:  cmd.GuidanceScale,
		InferenceSteps: cmd.InferenceSteps,
		Model:          cmd.Model,
	}
	if cmd.Width != nil {
		req.Width = *cmd.Width
	}
	if cmd.Height != nil {
		req.Height = *cmd.Height
	}

	result, err := s.images.Generate(ctx, req)
	if err != nil {
		logger.Warn("[Store] image generation failed: %v", err)
		s.finalizePlaceholder(placeholderID, fmt.Sprintf("Image generation failed: %v", err), MessageTypeText, nil)
		return
	}

	s.finalizePlaceholder(placeholderID, result.URL, MessageTypeImage, imageMetadata(cmd, result))
}

// imageMetadata merges generation parameters, preferring the locally
// supplied values over whatever the backend echoed.
func imageMetadata(cmd *ImageCommand, result *image.Result) map[string]any {
	meta := map[string]any{
		"prompt":   cmd.Prompt,
		"provider": result.Metadata.Provider,
		"source":   result.Metadata.Source,
	}

	meta["model"] = result.Metadata.Model
	if cmd.Model != "" {
		meta["model"] = cmd.Model
	}
	meta["width"] = result.Metadata.Width
	if cmd.Width != nil {
		meta["width"] = *cmd.Width
	}
	meta["height"] = result.Metadata.Height
	if cmd.Height != nil {
		meta["height"] = *cmd.Height
	}

	switch {
	case cmd.Seed != nil:
		meta["seed"] = *cmd.Seed
	case result.Metadata.Seed != nil:
		meta["seed"] = *result.Metadata.Seed
	}
	switch {
	case cmd.GuidanceScale != nil:
		meta["guidanceScale"] = *cmd.GuidanceScale
	case result.Metadata.GuidanceScale != nil:
		meta["guidanceScale"] = *result.Metadata.GuidanceScale
	}
	switch {
	case cmd.InferenceSteps != nil:
		meta["inferenceSteps"] = *cmd.InferenceSteps
	case result.Metadata.InferenceSteps != nil:
		meta["inferenceSteps"] = *result.Metadata.InferenceSteps
	}

	return meta
}

func (s *Store) runTextPath(ctx context.Context, content, model string, history []Message, placeholderID string) {
	turns := buildTranscript(history)
	turns = append(turns, llm.Turn{Role: RoleUser, Content: content})

	answer, err := s.completer.Chat(ctx, turns, model)
	if err != nil {
		logger.Warn("[Store] completion failed: %v", err)
		s.finalizePlaceholder(placeholderID, assistantErrorMessage, MessageTypeText, nil)
		return
	}
	s.finalizePlaceholder(placeholderID, answer, MessageTypeText, nil)
}

// buildTranscript serializes prior messages into role/content turns.
// Image messages become a textual description instead of the raw URL;
// messages that end up empty after trimming are dropped. The fixed
// system prompt always leads.
func buildTranscript(history []Message) []llm.Turn {
	turns := []llm.Turn{{Role: "system", Content: systemPrompt}}
	for _, msg := range history {
		content := msg.Content
		if msg.MessageType == MessageTypeImage {
			prompt, _ := msg.Metadata["prompt"].(string)
			content = fmt.Sprintf("Image generated for prompt: %s", prompt)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		turns = append(turns, llm.Turn{Role: msg.Role, Content: content})
	}
	return turns
}

// finalizePlaceholder resolves the pending assistant message, matched by
// id rather than position, and clears the typing/loading flags.
func (s *Store) finalizePlaceholder(id, content, messageType string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.findMessage(id); ok {
		msg.Content = content
		msg.MessageType = messageType
		msg.Metadata = metadata
	} else {
		logger.Warn("[Store] placeholder %s vanished before finalization", id)
	}
	s.isTyping = false
	s.isLoading = false
}

// registerLocked puts the conversation in the in-memory tier and lifts
// any deletion tombstone for its id, so a re-created conversation
// persists again. Caller holds s.mu.
func (s *Store) registerLocked(conv *Conversation) {
	s.conversations[conv.ID] = conv
	delete(s.deleted, conv.ID)
}

func (s *Store) findMessage(id string) (*Message, bool) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i], true
		}
	}
	return nil, false
}

// Save persists the current conversation, merged with whatever is
// already on disk. A conversation with no messages is not saved. When no
// stable title exists yet and a meaningful user message is present,
// title generation is kicked off in the background.
func (s *Store) Save(ctx context.Context, title string) {
	s.mu.Lock()

	if len(s.messages) == 0 {
		s.mu.Unlock()
		return
	}
	if s.currentID == "" {
		now := s.nowMillis()
		s.currentID = newID("conv", now)
	}
	id := s.currentID

	conv, ok := s.conversations[id]
	if !ok {
		now := s.nowMillis()
		conv = &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
		s.registerLocked(conv)
	}
	if title != "" {
		conv.Title = title
	}
	conv.Messages = copyMessages(s.messages)

	// updatedAt is monotonically non-decreasing across saves.
	now := s.nowMillis()
	if now < conv.UpdatedAt {
		now = conv.UpdatedAt
	}
	conv.UpdatedAt = now

	s.persistLocked()
	needsTitle := !conv.HasStableTitle() && hasMeaningfulUserMessage(conv.Messages)
	s.mu.Unlock()

	if needsTitle {
		s.titleWG.Add(1)
		// Detached from the caller's context: title generation must
		// survive the request that triggered the save.
		go func() {
			defer s.titleWG.Done()
			s.EnsureConversationTitle(context.Background(), id)
		}()
	}
}

// Load makes the conversation with the given id current. Preference
// order: in-memory record, persisted record, the already-active message
// list, then an empty placeholder conversation.
func (s *Store) Load(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[id]; ok {
		s.currentID = id
		s.messages = copyMessages(conv.Messages)
		return conv
	}

	for _, persisted := range s.readPersisted() {
		if persisted.ID == id {
			conv := persisted
			s.registerLocked(&conv)
			s.currentID = id
			s.messages = copyMessages(conv.Messages)
			return &conv
		}
	}

	if id == s.currentID && len(s.messages) > 0 {
		now := s.nowMillis()
		conv := &Conversation{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
			Messages:  copyMessages(s.messages),
		}
		s.registerLocked(conv)
		return conv
	}

	now := s.nowMillis()
	conv := &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	s.registerLocked(conv)
	s.currentID = id
	s.messages = nil
	return conv
}

// Delete removes the conversation from both tiers. Deleting the active
// conversation clears the active pointer and the message list.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	delete(s.titleStatus, id)
	s.deleted[id] = struct{}{}
	if s.currentID == id {
		s.currentID = ""
		s.messages = nil
	}
	s.persistLocked()
}

// Conversations returns all known conversations, newest first, after
// hydrating from the persisted tier.
func (s *Store) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, persisted := range s.readPersisted() {
		if _, gone := s.deleted[persisted.ID]; gone {
			continue
		}
		if _, ok := s.conversations[persisted.ID]; !ok {
			conv := persisted
			s.conversations[conv.ID] = &conv
		}
	}

	list := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		c := *conv
		c.Messages = copyMessages(conv.Messages)
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt != list[j].UpdatedAt {
			return list[i].UpdatedAt > list[j].UpdatedAt
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// TitleStatusFor returns the transient title lifecycle state.
func (s *Store) TitleStatusFor(id string) TitleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.titleStatus[id]; ok {
		return status
	}
	return TitleIdle
}

// WaitForTitles blocks until in-flight title generations finish. Tests
// and shutdown use it.
func (s *Store) WaitForTitles() {
	s.titleWG.Wait()
}

// persistLocked merges in-memory conversations over the persisted set by
// id (last writer wins) and writes the result back. Caller holds s.mu.
func (s *Store) persistLocked() {
	if s.kv == nil {
		logger.Debug("[Store] no persistent storage configured, keeping state in memory")
		return
	}

	merged := make(map[string]Conversation)
	var order []string
	for _, conv := range s.readPersisted() {
		if _, ok := merged[conv.ID]; !ok {
			order = append(order, conv.ID)
		}
		merged[conv.ID] = conv
	}
	for id, conv := range s.conversations {
		record := *conv
		record.Messages = copyMessages(conv.Messages)
		if existing, ok := merged[id]; ok {
			// createdAt survives from the earliest record.
			if existing.CreatedAt != 0 && existing.CreatedAt < record.CreatedAt {
				record.CreatedAt = existing.CreatedAt
			}
		} else {
			order = append(order, id)
		}
		merged[id] = record
	}

	// Drop ids deleted in memory during this process lifetime.
	out := make([]Conversation, 0, len(merged))
	for _, id := range order {
		if _, gone := s.deleted[id]; gone {
			continue
		}
		out = append(out, merged[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })

	data, err := json.Marshal(out)
	if err != nil {
		logger.Error("[Store] failed to encode conversations: %v", err)
		return
	}
	if err := s.kv.Set(keyConversations, string(data)); err != nil {
		logger.Error("[Store] failed to persist conversations: %v", err)
	}
	if err := s.kv.Set(keyCurrentConversationID, s.currentID); err != nil {
		logger.Error("[Store] failed to persist current conversation id: %v", err)
	}
}

// readPersisted parses the persisted conversation array. Malformed data
// degrades to an empty set with a diagnostic, never an error.
func (s *Store) readPersisted() []Conversation {
	if s.kv == nil {
		return nil
	}
	raw, ok, err := s.kv.Get(keyConversations)
	if err != nil {
		logger.Error("[Store] failed to read persisted conversations: %v", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var conversations []Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		logger.Warn("[Store] persisted conversations are malformed, ignoring: %v", err)
		return nil
	}
	return conversations
}

func hasMeaningfulUserMessage(messages []Message) bool {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" || strings.HasPrefix(content, "/") {
			continue
		}
		return true
	}
	return false
}
