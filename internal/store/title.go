package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/klob0t/chloe/internal/llm"
	"github.com/klob0t/chloe/internal/logger"
)

const (
	titleTranscriptWindow = 8
	titleMaxRunes         = 60
)

const titlePrompt = `Summarize this conversation in at most 6 words. Respond with the title only, in sentence case, without quotes or trailing punctuation.`

// EnsureConversationTitle derives and persists a short title for the
// conversation. It is single-flight per conversation: a second call while
// one is loading returns immediately. Conversations that already carry a
// stable title, or that have no meaningful user message yet, are left
// alone.
func (s *Store) EnsureConversationTitle(ctx context.Context, id string) {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	if !ok {
		for _, persisted := range s.readPersisted() {
			if persisted.ID == id {
				c := persisted
				s.registerLocked(&c)
				conv = &c
				ok = true
				break
			}
		}
	}
	if !ok {
		s.mu.Unlock()
		return
	}
	if conv.HasStableTitle() {
		s.mu.Unlock()
		return
	}
	if s.titleStatus[id] == TitleLoading {
		s.mu.Unlock()
		return
	}

	eligible := eligibleTitleMessages(conv.Messages)
	if countRole(eligible, RoleUser) == 0 || len(eligible) < 2 {
		s.mu.Unlock()
		return
	}

	s.titleStatus[id] = TitleLoading
	transcript := titleTranscript(eligible)
	fallback := fallbackTitle(eligible)
	model := s.titleModel
	s.mu.Unlock()

	title, err := s.generateTitle(ctx, transcript, model)
	if err != nil {
		logger.Warn("[Store] title generation for %s failed: %v", id, err)
		title = fallback
	}
	title = normalizeTitle(title)
	if title == "" {
		title = normalizeTitle(fallback)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A persisted fallback title is still a produced title; error is
	// reserved for ending up with no title at all.
	if title == "" {
		s.titleStatus[id] = TitleError
		return
	}
	if conv, ok := s.conversations[id]; ok {
		conv.Title = title
		s.persistLocked()
	}
	s.titleStatus[id] = TitleIdle
}

func (s *Store) generateTitle(ctx context.Context, transcript, model string) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("no completer configured")
	}
	turns := []llm.Turn{
		{Role: "system", Content: titlePrompt},
		{Role: RoleUser, Content: transcript},
	}
	return s.completer.Chat(ctx, turns, model)
}

// eligibleTitleMessages filters out slash commands and blank messages,
// which carry no topical signal.
func eligibleTitleMessages(messages []Message) []Message {
	var eligible []Message
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" || strings.HasPrefix(content, "/") {
			continue
		}
		eligible = append(eligible, msg)
	}
	return eligible
}

func countRole(messages []Message, role string) int {
	n := 0
	for _, msg := range messages {
		if msg.Role == role {
			n++
		}
	}
	return n
}

// titleTranscript renders the last few eligible messages with speaker
// labels for the summarization prompt.
func titleTranscript(messages []Message) string {
	if len(messages) > titleTranscriptWindow {
		messages = messages[len(messages)-titleTranscriptWindow:]
	}
	var b strings.Builder
	for _, msg := range messages {
		label := "User"
		if msg.Role == RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, strings.TrimSpace(msg.Content))
	}
	return b.String()
}

// fallbackTitle is the first meaningful user message, used when the
// model call fails.
func fallbackTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return strings.TrimSpace(msg.Content)
		}
	}
	return ""
}

// normalizeTitle cleans a model-produced title: strip wrapping quotes,
// collapse internal whitespace, capitalize the first rune and bound the
// length.
func normalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}

	runes := []rune(title)
	runes[0] = unicode.ToUpper(runes[0])
	if len(runes) > titleMaxRunes {
		runes = append(runes[:titleMaxRunes], '…')
	}
	return string(runes)
}
