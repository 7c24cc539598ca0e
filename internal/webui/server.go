package webui

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/llm"
	"github.com/klob0t/chloe/internal/search"
	"github.com/klob0t/chloe/internal/store"
)

// Server exposes the chat assistant over HTTP: search, completion and
// image generation endpoints plus the conversation registry.
type Server struct {
	store     *store.Store
	searcher  *search.Aggregator
	images    *image.Client
	completer *llm.Client
	startedAt time.Time
}

func NewServer(st *store.Store, searcher *search.Aggregator, images *image.Client, completer *llm.Client) *Server {
	return &Server{
		store:     st,
		searcher:  searcher,
		images:    images,
		completer: completer,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/completion", s.handleCompletion)
	mux.HandleFunc("/api/image", s.handleImage)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/conversations", s.handleConversations)
	mux.HandleFunc("/api/conversations/", s.handleConversation)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(defaultIndexHTML))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"started_at": s.startedAt.Format(time.RFC3339),
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}
	category := r.URL.Query().Get("category")

	resp, err := s.searcher.Search(r.Context(), query, category)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type completionRequest struct {
	Messages []llm.Turn `json:"messages"`
	Model    string     `json:"model"`
}

type completionResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "messages are required"})
		return
	}

	answer, err := s.completer.Chat(r.Context(), req.Messages, req.Model)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{Response: answer})
}

type imageRequest struct {
	Prompt         string   `json:"prompt"`
	Seed           *int64   `json:"seed,omitempty"`
	GuidanceScale  *float64 `json:"guidanceScale,omitempty"`
	InferenceSteps *int     `json:"inferenceSteps,omitempty"`
	Model          string   `json:"model,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	result, err := s.images.Generate(r.Context(), image.Request{
		Prompt:         req.Prompt,
		Seed:           req.Seed,
		GuidanceScale:  req.GuidanceScale,
		InferenceSteps: req.InferenceSteps,
		Model:          req.Model,
		Width:          req.Width,
		Height:         req.Height,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Model          string `json:"model"`
}

type chatResponse struct {
	ConversationID string        `json:"conversationId"`
	Message        store.Message `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store is not initialized"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	if req.ConversationID != "" {
		s.store.Load(req.ConversationID)
	} else if s.store.CurrentConversationID() == "" {
		s.store.CreateConversation()
	}

	final := s.store.SendMessage(r.Context(), req.Text, req.Model)
	s.store.Save(r.Context(), "")

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: s.store.CurrentConversationID(),
		Message:        final,
	})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Conversations())
	case http.MethodPost:
		id := s.store.CreateConversation()
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		conv := s.store.Load(id)
		writeJSON(w, http.StatusOK, conv)
	case http.MethodDelete:
		s.store.Delete(id)
		writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

const defaultIndexHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Chloe</title>
  <style>
    body { font-family: "Segoe UI", sans-serif; margin: 0; background: linear-gradient(145deg,#faf7fc,#efe9f7); color: #1f2937; }
    .wrap { max-width: 900px; margin: 0 auto; padding: 20px; }
    .panel { background: #fff; border-radius: 12px; box-shadow: 0 8px 30px rgba(15,23,42,.08); padding: 16px; }
    #log { min-height: 320px; max-height: 60vh; overflow: auto; white-space: pre-wrap; border: 1px solid #d1d5db; border-radius: 8px; padding: 12px; background: #f9fafb; }
    .row { display: flex; gap: 8px; margin-top: 10px; }
    input { flex: 1; padding: 10px; border: 1px solid #cbd5e1; border-radius: 8px; }
    button { padding: 10px 16px; border: 0; border-radius: 8px; background: #7c3aed; color: #fff; cursor: pointer; }
    button:hover { background: #8b5cf6; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="panel">
      <h2>Chloe</h2>
      <div id="log"></div>
      <div class="row">
        <input id="msg" placeholder="Say something, or try /imagine a cat" />
        <button id="send">Send</button>
      </div>
    </div>
  </div>
  <script>
    const log = document.getElementById('log');
    const msg = document.getElementById('msg');
    const send = document.getElementById('send');
    let conversationId = '';
    const append = (role, text) => { log.textContent += role + ': ' + text + '\n\n'; log.scrollTop = log.scrollHeight; };
    async function sendMessage() {
      const text = msg.value.trim();
      if (!text) return;
      append('You', text);
      msg.value = '';
      const resp = await fetch('/api/chat', { method:'POST', headers:{'Content-Type':'application/json'}, body: JSON.stringify({ conversationId, text })});
      const data = await resp.json();
      if (data.conversationId) conversationId = data.conversationId;
      append('Chloe', (data.message && data.message.content) || data.error || '(empty)');
    }
    send.addEventListener('click', sendMessage);
    msg.addEventListener('keydown', (e) => { if (e.key === 'Enter') sendMessage(); });
  </script>
</body>
</html>`
