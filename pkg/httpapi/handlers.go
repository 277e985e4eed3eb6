package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/engine"
)

// maxAudioBytes bounds one uploaded voice clip.
const maxAudioBytes = 10 << 20

// Handler adapts HTTP requests to the pipeline engine.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp := h.engine.Process(r.Context(), req)
	respondJSON(w, statusFor(resp), resp)
}

// ChatVoice handles POST /api/chat/voice: multipart upload with an
// "audio" file part plus form fields.
func (h *Handler) ChatVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file part is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read audio")
		return
	}

	includeAudio, _ := strconv.ParseBool(r.FormValue("includeSynthesizedAudio"))
	req := engine.Request{
		UserID:                  r.FormValue("userId"),
		SessionID:               r.FormValue("sessionId"),
		Audio:                   audio,
		IncludeSynthesizedAudio: includeAudio,
	}

	resp := h.engine.Process(r.Context(), req)
	respondJSON(w, statusFor(resp), resp)
}

type messagePayload struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Emotion    string    `json:"emotion,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SessionMessages handles GET /api/sessions/{id}/messages.
func (h *Handler) SessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	msgs, err := h.engine.SessionMessages(r.Context(), sessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load messages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  toMessagePayloads(msgs),
	})
}

func toMessagePayloads(msgs []convo.Message) []messagePayload {
	out := make([]messagePayload, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messagePayload{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			Emotion:    string(m.Emotion),
			Confidence: m.Confidence,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}

func statusFor(resp engine.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	return http.StatusBadRequest
}
