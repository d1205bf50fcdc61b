package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archiconstruct/chatbot/pkg/api/response"
	"github.com/archiconstruct/chatbot/pkg/domain"
)

type Orchestrator interface {
	SendMessage(ctx context.Context, req domain.GenerationRequest) error
	SetContextImage(image *domain.Image)
	Messages() []domain.Message
}

type KeyStatus interface {
	IsReady() bool
}

// videoPathPrefix is where stored video bytes are served; message JSON
// carries this path instead of inlining the bytes.
const videoPathPrefix = "/api/chat/video/"

// chat hosts the conversation server-side so the widget iframe stays a pure
// view: it submits a turn and renders the returned message list.
type chat struct {
	orchestrator Orchestrator
	keyStatus    KeyStatus
	writer       response.JSONResponseWriter
}

func NewChat(orchestrator Orchestrator, keyStatus KeyStatus) *chat {
	return &chat{orchestrator: orchestrator, keyStatus: keyStatus}
}

type chatRequest struct {
	Text         string      `json:"text"`
	Image        *proxyImage `json:"image,omitempty"`
	Mode         domain.Mode `json:"mode,omitempty"`
	AspectRatio  string      `json:"aspectRatio,omitempty"`
	ContextImage *proxyImage `json:"contextImage,omitempty"`
}

func (c *chat) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.ContextImage != nil {
		c.orchestrator.SetContextImage(req.ContextImage.toDomain())
	}

	err := c.orchestrator.SendMessage(r.Context(), domain.GenerationRequest{
		Mode:        req.Mode,
		Prompt:      req.Text,
		Image:       req.Image.toDomain(),
		AspectRatio: domain.AspectRatio(req.AspectRatio),
	})
	switch {
	case errors.Is(err, domain.ErrTurnInFlight):
		c.writer.WriteErrorResponse(w, http.StatusConflict, "A message is already being processed.")
		return
	case errors.Is(err, domain.ErrEmptySubmission):
		c.writer.WriteErrorResponse(w, http.StatusBadRequest, "Provide a message or an image.")
		return
	case err != nil:
		c.writer.WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.writer.WriteSuccessResponse(w, withVideoURLs(c.orchestrator.Messages()))
}

func (c *chat) ListMessages(w http.ResponseWriter, _ *http.Request) {
	c.writer.WriteSuccessResponse(w, withVideoURLs(c.orchestrator.Messages()))
}

// GetVideo streams the stored bytes of a completed video message.
func (c *chat) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")
	for _, m := range c.orchestrator.Messages() {
		if m.ID != id || m.Video == nil {
			continue
		}
		w.Header().Set("Content-Type", m.Video.MIMEType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(m.Video.Data)
		return
	}
	c.writer.WriteErrorResponse(w, http.StatusNotFound, "No video for message "+id)
}

// KeyStatus reports whether a working provider key is configured, so the
// embedding shell can re-prompt for authorization after a credential fault.
func (c *chat) KeyStatus(w http.ResponseWriter, _ *http.Request) {
	c.writer.WriteSuccessResponse(w, struct {
		Ready bool `json:"ready"`
	}{Ready: c.keyStatus.IsReady()})
}

// withVideoURLs points each video message at its streaming path. Video
// structs are copied before mutation so the stored history is untouched.
func withVideoURLs(messages []domain.Message) []domain.Message {
	for i, m := range messages {
		if m.Video == nil {
			continue
		}
		video := *m.Video
		video.URL = videoPathPrefix + m.ID
		messages[i].Video = &video
	}
	return messages
}
