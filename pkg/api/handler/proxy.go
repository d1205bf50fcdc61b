package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/archiconstruct/chatbot/pkg/api/response"
	"github.com/archiconstruct/chatbot/pkg/domain"
)

type GeminiProvider interface {
	GenerateContent(ctx context.Context, messages []domain.Message, generateImage bool) (*genai.GenerateContentResponse, error)
	GenerateVideo(ctx context.Context, prompt string, image *domain.Image, aspectRatio domain.AspectRatio) (*genai.GenerateVideosOperation, error)
	PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// proxy relays generation requests to the provider while keeping the API key
// server-side. One POST endpoint dispatches on the action field; a GET with
// a videoUri query relays generated video bytes.
type proxy struct {
	provider GeminiProvider
	writer   response.JSONResponseWriter
}

func NewProxy(provider GeminiProvider) *proxy {
	return &proxy{provider: provider}
}

// wire shapes follow the widget's request format

type proxyImage struct {
	Src      string `json:"src"`
	MIMEType string `json:"mimeType"`
}

type proxyMessage struct {
	Role  string      `json:"role"`
	Text  string      `json:"text"`
	Image *proxyImage `json:"image,omitempty"`
}

type proxyRequest struct {
	Action        string          `json:"action"`
	Messages      []proxyMessage  `json:"messages,omitempty"`
	GenerateImage bool            `json:"generateImage,omitempty"`
	Prompt        string          `json:"prompt,omitempty"`
	Image         *proxyImage     `json:"image,omitempty"`
	AspectRatio   string          `json:"aspectRatio,omitempty"`
	Operation     json.RawMessage `json:"operation,omitempty"`
}

func (p *proxy) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if uri := r.URL.Query().Get("videoUri"); uri != "" {
			p.relayVideo(w, r, uri)
			return
		}
	}

	if r.Method != http.MethodPost {
		p.writer.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		p.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var data any
	var err error

	switch req.Action {
	case "generateTextOrImage":
		data, err = p.generateTextOrImage(r.Context(), &req)
	case "generateVideo":
		data, err = p.generateVideo(r.Context(), &req)
	case "checkVideoStatus":
		data, err = p.checkVideoStatus(r.Context(), &req)
	default:
		p.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid action: "+req.Action)
		return
	}
	if err != nil {
		p.writer.WriteErrorResponse(w, p.statusFor(err), err.Error())
		return
	}

	p.writer.WriteSuccessResponse(w, data)
}

func (p *proxy) generateTextOrImage(ctx context.Context, req *proxyRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required: %w", domain.ErrEmptySubmission)
	}

	messages := make([]domain.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = domain.Message{
			Role:  domain.Role(m.Role),
			Text:  m.Text,
			Image: m.Image.toDomain(),
		}
	}

	res, err := p.provider.GenerateContent(ctx, messages, req.GenerateImage)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *proxy) generateVideo(ctx context.Context, req *proxyRequest) (any, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required: %w", domain.ErrEmptySubmission)
	}

	ratio := domain.AspectRatio(req.AspectRatio)
	if ratio == "" {
		ratio = domain.AspectRatioLandscape
	}

	op, err := p.provider.GenerateVideo(ctx, req.Prompt, req.Image.toDomain(), ratio)
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (p *proxy) checkVideoStatus(ctx context.Context, req *proxyRequest) (any, error) {
	if len(req.Operation) == 0 {
		return nil, errors.New("operation is required")
	}

	var op genai.GenerateVideosOperation
	if err := json.Unmarshal(req.Operation, &op); err != nil {
		return nil, fmt.Errorf("decoding operation: %w", err)
	}

	updated, err := p.provider.PollVideo(ctx, &op)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *proxy) relayVideo(w http.ResponseWriter, r *http.Request, uri string) {
	data, err := p.provider.DownloadVideo(r.Context(), uri)
	if err != nil {
		p.writer.WriteErrorResponse(w, p.statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		return
	}
}

func (p *proxy) statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptySubmission):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCredentialMissing):
		// configuration fault, not a per-request fault
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (i *proxyImage) toDomain() *domain.Image {
	if i == nil {
		return nil
	}
	return &domain.Image{Data: i.Src, MIMEType: i.MIMEType}
}
