package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/samber/lo"
	"google.golang.org/genai"

	"github.com/archiconstruct/chatbot/pkg/domain"
	"github.com/archiconstruct/chatbot/pkg/logger"
)

const welcomeMessageText = "Hello! I'm ArchiConstruct AI, the virtual assistant for ArchiConstruct Bangalore. How can I help you with your interior design or construction project today?"

type GeminiClient interface {
	GenerateText(ctx context.Context, messages []domain.Message) (string, error)
	GenerateImage(ctx context.Context, prompt string, image *domain.Image) (string, *domain.Image, error)
	GenerateVideo(ctx context.Context, prompt string, image *domain.Image, aspectRatio domain.AspectRatio) (*genai.GenerateVideosOperation, error)
	PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

type ConversationRepository interface {
	Append(msg domain.Message)
	Update(id string, fn func(*domain.Message)) bool
	Messages() []domain.Message
}

type KeyState interface {
	Reset()
}

var errVideoPending = errors.New("video operation not done")

// conversationService owns the turn lifecycle: it is the sole writer of
// conversation history and permits one in-flight turn at a time. Every fault
// ends up as a visible model message and the turn always returns to idle.
type conversationService struct {
	client          GeminiClient
	repo            ConversationRepository
	keyState        KeyState
	pollInterval    time.Duration
	maxPollAttempts uint

	mu           sync.Mutex
	inFlight     bool
	contextImage *domain.Image
}

func NewConversationService(
	client GeminiClient,
	repo ConversationRepository,
	keyState KeyState,
	pollInterval time.Duration,
	maxPollAttempts uint,
) *conversationService {
	repo.Append(domain.NewModelMessage(welcomeMessageText))

	return &conversationService{
		client:          client,
		repo:            repo,
		keyState:        keyState,
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
	}
}

func (s *conversationService) Messages() []domain.Message {
	return s.repo.Messages()
}

// SetContextImage attaches an image to the next submission, letting the user
// iterate on a previous result. It is consumed by that submission.
func (s *conversationService) SetContextImage(image *domain.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contextImage = image
}

// SendMessage runs one user turn to completion. A submission while another
// turn is in flight is rejected without touching history.
func (s *conversationService) SendMessage(ctx context.Context, req domain.GenerationRequest) error {
	if req.Prompt == "" && req.Image == nil {
		return domain.ErrEmptySubmission
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.ErrTurnInFlight
	}
	s.inFlight = true
	image := req.Image
	if image == nil {
		image = s.contextImage
	}
	s.contextImage = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	slog.InfoContext(ctx, "Processing turn", "mode", req.Mode, "hasImage", image != nil)

	s.repo.Append(domain.NewUserMessage(req.Prompt, image))

	switch req.Mode {
	case domain.ModeVideo:
		ratio, _ := lo.Coalesce(req.AspectRatio, domain.AspectRatioLandscape)
		s.generateVideo(ctx, req.Prompt, image, ratio)
	case domain.ModeImage:
		s.generateImage(ctx, req.Prompt, image)
	default:
		s.generateText(ctx)
	}

	return nil
}

func (s *conversationService) generateText(ctx context.Context) {
	reply, err := s.client.GenerateText(ctx, s.repo.Messages())
	if err != nil {
		slog.ErrorContext(ctx, "Text generation failed", logger.Err(err))
		s.appendFault(err)
		return
	}

	s.repo.Append(domain.NewModelMessage(reply))
}

func (s *conversationService) generateImage(ctx context.Context, prompt string, image *domain.Image) {
	placeholder := domain.NewPendingMessage(domain.StatusPendingImage)
	s.repo.Append(placeholder)

	text, generated, err := s.client.GenerateImage(ctx, prompt, image)
	if err != nil {
		slog.ErrorContext(ctx, "Image generation failed", logger.Err(err))
		s.failPlaceholder(placeholder.ID, err)
		return
	}

	slog.InfoContext(ctx, "Image generated", "mimeType", generated.MIMEType)

	s.repo.Update(placeholder.ID, func(m *domain.Message) {
		m.Status = domain.StatusReady
		m.Text = text
		m.Image = generated
	})
}

func (s *conversationService) generateVideo(ctx context.Context, prompt string, image *domain.Image, aspectRatio domain.AspectRatio) {
	placeholder := domain.NewPendingMessage(domain.StatusPendingVideo)
	s.repo.Append(placeholder)

	op, err := s.client.GenerateVideo(ctx, prompt, image, aspectRatio)
	if err != nil {
		slog.ErrorContext(ctx, "Video submission failed", logger.Err(err))
		s.failPlaceholder(placeholder.ID, err)
		return
	}

	op, err = s.awaitVideo(ctx, op)
	if err != nil {
		slog.ErrorContext(ctx, "Video polling failed", logger.Err(err))
		s.failPlaceholder(placeholder.ID, err)
		return
	}

	uri := firstVideoURI(op)
	if uri == "" {
		err := fmt.Errorf("%w: operation done without video uri", domain.ErrMalformedResponse)
		slog.ErrorContext(ctx, "Video generation failed", logger.Err(err))
		s.failPlaceholder(placeholder.ID, err)
		return
	}

	data, err := s.client.DownloadVideo(ctx, uri)
	if err != nil {
		slog.ErrorContext(ctx, "Video download failed", logger.Err(err))
		s.failPlaceholder(placeholder.ID, err)
		return
	}

	slog.InfoContext(ctx, "Video generated", "sizeBytes", len(data))

	s.repo.Update(placeholder.ID, func(m *domain.Message) {
		m.Status = domain.StatusReady
		m.Text = "Here is your generated video:"
		m.Video = &domain.Video{Data: data, MIMEType: "video/mp4"}
	})
}

// awaitVideo polls the operation at a fixed interval until it is done,
// bounded by maxPollAttempts and cancelled with the context. The wait sits
// between checks, so a sequence of done=false,false,true costs two waits.
func (s *conversationService) awaitVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	current := op

	return backoff.Retry(ctx, func() (*genai.GenerateVideosOperation, error) {
		if current.Done {
			return current, nil
		}

		next, err := s.client.PollVideo(ctx, current)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		current = next

		if !current.Done {
			return nil, errVideoPending
		}
		return current, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.pollInterval)),
		backoff.WithMaxTries(s.maxPollAttempts),
	)
}

// appendFault records a failed text turn as its own model message.
func (s *conversationService) appendFault(err error) {
	msg := domain.NewModelMessage(domain.FaultText(err))
	msg.Status = domain.StatusFailed
	s.repo.Append(msg)
	s.resetKeyOnCredentialFault(err)
}

// failPlaceholder writes the fault into the turn's placeholder, keeping the
// message ID stable.
func (s *conversationService) failPlaceholder(id string, err error) {
	s.repo.Update(id, func(m *domain.Message) {
		m.Status = domain.StatusFailed
		m.Text = domain.FaultText(err)
	})
	s.resetKeyOnCredentialFault(err)
}

func (s *conversationService) resetKeyOnCredentialFault(err error) {
	if errors.Is(err, domain.ErrCredentialInvalid) {
		s.keyState.Reset()
	}
}

func firstVideoURI(op *genai.GenerateVideosOperation) string {
	if op.Response == nil {
		return ""
	}
	for _, generated := range op.Response.GeneratedVideos {
		if generated.Video != nil && generated.Video.URI != "" {
			return generated.Video.URI
		}
	}
	return ""
}
