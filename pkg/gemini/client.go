package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/archiconstruct/chatbot/pkg/domain"
)

// Client wraps the Gemini API for the three generation modes. It is
// constructed explicitly with its key; there is no ambient shared instance.
// A client built without a key stays usable and fails every call with
// domain.ErrCredentialMissing so the fault surfaces per request.
type Client struct {
	genAI  *genai.Client
	apiKey string
	hc     *http.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c := &Client{
		apiKey: apiKey,
		hc:     &http.Client{},
	}

	if apiKey == "" {
		return c, nil
	}

	genAI, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.genAI = genAI

	return c, nil
}

// GenerateContent issues one content-generation call and returns the raw
// provider response. With generateImage set, only the last message is used
// as a single-turn request against the image model with IMAGE response
// modality and no system instruction; otherwise the full history goes to the
// chat model with the fixed system instruction.
func (c *Client) GenerateContent(ctx context.Context, messages []domain.Message, generateImage bool) (*genai.GenerateContentResponse, error) {
	if c.genAI == nil {
		return nil, domain.ErrCredentialMissing
	}

	var contents []*genai.Content
	var config *genai.GenerateContentConfig
	model := textModel

	if generateImage {
		if len(messages) == 0 {
			return nil, fmt.Errorf("image generation requires a message: %w", domain.ErrEmptySubmission)
		}
		last := messages[len(messages)-1]
		parts, err := buildParts(last.Text, last.Image)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, domain.ErrEmptySubmission
		}
		model = imageModel
		contents = []*genai.Content{{Parts: parts}}
		config = &genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE"},
		}
	} else {
		var err error
		contents, err = buildContents(messages)
		if err != nil {
			return nil, err
		}
		if len(contents) == 0 {
			return nil, fmt.Errorf("conversation has no user message: %w", domain.ErrEmptySubmission)
		}
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleModel),
		}
	}

	res, err := c.genAI.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, c.mapError(err)
	}
	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentBlocked, res.PromptFeedback.BlockReason)
	}

	return res, nil
}

// GenerateText returns the model's reply to the conversation.
func (c *Client) GenerateText(ctx context.Context, messages []domain.Message) (string, error) {
	res, err := c.GenerateContent(ctx, messages, false)
	if err != nil {
		return "", err
	}

	text := responseText(res)
	if text == "" {
		return "", fmt.Errorf("%w: empty text candidate", domain.ErrMalformedResponse)
	}
	return text, nil
}

// GenerateImage runs a single-turn image generation or edit. Returns the
// accompanying text (may be empty) and the first image-bearing part. A
// response without an image part fails with domain.ErrNoImageInResponse,
// which is an expected outcome under content filtering.
func (c *Client) GenerateImage(ctx context.Context, prompt string, image *domain.Image) (string, *domain.Image, error) {
	res, err := c.GenerateContent(ctx, []domain.Message{{
		Role:  domain.RoleUser,
		Text:  prompt,
		Image: image,
	}}, true)
	if err != nil {
		return "", nil, err
	}

	generated := responseImage(res)
	if generated == nil {
		return "", nil, domain.ErrNoImageInResponse
	}
	return responseText(res), generated, nil
}

// GenerateVideo starts a long-running video generation job and returns its
// operation handle. The caller drives the polling loop.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, image *domain.Image, aspectRatio domain.AspectRatio) (*genai.GenerateVideosOperation, error) {
	if c.genAI == nil {
		return nil, domain.ErrCredentialMissing
	}

	var inputImage *genai.Image
	if image != nil {
		data, err := base64.StdEncoding.DecodeString(image.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding input image: %w", err)
		}
		inputImage = &genai.Image{
			ImageBytes: data,
			MIMEType:   image.MIMEType,
		}
	}

	op, err := c.genAI.Models.GenerateVideos(ctx, videoModel, prompt, inputImage, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     videoResolution,
		AspectRatio:    string(aspectRatio),
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	return op, nil
}

// PollVideo performs a single status check of a video operation.
func (c *Client) PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	if c.genAI == nil {
		return nil, domain.ErrCredentialMissing
	}

	updated, err := c.genAI.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, c.mapError(err)
	}
	return updated, nil
}

// DownloadVideo fetches a provider-issued video URI, attaching the key the
// provider requires for the download. The URI is short-lived and must be
// fetched promptly.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, domain.ErrCredentialMissing
	}

	sep := "&"
	if !strings.Contains(uri, "?") {
		sep = "?"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating video request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching video: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading video body: %w", err)
	}
	return data, nil
}

// mapError normalizes provider errors onto the domain fault taxonomy.
func (c *Client) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", domain.ErrCredentialInvalid, apiErr.Message)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key"):
			return fmt.Errorf("%w: %s", domain.ErrCredentialInvalid, apiErr.Message)
		case strings.Contains(strings.ToLower(apiErr.Message), "blocked"):
			return fmt.Errorf("%w: %s", domain.ErrContentBlocked, apiErr.Message)
		}
	}
	return fmt.Errorf("calling provider: %w", err)
}

func responseText(res *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func responseImage(res *genai.GenerateContentResponse) *domain.Image {
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			return &domain.Image{
				Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				MIMEType: part.InlineData.MIMEType,
			}
		}
	}
	return nil
}
