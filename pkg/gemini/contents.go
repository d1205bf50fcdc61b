package gemini

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/archiconstruct/chatbot/pkg/domain"
)

// buildContents translates conversation history into the provider's content
// list. The provider requires chat history to start with a user role, so
// leading model messages (e.g. the welcome message) are dropped. Returns nil
// when the conversation holds no user message.
func buildContents(messages []domain.Message) ([]*genai.Content, error) {
	first := -1
	for i, msg := range messages {
		if msg.Role == domain.RoleUser {
			first = i
			break
		}
	}
	if first == -1 {
		return nil, nil
	}

	var contents []*genai.Content
	for _, msg := range messages[first:] {
		parts, err := buildParts(msg.Text, msg.Image)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  string(msg.Role),
			Parts: parts,
		})
	}
	return contents, nil
}

// buildParts orders an image part before the text part; the image model
// treats the leading image as the edit subject.
func buildParts(text string, image *domain.Image) ([]*genai.Part, error) {
	var parts []*genai.Part
	if image != nil {
		data, err := base64.StdEncoding.DecodeString(image.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding image data: %w", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: image.MIMEType,
				Data:     data,
			},
		})
	}
	if text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	return parts, nil
}
