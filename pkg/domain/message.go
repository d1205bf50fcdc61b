package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Status tags a message's lifecycle. Pending statuses mark placeholder
// messages whose content is still being generated; the message keeps its ID
// when the result or failure is written back.
type Status string

const (
	StatusReady        Status = "ready"
	StatusPendingImage Status = "pending_image"
	StatusPendingVideo Status = "pending_video"
	StatusFailed       Status = "failed"
)

// Image is a still image carried by a message. Data is base64-encoded.
type Image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Video holds generated video content materialized from the provider's
// short-lived URI. The bytes are kept in memory for the session only and
// served through URL rather than inlined into message JSON.
type Video struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

type Message struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Text   string `json:"text"`
	Image  *Image `json:"image,omitempty"`
	Video  *Video `json:"video,omitempty"`
	Status Status `json:"status"`
}

func NewUserMessage(text string, image *Image) Message {
	return Message{
		ID:     uuid.NewString(),
		Role:   RoleUser,
		Text:   text,
		Image:  image,
		Status: StatusReady,
	}
}

func NewModelMessage(text string) Message {
	return Message{
		ID:     uuid.NewString(),
		Role:   RoleModel,
		Text:   text,
		Status: StatusReady,
	}
}

// NewPendingMessage creates a model placeholder that is later mutated in
// place once the asynchronous generation resolves.
func NewPendingMessage(status Status) Message {
	return Message{
		ID:     uuid.NewString(),
		Role:   RoleModel,
		Status: status,
	}
}

func (m Message) Pending() bool {
	return m.Status == StatusPendingImage || m.Status == StatusPendingVideo
}
