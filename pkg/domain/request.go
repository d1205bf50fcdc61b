package domain

type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
)

// GenerationRequest carries the parameters of one user submission. It is
// constructed per turn and never stored.
type GenerationRequest struct {
	Mode        Mode
	Prompt      string
	Image       *Image
	AspectRatio AspectRatio
}
