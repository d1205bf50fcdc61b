package domain

import "errors"

// User-facing fault copy. One set of strings for all code paths so the text,
// image and video flows surface identical wording for the same fault class.
const (
	credentialMissingFaultText = "Sorry, the assistant is not fully set up yet. The server is missing its API key — please try again later."
	credentialInvalidFaultText = "Sorry, the server's API key was rejected. Please re-authorize access and try again."
	contentBlockedFaultText    = "Sorry, I can't generate that. Let's keep things focused on your interior design or construction project."
	noImageFaultText           = "Sorry, I couldn't produce an image for that request. Try rephrasing your prompt."
	genericFaultText           = "Sorry, I encountered an error. Please try again later."
)

// FaultText converts any turn failure into the message shown in the
// conversation. Malformed responses read as generic connectivity faults.
func FaultText(err error) string {
	switch {
	case errors.Is(err, ErrCredentialMissing):
		return credentialMissingFaultText
	case errors.Is(err, ErrCredentialInvalid):
		return credentialInvalidFaultText
	case errors.Is(err, ErrContentBlocked):
		return contentBlockedFaultText
	case errors.Is(err, ErrNoImageInResponse):
		return noImageFaultText
	default:
		return genericFaultText
	}
}
