package chat

import "strings"

// Mode is the handling path chosen for one chat request.
type Mode string

const (
	ModeText            Mode = "text"
	ModeCode            Mode = "code"
	ModeImageGeneration Mode = "image_generation"
	ModeImageAnalysis   Mode = "image_analysis"
)

// Command prefixes, matched case-insensitively at the start of the text.
const (
	ImagineCommand = "/imagine"
	CodeCommand    = "/code"
)

// Classify picks the mode for a request. Priority: an image generation
// command wins over an attached image, which wins over a code command.
// Everything else is text.
func Classify(text string, hasImage bool) Mode {
	switch {
	case hasPrefixFold(text, ImagineCommand):
		return ModeImageGeneration
	case hasImage:
		return ModeImageAnalysis
	case hasPrefixFold(text, CodeCommand):
		return ModeCode
	default:
		return ModeText
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
