// Package extract classifies uploaded study material and pulls plain text out
// of it so the AI pipeline has something to work with.
package extract

import (
	"errors"
	"fmt"
)

// MinTextLen is the shortest extracted text (after trimming) worth sending to
// the model; anything shorter is treated as an extraction failure so a model
// call is not wasted on noise.
const MinTextLen = 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTextTooShort    = errors.New("extracted text too short")
)

// Text extracts plain text from content of the given kind.
func Text(content []byte, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDF(content)
	case KindPPTX:
		return extractPPTX(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

// MeaningfulText extracts text and enforces the minimum-length gate.
func MeaningfulText(content []byte, kind Kind) (string, error) {
	text, err := Text(content, kind)
	if err != nil {
		return "", err
	}
	if len(text) < MinTextLen {
		return "", fmt.Errorf("%w: %d chars", ErrTextTooShort, len(text))
	}
	return text, nil
}
