package review

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// RenderHTML converts the model's markdown-flavored verdict text to
// HTML for display alongside the raw text.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
