package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ghostcheck/internal/segment"
)

// Result holds the output of one document extraction: the comparable
// segment set plus the merged plain text used as review context.
type Result struct {
	Segments   *segment.Set
	MergedText string
}

// Extractor reads one uploaded document into a Result. A failed parse
// returns a *ParseError; the caller reports it and carries on with the
// rest of the request flow.
type Extractor interface {
	Extract(r io.Reader) (*Result, error)
}

// ForFile returns the extractor matching a filename.
func ForFile(filename string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return &DOCXExtractor{}, nil
	case ".pptx":
		return &PPTXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// ParseError reports a document that could not be opened or parsed at
// all. It is recoverable at the request level: extraction yields empty
// results and the user may retry with another file.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func buildResult(fragments []string) *Result {
	merged := strings.Join(fragments, "\n")
	return &Result{
		Segments:   segment.Split(merged),
		MergedText: merged,
	}
}
