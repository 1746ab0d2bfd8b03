package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nbox/texturelab/internal/models"
)

// Request is one image generation call
type Request struct {
	Model       models.Model
	Source      []byte
	SourceMIME  string
	Prompt      string
	Resolution  models.Resolution
	AspectRatio string
}

// Result is a generated image
type Result struct {
	Image    []byte
	MIMEType string
}

// Generator defines the interface for an image generation service.
// Implementations make exactly one upstream call per Generate and never retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Kind is the structured failure reason of a generation call
type Kind string

const (
	// KindBlocked means a policy or safety filter stopped the call
	KindBlocked Kind = "blocked"
	// KindDerivative means the output was too close to existing material
	KindDerivative Kind = "derivative"
	// KindEmpty means the service returned neither an image nor usable text
	KindEmpty Kind = "empty"
	// KindFailed covers everything else, including transport errors
	KindFailed Kind = "failed"
)

// Error is a generation failure with a structured kind
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error of the given kind
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error
func Wrap(kind Kind, message string, err error) *Error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Category is how a failure is presented to the user
type Category string

const (
	CategorySafety Category = "safety"
	CategoryEngine Category = "engine"
)

// Classify maps an error to its display category. A structured Error decides
// by kind; anything else falls back to matching the message text.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	var perr *Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case KindBlocked, KindDerivative:
			return CategorySafety
		case KindEmpty, KindFailed:
			return CategoryEngine
		}
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage is the text heuristic used for errors that carry no kind,
// such as messages restored from history.
func ClassifyMessage(msg string) Category {
	if msg == "" {
		return ""
	}
	if strings.Contains(msg, "Safety") || strings.Contains(msg, "category") || strings.Contains(msg, "recitation") {
		return CategorySafety
	}
	return CategoryEngine
}
