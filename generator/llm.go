package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LLMClient abstracts the chat model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the base configuration handed to an implementation.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Referer and Title identify the app to OpenRouter.
	Referer           string
	Title             string
	Timeout           time.Duration
	RequestsPerMinute int
}

var ErrModelUnavailable = errors.New("model unavailable")

// ModelUnavailable wraps any failure to get an answer from the model:
// network, auth, quota or an empty completion. It is never retried here.
type ModelUnavailable struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ModelUnavailable) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s status %d: %v", ErrModelUnavailable, e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrModelUnavailable, e.Provider, e.Err)
}

func (e *ModelUnavailable) Unwrap() error { return e.Err }

func (e *ModelUnavailable) Is(target error) bool { return target == ErrModelUnavailable }
