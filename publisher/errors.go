package publisher

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// FailureKind groups Google API errors by what the writer can do about them.
type FailureKind string

const (
	KindAuth        FailureKind = "auth"
	KindNotFound    FailureKind = "not_found"
	KindBadRequest  FailureKind = "bad_request"
	KindRateLimited FailureKind = "rate_limited"
	KindUnavailable FailureKind = "unavailable"
	KindTimeout     FailureKind = "timeout"
	KindUnknown     FailureKind = "unknown"
)

func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return KindUnknown
	}
	switch {
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return KindAuth
	case gerr.Code == http.StatusNotFound:
		return KindNotFound
	case gerr.Code == http.StatusTooManyRequests:
		return KindRateLimited
	case gerr.Code >= 500:
		return KindUnavailable
	case gerr.Code >= 400:
		return KindBadRequest
	}
	return KindUnknown
}
