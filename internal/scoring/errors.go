package scoring

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a scoring failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidRequest: the caller sent an unusable topic or passage list.
	KindInvalidRequest
	// KindModelLoadFailure: the embedding model could not be loaded. Retryable.
	KindModelLoadFailure
	// KindEmbeddingRuntimeFailure: the loaded model failed while embedding.
	KindEmbeddingRuntimeFailure
	// KindInternalInvariantViolation: a component broke its own contract.
	KindInternalInvariantViolation
	// KindCanceled: the caller's context ended before scoring finished. The
	// wrapped error is context.Canceled or context.DeadlineExceeded.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindModelLoadFailure:
		return "model_load_failure"
	case KindEmbeddingRuntimeFailure:
		return "embedding_runtime_failure"
	case KindInternalInvariantViolation:
		return "internal_invariant_violation"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrInvalidRequest             = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrModelLoadFailure           = &Error{Kind: KindModelLoadFailure, Message: "model load failure"}
	ErrEmbeddingRuntimeFailure    = &Error{Kind: KindEmbeddingRuntimeFailure, Message: "embedding runtime failure"}
	ErrInternalInvariantViolation = &Error{Kind: KindInternalInvariantViolation, Message: "internal invariant violation"}
	ErrCanceled                   = &Error{Kind: KindCanceled, Message: "canceled"}
)

// Error is returned by Service.Score and raised (as a panic value) by Ranker.Rank.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// canceled wraps a context error from ctx, or returns nil when ctx is live.
func canceled(ctx context.Context) *Error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	return &Error{Kind: KindCanceled, Message: "scoring canceled", Err: err}
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
