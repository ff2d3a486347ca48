package classify

import (
	"context"
	"errors"
	"net/http"

	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/auth"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/rag/response"
)

const module = "ErrorClassifier"

// Evicter drops the current token. auth.Context satisfies it.
type Evicter interface {
	Evict(ctx context.Context, reason string)
}

type Classifier struct {
	logger logger.ILogger
}

func NewClassifier(log logger.ILogger) *Classifier {
	return &Classifier{logger: log}
}

// Classify maps any failure to exactly one kind and user message. AuthExpired
// evicts the token through evicter as a side effect.
func (c *Classifier) Classify(ctx context.Context, err error, evicter Evicter) *Error {
	if err == nil {
		return nil
	}

	ce := c.kindFor(err)
	if ce.Kind == KindAuthExpired && evicter != nil {
		evicter.Evict(ctx, err.Error())
	}

	c.logger.Warn(module, "Classified failure", map[string]interface{}{
		"kind":  ce.Kind.String(),
		"error": err.Error(),
	})
	return ce
}

func (c *Classifier) kindFor(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, auth.ErrNoToken) || errors.Is(err, auth.ErrTokenExpired) {
		return New(KindAuthExpired, err)
	}

	if errors.Is(err, response.ErrMissingAnswer) {
		return New(KindServerError, err)
	}

	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized:
			return New(KindAuthExpired, err)
		case httpErr.StatusCode == http.StatusBadRequest || httpErr.StatusCode == http.StatusUnprocessableEntity:
			if len(httpErr.Details) > 0 {
				return Validation(httpErr.Details, err)
			}
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return New(KindServerError, err)
		}
	}

	return WithMessage(KindServerError, MessageFallback, err)
}
