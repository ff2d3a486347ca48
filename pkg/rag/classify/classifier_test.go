package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/auth"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/rag/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvicter struct {
	reasons []string
}

func (r *recordingEvicter) Evict(_ context.Context, reason string) {
	r.reasons = append(r.reasons, reason)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    Kind
		wantMessage string
		wantEvicted bool
	}{
		{"401", &backend.HTTPError{StatusCode: http.StatusUnauthorized}, KindAuthExpired, MessageAuthExpired, true},
		{"no token", auth.ErrNoToken, KindAuthExpired, MessageAuthExpired, true},
		{"expired token wrapped", fmt.Errorf("probe: %w", auth.ErrTokenExpired), KindAuthExpired, MessageAuthExpired, true},
		{"422 with details", &backend.HTTPError{StatusCode: 422, Details: []string{"question: field required", "language: bad"}}, KindValidationFailed, "The request was rejected: question: field required; language: bad", false},
		{"400 without details", &backend.HTTPError{StatusCode: 400, Body: "bad"}, KindServerError, MessageFallback, false},
		{"500", &backend.HTTPError{StatusCode: 502}, KindServerError, MessageServerError, false},
		{"missing answer", response.ErrMissingAnswer, KindServerError, MessageServerError, false},
		{"network", errors.New("dial tcp: connection refused"), KindServerError, MessageFallback, false},
		{"already classified", New(KindUploadFailed, errors.New("missing id")), KindUploadFailed, MessageUploadFailed, false},
	}

	c := NewClassifier(logger.NewNopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &recordingEvicter{}
			got := c.Classify(context.Background(), tt.err, ev)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantEvicted, len(ev.reasons) == 1)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, NewClassifier(logger.NewNopLogger()).Classify(context.Background(), nil, nil))
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("turn: %w", New(KindUploadFailed, cause))

	assert.True(t, errors.Is(err, New(KindUploadFailed, nil)))
	assert.False(t, errors.Is(err, New(KindServerError, nil)))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindUploadFailed, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(cause))
}

func TestFatalKinds(t *testing.T) {
	assert.False(t, KindIndexingTimeout.Fatal())
	assert.False(t, KindParseFailed.Fatal())
	assert.True(t, KindAuthExpired.Fatal())
	assert.True(t, KindUploadFailed.Fatal())
}
