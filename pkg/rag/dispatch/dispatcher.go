package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/response"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

// API is the slice of the backend the dispatcher talks to.
type API interface {
	Probe(ctx context.Context, tok *oauth2.Token) error
	Chat(ctx context.Context, tok *oauth2.Token, req dto.RAGChatRequest) (*dto.RAGChatResponse, error)
}

type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// Dispatcher checks auth liveness, composes the chat request and sends it
// exactly once.
type Dispatcher struct {
	api      API
	language string
	validate *validator.Validate
}

func NewDispatcher(api API, language string) *Dispatcher {
	return &Dispatcher{
		api:      api,
		language: language,
		validate: validator.New(),
	}
}

// Probe validates token freshness with a lightweight authenticated call. A
// missing token fails without touching the network.
func (d *Dispatcher) Probe(ctx context.Context, tokens TokenSource) error {
	tok, err := tokens.Token()
	if err != nil {
		return err
	}
	if err := d.api.Probe(ctx, tok); err != nil {
		return fmt.Errorf("auth probe: %w", err)
	}
	return nil
}

// Compose builds the request for one question. Document ids are attached
// only in document-search mode and only when some were resolved.
func (d *Dispatcher) Compose(question string, mode entity.ContextMode, documentIDs []string) (dto.RAGChatRequest, error) {
	req := dto.RAGChatRequest{
		Question: strings.TrimSpace(question),
		Context:  mode.Wire(),
		Language: d.language,
	}
	if mode == entity.ContextDocumentSearch && len(documentIDs) > 0 {
		req.Documents = append([]string(nil), documentIDs...)
	}

	if err := d.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, strings.ToLower(fe.Field())+": "+fe.Tag())
			}
			return req, classify.Validation(details, err)
		}
		return req, classify.Validation(nil, err)
	}
	return req, nil
}

// Send dispatches the request and normalizes the reply. There is no retry.
func (d *Dispatcher) Send(ctx context.Context, tokens TokenSource, req dto.RAGChatRequest) (response.Answer, error) {
	tok, err := tokens.Token()
	if err != nil {
		return response.Answer{}, err
	}
	resp, err := d.api.Chat(ctx, tok, req)
	if err != nil {
		return response.Answer{}, fmt.Errorf("chat request: %w", err)
	}
	return response.Normalize(resp)
}
