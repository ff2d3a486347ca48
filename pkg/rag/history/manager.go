package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/internal/mapper"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/message"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

const module = "SavedSessionManager"

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	ErrNothingToSave        = errors.New("conversation has no messages to save")
)

// API is the slice of the backend used for saved sessions.
type API interface {
	SaveSession(ctx context.Context, tok *oauth2.Token, req dto.SaveSessionRequest) (*dto.SaveSessionResponse, error)
	ListSessions(ctx context.Context, tok *oauth2.Token) ([]dto.SessionSummaryDTO, error)
	GetSession(ctx context.Context, tok *oauth2.Token, id string) (*dto.SessionDetailDTO, error)
	DeleteSession(ctx context.Context, tok *oauth2.Token, id string) error
}

type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// Manager saves, lists, loads and deletes named conversation snapshots kept
// by the backend. It also caches the last listing as a local index.
type Manager struct {
	api      API
	mapper   *mapper.ChatMapper
	factory  *message.Factory
	validate *validator.Validate
	titleMax int
	logger   logger.ILogger
	now      func() time.Time

	mu    sync.RWMutex
	index []entity.SavedSession
}

func NewManager(api API, factory *message.Factory, titleMax int, log logger.ILogger) *Manager {
	return &Manager{
		api:      api,
		mapper:   mapper.NewChatMapper(),
		factory:  factory,
		validate: validator.New(),
		titleMax: titleMax,
		logger:   log,
		now:      time.Now,
	}
}

func token(tokens TokenSource) (*oauth2.Token, error) {
	tok, err := tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	return tok, nil
}

// Save stores the conversation under title, deriving one when title is
// blank. A conversation without any user message is not saved.
func (m *Manager) Save(ctx context.Context, tokens TokenSource, conv entity.Conversation, title string) (entity.SavedSession, error) {
	tok, err := token(tokens)
	if err != nil {
		return entity.SavedSession{}, err
	}
	if !hasUserMessage(conv.Messages) {
		return entity.SavedSession{}, ErrNothingToSave
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DeriveTitle(conv.Messages, m.titleMax, m.now())
	}

	req := dto.SaveSessionRequest{
		Title:    title,
		Messages: m.mapper.MessagesToSessionDTO(conv.Messages),
		Context:  conv.Context.Wire(),
	}
	if err := m.validate.Struct(req); err != nil {
		return entity.SavedSession{}, classify.Validation([]string{err.Error()}, err)
	}

	resp, err := m.api.SaveSession(ctx, tok, req)
	if err != nil {
		return entity.SavedSession{}, err
	}

	saved := entity.SavedSession{
		Id:           resp.SessionId,
		Title:        resp.Title,
		Context:      conv.Context,
		Messages:     conv.Clone().Messages,
		MessageCount: resp.MessageCount,
		CreatedAt:    mapper.ParseBackendTime(resp.CreatedAt),
	}
	if saved.Title == "" {
		saved.Title = title
	}

	if _, err := m.List(ctx, tokens); err != nil {
		m.logger.Warn(module, "Failed to refresh saved sessions after save", map[string]interface{}{
			"error": err.Error(),
		})
	}

	m.logger.Info(module, "Session saved", map[string]interface{}{
		"session_id": saved.Id,
		"messages":   len(conv.Messages),
	})
	return saved, nil
}

// List fetches the saved-session index and caches it.
func (m *Manager) List(ctx context.Context, tokens TokenSource) ([]entity.SavedSession, error) {
	tok, err := token(tokens)
	if err != nil {
		return nil, err
	}

	rows, err := m.api.ListSessions(ctx, tok)
	if err != nil {
		return nil, err
	}

	sessions := make([]entity.SavedSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, m.mapper.SessionSummaryToEntity(row))
	}

	m.mu.Lock()
	m.index = sessions
	m.mu.Unlock()

	return append([]entity.SavedSession(nil), sessions...), nil
}

// Index returns the last fetched listing without a network call.
func (m *Manager) Index() []entity.SavedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entity.SavedSession(nil), m.index...)
}

// Load fetches a saved session and rebuilds its conversation. When the
// stored messages cannot be parsed the result is a fresh welcome-only
// conversation in the saved context, returned with a ParseFailed error.
func (m *Manager) Load(ctx context.Context, tokens TokenSource, id string) (entity.Conversation, error) {
	tok, err := token(tokens)
	if err != nil {
		return entity.Conversation{}, err
	}

	detail, err := m.api.GetSession(ctx, tok, id)
	if err != nil {
		return entity.Conversation{}, err
	}

	mode, ok := entity.ParseContextMode(detail.Context)
	if !ok {
		mode = entity.ContextGeneral
	}

	rows, err := ParseMessages(detail.Messages)
	if err == nil && len(rows) == 0 {
		err = errors.New("saved session has no messages")
	}
	if err != nil {
		m.logger.Warn(module, "Saved session could not be parsed", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return entity.Conversation{
			Messages:  []entity.ChatMessage{m.factory.Welcome()},
			Context:   mode,
			UpdatedAt: m.now(),
		}, classify.New(classify.KindParseFailed, err)
	}

	return entity.Conversation{
		Messages:  m.mapper.SessionDTOsToMessages(rows),
		Context:   mode,
		UpdatedAt: m.now(),
	}, nil
}

// Delete removes a saved session. Nothing is sent unless confirmed is true.
func (m *Manager) Delete(ctx context.Context, tokens TokenSource, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	tok, err := token(tokens)
	if err != nil {
		return err
	}

	if err := m.api.DeleteSession(ctx, tok, id); err != nil {
		return err
	}

	m.mu.Lock()
	for i, s := range m.index {
		if s.Id == id {
			m.index = append(m.index[:i], m.index[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

func hasUserMessage(msgs []entity.ChatMessage) bool {
	for _, msg := range msgs {
		if msg.Origin == constant.ChatMessageOriginUser {
			return true
		}
	}
	return false
}

// DeriveTitle uses the first user message, cut to maxRunes runes plus an
// ellipsis, or "Chat <timestamp>" when there is none.
func DeriveTitle(msgs []entity.ChatMessage, maxRunes int, now time.Time) string {
	for _, msg := range msgs {
		if msg.Origin != constant.ChatMessageOriginUser {
			continue
		}
		text := strings.TrimSpace(msg.Body)
		if text == "" {
			continue
		}
		runes := []rune(text)
		if maxRunes > 0 && len(runes) > maxRunes {
			return string(runes[:maxRunes]) + constant.ChatSessionTitleEllipsis
		}
		return text
	}
	return "Chat " + now.Format("2006-01-02 15:04")
}
