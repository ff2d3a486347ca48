package service

import (
	"context"
	"errors"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/history"
)

// ISavedSessionService defines save/list/load/delete of named conversations
type ISavedSessionService interface {
	Save(ctx context.Context, tabID string, request *dto.SaveChatSessionRequest) (*dto.SavedSessionResponse, error)
	List(ctx context.Context, tabID string) ([]*dto.SavedSessionResponse, error)
	Load(ctx context.Context, tabID string, sessionID string) (*dto.ConversationResponse, error)
	Delete(ctx context.Context, tabID string, sessionID string, confirmed bool) error
}

type savedSessionService struct {
	workspaces *WorkspaceRegistry
	classifier *classify.Classifier
	logger     logger.ILogger
}

func NewSavedSessionService(workspaces *WorkspaceRegistry, classifier *classify.Classifier, log logger.ILogger) ISavedSessionService {
	return &savedSessionService{
		workspaces: workspaces,
		classifier: classifier,
		logger:     log,
	}
}

// classified passes local precondition errors through untouched and maps
// backend failures to a classified error.
func (s *savedSessionService) classified(ctx context.Context, ws *Workspace, err error) error {
	if errors.Is(err, history.ErrNotAuthenticated) ||
		errors.Is(err, history.ErrConfirmationRequired) ||
		errors.Is(err, history.ErrNothingToSave) {
		return err
	}
	return s.classifier.Classify(ctx, err, ws.Auth)
}

func (s *savedSessionService) Save(ctx context.Context, tabID string, request *dto.SaveChatSessionRequest) (*dto.SavedSessionResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	saved, err := ws.Sessions.Save(ctx, ws.Auth, ws.Store.Snapshot(), request.Title)
	if err != nil {
		err = s.classified(ctx, ws, err)
		s.workspaces.notify(ctx, tabID, constant.NotificationLevelError, userMessage(err))
		return nil, err
	}

	s.workspaces.notify(ctx, tabID, constant.NotificationLevelSuccess, "Chat session saved.")
	return chatMapper.SavedSessionToResponse(saved), nil
}

func (s *savedSessionService) List(ctx context.Context, tabID string) ([]*dto.SavedSessionResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	sessions, err := ws.Sessions.List(ctx, ws.Auth)
	if err != nil {
		return nil, s.classified(ctx, ws, err)
	}

	res := make([]*dto.SavedSessionResponse, 0, len(sessions))
	for _, saved := range sessions {
		res = append(res, chatMapper.SavedSessionToResponse(saved))
	}
	return res, nil
}

// Load replaces the tab's conversation with a saved one. A snapshot that
// cannot be parsed still replaces it, with a fresh welcome-only transcript.
func (s *savedSessionService) Load(ctx context.Context, tabID string, sessionID string) (*dto.ConversationResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	ws.turnMu.Lock()
	defer ws.turnMu.Unlock()

	conv, err := ws.Sessions.Load(ctx, ws.Auth, sessionID)
	if err != nil && classify.KindOf(err) != classify.KindParseFailed {
		return nil, s.classified(ctx, ws, err)
	}

	ws.Store.Replace(ctx, conv)
	ws.Docs.ClearStaged()

	if err != nil {
		s.workspaces.notify(ctx, tabID, constant.NotificationLevelWarning, classify.MessageParseFailed)
	} else {
		s.workspaces.notify(ctx, tabID, constant.NotificationLevelSuccess, "Chat session loaded.")
	}
	return conversationResponse(ws), nil
}

func (s *savedSessionService) Delete(ctx context.Context, tabID string, sessionID string, confirmed bool) error {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return err
	}

	if err := ws.Sessions.Delete(ctx, ws.Auth, sessionID, confirmed); err != nil {
		err = s.classified(ctx, ws, err)
		if !errors.Is(err, history.ErrConfirmationRequired) {
			s.workspaces.notify(ctx, tabID, constant.NotificationLevelError, userMessage(err))
		}
		return err
	}

	s.workspaces.notify(ctx, tabID, constant.NotificationLevelSuccess, "Chat session deleted.")
	return nil
}

func userMessage(err error) string {
	var ce *classify.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	switch {
	case errors.Is(err, history.ErrNotAuthenticated):
		return "Please log in to manage saved chats."
	case errors.Is(err, history.ErrNothingToSave):
		return "There is nothing to save yet."
	}
	return classify.MessageFallback
}
