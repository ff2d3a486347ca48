package service

import (
	"context"
	"errors"
	"fmt"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/document"
)

// IDocumentService defines document staging and management for a tab
type IDocumentService interface {
	Stage(ctx context.Context, tabID string, files []backend.FileUpload) (*dto.StageDocumentsResponse, error)
	List(ctx context.Context, tabID string) ([]*dto.DocumentResponse, error)
	Refresh(ctx context.Context, tabID string) ([]*dto.DocumentResponse, error)
	Select(ctx context.Context, tabID string, documentID string, request *dto.SelectDocumentRequest) ([]*dto.DocumentResponse, error)
	Delete(ctx context.Context, tabID string, documentID string) error
}

type documentService struct {
	workspaces *WorkspaceRegistry
	classifier *classify.Classifier
	logger     logger.ILogger
}

func NewDocumentService(workspaces *WorkspaceRegistry, classifier *classify.Classifier, log logger.ILogger) IDocumentService {
	return &documentService{
		workspaces: workspaces,
		classifier: classifier,
		logger:     log,
	}
}

// Stage validates files and queues the accepted ones for the next
// document-search turn. Each rejection is also pushed as a notification.
func (s *documentService) Stage(ctx context.Context, tabID string, files []backend.FileUpload) (*dto.StageDocumentsResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	staged, rejections := ws.Docs.Stage(files)

	res := &dto.StageDocumentsResponse{
		Staged:     staged,
		Rejections: make([]*dto.DocumentRejectionResponse, 0, len(rejections)),
	}
	if res.Staged == nil {
		res.Staged = []string{}
	}
	for _, r := range rejections {
		res.Rejections = append(res.Rejections, &dto.DocumentRejectionResponse{
			Filename: r.Filename,
			Reason:   string(r.Reason),
			Message:  r.Message,
		})
		s.workspaces.notify(ctx, tabID, constant.NotificationLevelError, r.Message)
	}
	return res, nil
}

func (s *documentService) List(ctx context.Context, tabID string) ([]*dto.DocumentResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return chatMapper.DocumentsToResponse(ws.Docs.Documents()), nil
}

func (s *documentService) Refresh(ctx context.Context, tabID string) ([]*dto.DocumentResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if err := ws.Docs.Refresh(ctx); err != nil {
		return nil, s.classifier.Classify(ctx, err, ws.Auth)
	}
	return chatMapper.DocumentsToResponse(ws.Docs.Documents()), nil
}

func (s *documentService) Select(ctx context.Context, tabID string, documentID string, request *dto.SelectDocumentRequest) ([]*dto.DocumentResponse, error) {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if err := ws.Docs.Select(documentID, request.Selected); err != nil {
		return nil, err
	}
	return chatMapper.DocumentsToResponse(ws.Docs.Documents()), nil
}

// Delete removes the document remotely and locally. A remote failure is
// reported to the user, but the local ref is gone either way.
func (s *documentService) Delete(ctx context.Context, tabID string, documentID string) error {
	ws, err := s.workspaces.Get(ctx, tabID)
	if err != nil {
		return err
	}

	if err := ws.Docs.Delete(ctx, documentID); err != nil {
		if errors.Is(err, document.ErrUnknownDocument) {
			return err
		}
		ce := s.classifier.Classify(ctx, err, ws.Auth)
		if ce.Kind == classify.KindAuthExpired {
			return ce
		}
		s.workspaces.notify(ctx, tabID, constant.NotificationLevelWarning, fmt.Sprintf("The document was removed here but the server reported: %s", ce.Message))
		return nil
	}

	s.workspaces.notify(ctx, tabID, constant.NotificationLevelSuccess, "Document deleted.")
	return nil
}
