package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/internal/mapper"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/poll"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/dispatch"
	"docchat-client/pkg/rag/message"
	"docchat-client/pkg/rag/transcript"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	chatMapper = mapper.NewChatMapper()
	tracer     = otel.Tracer("docchat-client/service")
)

// IChatbotService defines the chat turn and conversation operations of a tab
type IChatbotService interface {
	SetToken(ctx context.Context, tabID string, request *dto.SetTokenRequest) error
	GetState(ctx context.Context, tabID string) (*dto.ConversationResponse, error)
	Reset(ctx context.Context, tabID string) (*dto.ConversationResponse, error)
	SwitchContext(ctx context.Context, tabID string, request *dto.SwitchContextRequest) (*dto.SwitchContextResponse, error)
	SendTurn(ctx context.Context, tabID string, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error)
	Export(ctx context.Context, tabID string, format string) (*transcript.File, error)
}

type chatbotService struct {
	workspaces *WorkspaceRegistry
	dispatcher *dispatch.Dispatcher
	classifier *classify.Classifier
	factory    *message.Factory
	logger     logger.ILogger
}

func NewChatbotService(
	workspaces *WorkspaceRegistry,
	dispatcher *dispatch.Dispatcher,
	classifier *classify.Classifier,
	factory *message.Factory,
	log logger.ILogger,
) IChatbotService {
	return &chatbotService{
		workspaces: workspaces,
		dispatcher: dispatcher,
		classifier: classifier,
		factory:    factory,
		logger:     log,
	}
}

func (cs *chatbotService) SetToken(ctx context.Context, tabID string, request *dto.SetTokenRequest) error {
	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return err
	}
	return ws.Auth.SetToken(request.Token)
}

func (cs *chatbotService) GetState(ctx context.Context, tabID string) (*dto.ConversationResponse, error) {
	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return conversationResponse(ws), nil
}

func (cs *chatbotService) Reset(ctx context.Context, tabID string) (*dto.ConversationResponse, error) {
	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	ws.turnMu.Lock()
	defer ws.turnMu.Unlock()

	ws.Store.Reset(ctx)
	return conversationResponse(ws), nil
}

func (cs *chatbotService) SwitchContext(ctx context.Context, tabID string, request *dto.SwitchContextRequest) (*dto.SwitchContextResponse, error) {
	mode, ok := entity.ParseContextMode(request.Context)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContext, request.Context)
	}

	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	ws.turnMu.Lock()
	defer ws.turnMu.Unlock()

	changed := ws.Store.SwitchContext(ctx, mode)
	if changed {
		ws.Docs.ClearStaged()
	}
	return &dto.SwitchContextResponse{
		Changed:      changed,
		Conversation: conversationResponse(ws),
	}, nil
}

// SendTurn runs one question through probe, upload, indexing wait and
// dispatch. A failed turn appends exactly one error message and still
// returns a nil error; the failure is described in the response.
func (cs *chatbotService) SendTurn(ctx context.Context, tabID string, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error) {
	question := strings.TrimSpace(request.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	ws.turnMu.Lock()
	defer ws.turnMu.Unlock()

	mode := ws.Store.Context()
	ctx, span := tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("tab_id", tabID),
		attribute.String("context", string(mode)),
	))
	defer span.End()

	staged := ws.Docs.StagedFilenames()
	var userMsg entity.ChatMessage
	if mode == entity.ContextDocumentSearch && len(staged) > 0 {
		userMsg = cs.factory.File(question, staged)
	} else {
		userMsg = cs.factory.User(question)
	}
	ws.Store.Append(ctx, userMsg)

	result := &dto.SendTurnResponse{
		Appended: []*dto.ChatMessageResponse{chatMapper.MessageToResponse(&userMsg)},
	}

	fail := func(stage string, err error) (*dto.SendTurnResponse, error) {
		ce := cs.classifier.Classify(ctx, err, ws.Auth)
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)

		errMsg := cs.factory.Error(ce.Message)
		ws.Store.Append(ctx, errMsg)
		if stage == "upload" || stage == "indexing" {
			cs.workspaces.notify(ctx, tabID, constant.NotificationLevelError, ce.Message)
		}

		cs.logger.Warn("ChatbotService", "Turn aborted", map[string]interface{}{
			"tab_id": tabID,
			"stage":  stage,
			"kind":   ce.Kind.String(),
			"error":  err.Error(),
		})

		result.Appended = append(result.Appended, chatMapper.MessageToResponse(&errMsg))
		result.ErrorKind = ce.Kind.String()
		return result, nil
	}

	if err := cs.phase(ctx, "chat.probe", func(ctx context.Context) error {
		return cs.dispatcher.Probe(ctx, ws.Auth)
	}); err != nil {
		return fail("probe", err)
	}

	var fresh []string
	lowConfidence := false
	if mode == entity.ContextDocumentSearch {
		err := cs.phase(ctx, "chat.upload", func(ctx context.Context) error {
			var err error
			fresh, err = ws.Docs.Upload(ctx)
			return err
		})
		if err != nil {
			return fail("upload", err)
		}

		if len(fresh) > 0 {
			var outcome poll.Outcome
			err := cs.phase(ctx, "chat.indexing", func(ctx context.Context) error {
				var err error
				outcome, err = ws.Docs.AwaitIndexing(ctx, fresh)
				return err
			})
			if outcome == poll.Failed {
				return fail("indexing", err)
			}
			if outcome == poll.TimedOut {
				lowConfidence = true
				cs.workspaces.notify(ctx, tabID, constant.NotificationLevelWarning, constant.ChatIndexingTimeoutAdvisory)
			}
		}
	}

	req, err := cs.dispatcher.Compose(question, mode, ws.Docs.ResolveQueryIDs(fresh))
	if err != nil {
		return fail("compose", err)
	}

	var answerText string
	var sources []string
	err = cs.phase(ctx, "chat.dispatch", func(ctx context.Context) error {
		answer, err := cs.dispatcher.Send(ctx, ws.Auth, req)
		answerText, sources = answer.Text, answer.Sources
		return err
	})
	if err != nil {
		return fail("dispatch", err)
	}

	botMsg := cs.factory.Bot(answerText, sources, lowConfidence)
	ws.Store.Append(ctx, botMsg)

	result.Appended = append(result.Appended, chatMapper.MessageToResponse(&botMsg))
	result.LowConfidence = lowConfidence
	span.SetAttributes(attribute.Int("sources", len(sources)), attribute.Bool("low_confidence", lowConfidence))
	return result, nil
}

// Export renders the tab's transcript for download, together with the names
// of the documents the tab knows about.
func (cs *chatbotService) Export(ctx context.Context, tabID string, format string) (*transcript.File, error) {
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	ws, err := cs.workspaces.Get(ctx, tabID)
	if err != nil {
		return nil, err
	}

	docs := ws.Docs.Documents()
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Filename)
	}

	file, err := transcript.Export(ws.Store.Snapshot(), names, f, time.Now())
	if err != nil {
		return nil, err
	}

	cs.logger.Info("ChatbotService", "Conversation exported", map[string]interface{}{
		"tab_id": tabID,
		"format": string(f),
		"bytes":  len(file.Body),
	})
	cs.workspaces.notify(ctx, tabID, constant.NotificationLevelSuccess, "Chat exported.")
	return file, nil
}

func (cs *chatbotService) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
