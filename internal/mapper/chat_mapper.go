package mapper

import (
	"strings"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/dto"
	"docchat-client/internal/entity"

	"github.com/google/uuid"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Message Mappers

func (m *ChatMapper) MessageToResponse(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	if msg == nil {
		return nil
	}
	return &dto.ChatMessageResponse{
		Id:            msg.Id.String(),
		Origin:        msg.Origin,
		Body:          msg.Body,
		Kind:          msg.Kind,
		CreatedAt:     msg.CreatedAt,
		Sources:       msg.Sources,
		Attachments:   msg.Attachments,
		LowConfidence: msg.LowConfidence,
	}
}

func (m *ChatMapper) MessagesToResponse(msgs []entity.ChatMessage) []*dto.ChatMessageResponse {
	out := make([]*dto.ChatMessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, m.MessageToResponse(&msgs[i]))
	}
	return out
}

func (m *ChatMapper) ConversationToResponse(conv entity.Conversation) *dto.ConversationResponse {
	return &dto.ConversationResponse{
		Context:  string(conv.Context),
		Messages: m.MessagesToResponse(conv.Messages),
	}
}

// Saved Session Mappers

// MessageToSessionDTO converts a transcript message to the saved-session shape,
// where assistant messages are stored with from="bot".
func (m *ChatMapper) MessageToSessionDTO(msg entity.ChatMessage) dto.SessionMessageDTO {
	from := "user"
	if msg.Origin == constant.ChatMessageOriginAssistant {
		from = "bot"
	}
	return dto.SessionMessageDTO{
		Id:            msg.Id.String(),
		From:          from,
		Text:          msg.Body,
		Type:          msg.Kind,
		Timestamp:     msg.CreatedAt,
		Sources:       msg.Sources,
		Attachments:   msg.Attachments,
		LowConfidence: msg.LowConfidence,
	}
}

func (m *ChatMapper) MessagesToSessionDTO(msgs []entity.ChatMessage) []dto.SessionMessageDTO {
	out := make([]dto.SessionMessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, m.MessageToSessionDTO(msg))
	}
	return out
}

func (m *ChatMapper) SessionDTOToMessage(d dto.SessionMessageDTO) entity.ChatMessage {
	origin := constant.ChatMessageOriginUser
	if d.From == "bot" || d.From == constant.ChatMessageOriginAssistant {
		origin = constant.ChatMessageOriginAssistant
	}

	kind := d.Type
	if !isKnownKind(kind) {
		if origin == constant.ChatMessageOriginAssistant {
			kind = constant.ChatMessageKindBot
		} else {
			kind = constant.ChatMessageKindUser
		}
	}

	id, err := uuid.Parse(d.Id)
	if err != nil {
		id = uuid.New()
	}

	return entity.ChatMessage{
		Id:            id,
		Origin:        origin,
		Body:          d.Text,
		Kind:          kind,
		CreatedAt:     d.Timestamp,
		Sources:       d.Sources,
		Attachments:   d.Attachments,
		LowConfidence: d.LowConfidence,
	}
}

func (m *ChatMapper) SessionDTOsToMessages(ds []dto.SessionMessageDTO) []entity.ChatMessage {
	out := make([]entity.ChatMessage, 0, len(ds))
	for _, d := range ds {
		out = append(out, m.SessionDTOToMessage(d))
	}
	return out
}

func (m *ChatMapper) SessionSummaryToEntity(s dto.SessionSummaryDTO) entity.SavedSession {
	mode, ok := entity.ParseContextMode(s.Context)
	if !ok {
		mode = entity.ContextGeneral
	}
	return entity.SavedSession{
		Id:           s.SessionId,
		Title:        s.Title,
		Context:      mode,
		MessageCount: s.MessageCount,
		CreatedAt:    ParseBackendTime(s.CreatedAt),
	}
}

func (m *ChatMapper) SavedSessionToResponse(s entity.SavedSession) *dto.SavedSessionResponse {
	count := s.MessageCount
	if count == 0 {
		count = len(s.Messages)
	}
	return &dto.SavedSessionResponse{
		Id:           s.Id,
		Title:        s.Title,
		Context:      string(s.Context),
		MessageCount: count,
		CreatedAt:    s.CreatedAt,
	}
}

// Document Mappers

func (m *ChatMapper) DocumentToResponse(d entity.DocumentRef) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:               d.Id,
		Filename:         d.Filename,
		ProcessingStatus: string(d.ProcessingStatus),
		Selected:         d.Selected,
	}
}

func (m *ChatMapper) DocumentsToResponse(ds []entity.DocumentRef) []*dto.DocumentResponse {
	out := make([]*dto.DocumentResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, m.DocumentToResponse(d))
	}
	return out
}

func isKnownKind(kind string) bool {
	switch kind {
	case constant.ChatMessageKindWelcome,
		constant.ChatMessageKindUser,
		constant.ChatMessageKindBot,
		constant.ChatMessageKindError,
		constant.ChatMessageKindFile:
		return true
	}
	return false
}

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseBackendTime parses the timestamp formats the backend emits (ISO 8601
// with or without zone). Unparseable values yield the zero time.
func ParseBackendTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
