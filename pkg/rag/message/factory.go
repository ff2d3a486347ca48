package message

import (
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/entity"

	"github.com/google/uuid"
)

// Factory builds transcript messages with fresh ids and timestamps.
type Factory struct {
	now func() time.Time
}

// NewFactory creates a message factory. A nil clock means time.Now.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

func (f *Factory) newMessage(origin, kind, body string) entity.ChatMessage {
	return entity.ChatMessage{
		Id:        uuid.New(),
		Origin:    origin,
		Body:      body,
		Kind:      kind,
		CreatedAt: f.now(),
	}
}

// Welcome creates the greeting every fresh conversation starts with
func (f *Factory) Welcome() entity.ChatMessage {
	return f.newMessage(constant.ChatMessageOriginAssistant, constant.ChatMessageKindWelcome, constant.ChatWelcomeMessage)
}

// User creates a plain question message
func (f *Factory) User(question string) entity.ChatMessage {
	return f.newMessage(constant.ChatMessageOriginUser, constant.ChatMessageKindUser, question)
}

// File creates the user message for a turn that carries attachments. The
// filenames are recorded so the transcript shows what was sent.
func (f *Factory) File(question string, filenames []string) entity.ChatMessage {
	msg := f.newMessage(constant.ChatMessageOriginUser, constant.ChatMessageKindFile, question)
	msg.Attachments = append([]string(nil), filenames...)
	return msg
}

// Bot creates an answer message
func (f *Factory) Bot(answer string, sources []string, lowConfidence bool) entity.ChatMessage {
	msg := f.newMessage(constant.ChatMessageOriginAssistant, constant.ChatMessageKindBot, answer)
	if len(sources) > 0 {
		msg.Sources = append([]string(nil), sources...)
	}
	msg.LowConfidence = lowConfidence
	return msg
}

// Error creates the single error message a failed turn appends
func (f *Factory) Error(text string) entity.ChatMessage {
	return f.newMessage(constant.ChatMessageOriginAssistant, constant.ChatMessageKindError, text)
}

// Advisory explains what the given context mode does
func (f *Factory) Advisory(mode entity.ContextMode) entity.ChatMessage {
	text := constant.ChatGeneralModeAdvisory
	if mode == entity.ContextDocumentSearch {
		text = constant.ChatDocumentModeAdvisory
	}
	return f.newMessage(constant.ChatMessageOriginAssistant, constant.ChatMessageKindBot, text)
}
