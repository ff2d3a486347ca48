package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docchat-client/internal/dto"
	"docchat-client/internal/entity"
	"docchat-client/internal/mapper"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// ParseFormat defaults to plain text when value is empty.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatText), "text":
		return FormatText, nil
	case string(FormatJSON):
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
}

// File is a rendered transcript ready to be downloaded or written to disk.
type File struct {
	Filename    string
	ContentType string
	Body        []byte
}

// SharedChat is the JSON shape of an exported conversation.
type SharedChat struct {
	Context   string                  `json:"context"`
	Messages  []dto.SessionMessageDTO `json:"messages"`
	Documents []string                `json:"documents"`
	Timestamp time.Time               `json:"timestamp"`
}

var chatMapper = mapper.NewChatMapper()

// Export renders conv in the given format. documents are the filenames
// known to the session at export time.
func Export(conv entity.Conversation, documents []string, format Format, now time.Time) (*File, error) {
	stamp := now.UTC().Format("20060102-150405")

	switch format {
	case FormatText:
		return &File{
			Filename:    "chat-export-" + stamp + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(renderText(conv.Messages)),
		}, nil

	case FormatJSON:
		if documents == nil {
			documents = []string{}
		}
		body, err := json.MarshalIndent(SharedChat{
			Context:   conv.Context.Wire(),
			Messages:  chatMapper.MessagesToSessionDTO(conv.Messages),
			Documents: documents,
			Timestamp: now.UTC(),
		}, "", "  ")
		if err != nil {
			return nil, err
		}
		return &File{
			Filename:    "chat-export-" + stamp + ".json",
			ContentType: "application/json",
			Body:        body,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// renderText writes one block per message: "[15:04] FROM: text", followed by
// a Sources line when the message cites any.
func renderText(msgs []entity.ChatMessage) string {
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		d := chatMapper.MessageToSessionDTO(msg)

		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s: %s", msg.CreatedAt.Format("15:04"), strings.ToUpper(d.From), d.Text)
		if len(d.Sources) > 0 {
			b.WriteString("\nSources: " + strings.Join(d.Sources, ", "))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
