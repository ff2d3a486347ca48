package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docchat-client/internal/dto"
	"docchat-client/internal/mapper"
	"docchat-client/pkg/rag/response"

	"github.com/go-playground/validator/v10"
)

var ErrMalformedMessages = errors.New("malformed saved messages")

// storedMessage mirrors dto.SessionMessageDTO but keeps sources raw, since
// older snapshots stored the backend's citation objects verbatim.
type storedMessage struct {
	Id            string            `json:"id"`
	From          string            `json:"from" validate:"required,oneof=user bot"`
	Text          string            `json:"text"`
	Type          string            `json:"type"`
	Timestamp     looseTime         `json:"timestamp"`
	Sources       []json.RawMessage `json:"sources"`
	Attachments   []string          `json:"attachments"`
	LowConfidence bool              `json:"low_confidence"`
}

// looseTime accepts ISO 8601 strings with or without a zone and epoch
// milliseconds. Anything else decodes to the zero time instead of failing
// the whole snapshot.
type looseTime time.Time

func (t *looseTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = looseTime(mapper.ParseBackendTime(s))
		return nil
	}
	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		*t = looseTime(time.UnixMilli(millis).UTC())
		return nil
	}
	*t = looseTime(time.Time{})
	return nil
}

var messageValidator = validator.New()

// ParseMessages decodes a saved-session messages field against a fixed
// schema. If the field is a JSON string it is decoded once more as JSON;
// nothing else is attempted.
func ParseMessages(raw json.RawMessage) ([]dto.SessionMessageDTO, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty", ErrMalformedMessages)
	}

	rows, err := decodeMessages(raw)
	if err == nil {
		return rows, nil
	}

	var encoded string
	if json.Unmarshal(raw, &encoded) != nil {
		return nil, err
	}
	return decodeMessages([]byte(encoded))
}

func decodeMessages(data []byte) ([]dto.SessionMessageDTO, error) {
	var stored []storedMessage
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessages, err)
	}

	out := make([]dto.SessionMessageDTO, 0, len(stored))
	for i, s := range stored {
		if err := messageValidator.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrMalformedMessages, i, err)
		}
		out = append(out, dto.SessionMessageDTO{
			Id:            s.Id,
			From:          s.From,
			Text:          s.Text,
			Type:          s.Type,
			Timestamp:     time.Time(s.Timestamp),
			Sources:       response.Labels(s.Sources),
			Attachments:   s.Attachments,
			LowConfidence: s.LowConfidence,
		})
	}
	return out, nil
}
