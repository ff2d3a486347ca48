package response

import (
	"encoding/json"
	"errors"
	"strings"

	"docchat-client/internal/dto"
)

var ErrMissingAnswer = errors.New("response has neither answer nor response field")

// Answer is a chat response reduced to what the transcript stores.
type Answer struct {
	Text    string
	Sources []string
}

// Normalize extracts the answer text and a de-duplicated list of citation
// labels. The answer field wins over the legacy response field.
func Normalize(resp *dto.RAGChatResponse) (Answer, error) {
	if resp == nil {
		return Answer{}, ErrMissingAnswer
	}

	var text string
	switch {
	case resp.Answer != nil:
		text = *resp.Answer
	case resp.Response != nil:
		text = *resp.Response
	default:
		return Answer{}, ErrMissingAnswer
	}

	return Answer{Text: text, Sources: Labels(resp.Sources)}, nil
}

// Labels normalizes a sources array, dropping empty and repeated labels.
func Labels(sources []json.RawMessage) []string {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, raw := range sources {
		label := ParseCitation(raw).Label()
		if label == "" || strings.EqualFold(label, "null") {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
