package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HTTPError is returned for every non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Details    []string
	Body       string
}

func (e *HTTPError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Body)
}

// newHTTPError extracts FastAPI-style "detail" messages, which come either as
// a string or as a list of {loc, msg, type} objects.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return e
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		if text != "" {
			e.Details = []string{text}
		}
		return e
	}

	var items []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, item := range items {
			if item.Msg == "" {
				continue
			}
			if field := fieldName(item.Loc); field != "" {
				e.Details = append(e.Details, field+": "+item.Msg)
			} else {
				e.Details = append(e.Details, item.Msg)
			}
		}
	}
	return e
}

// fieldName takes the last element of a FastAPI "loc" path.
func fieldName(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
