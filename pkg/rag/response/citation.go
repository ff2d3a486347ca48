package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const excerptRunes = 100

type CitationKind int

const (
	CitationText CitationKind = iota
	CitationObject
	CitationRaw
)

// Citation is one entry of a response's sources array. The backend sends
// plain strings, structured chunk objects, or occasionally something else.
type Citation struct {
	Kind   CitationKind
	Text   string
	Object map[string]interface{}
	Raw    json.RawMessage
}

// ParseCitation classifies a raw source entry.
func ParseCitation(raw json.RawMessage) Citation {
	trimmed := bytes.TrimSpace(raw)

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return Citation{Kind: CitationText, Text: text, Raw: raw}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err == nil && obj != nil {
		return Citation{Kind: CitationObject, Object: obj, Raw: raw}
	}

	return Citation{Kind: CitationRaw, Raw: raw}
}

// Label returns the display string for a citation. Objects are labelled by
// the first non-empty of: source, metadata.source, metadata.filename,
// document_id, chunk_id, a content excerpt, and finally the raw JSON.
func (c Citation) Label() string {
	switch c.Kind {
	case CitationText:
		return strings.TrimSpace(c.Text)
	case CitationObject:
		if v := field(c.Object, "source"); v != "" {
			return v
		}
		if meta, ok := c.Object["metadata"].(map[string]interface{}); ok {
			if v := field(meta, "source"); v != "" {
				return v
			}
			if v := field(meta, "filename"); v != "" {
				return v
			}
		}
		if v := field(c.Object, "document_id"); v != "" {
			return v
		}
		if v := field(c.Object, "chunk_id"); v != "" {
			return v
		}
		if v := field(c.Object, "content"); v != "" {
			return excerpt(v)
		}
	}
	return strings.TrimSpace(string(c.Raw))
}

func field(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprint(v)
	}
	return ""
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptRunes {
		return s
	}
	return string(runes[:excerptRunes]) + "..."
}
