package dto

import (
	"encoding/json"
	"time"
)

// --- Backend wire types ---

type UploadedDocumentDTO struct {
	DocumentId string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type UploadDocumentsResponse struct {
	UploadedDocuments []UploadedDocumentDTO `json:"uploaded_documents"`
}

// DocumentStatusDTO is one row of the document status listing. The backend has
// used both "id" and "document_id" for the identifier.
type DocumentStatusDTO struct {
	Id               string `json:"id"`
	Filename         string `json:"filename"`
	ProcessingStatus string `json:"processing_status"`
}

func (d *DocumentStatusDTO) UnmarshalJSON(data []byte) error {
	var raw struct {
		Id               string `json:"id"`
		DocumentId       string `json:"document_id"`
		Filename         string `json:"filename"`
		ProcessingStatus string `json:"processing_status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Id = raw.Id
	if d.Id == "" {
		d.Id = raw.DocumentId
	}
	d.Filename = raw.Filename
	d.ProcessingStatus = raw.ProcessingStatus
	return nil
}

// DocumentStatusList accepts either a bare array or {"documents": [...]}.
type DocumentStatusList []DocumentStatusDTO

func (l *DocumentStatusList) UnmarshalJSON(data []byte) error {
	var rows []DocumentStatusDTO
	if err := json.Unmarshal(data, &rows); err == nil {
		*l = rows
		return nil
	}
	var wrapped struct {
		Documents []DocumentStatusDTO `json:"documents"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Documents
	return nil
}

type RAGChatRequest struct {
	Question  string   `validate:"required"`
	Context   string   `validate:"required,oneof=general documents"`
	Language  string   `validate:"required"`
	Documents []string `validate:"omitempty,dive,required"`
}

type RAGChatResponse struct {
	Answer   *string           `json:"answer"`
	Response *string           `json:"response"`
	Sources  []json.RawMessage `json:"sources"`
}

// SessionMessageDTO is the shape messages take inside a saved session.
type SessionMessageDTO struct {
	Id            string    `json:"id,omitempty"`
	From          string    `json:"from" validate:"required,oneof=user bot"`
	Text          string    `json:"text"`
	Type          string    `json:"type,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Sources       []string  `json:"sources,omitempty"`
	Attachments   []string  `json:"attachments,omitempty"`
	LowConfidence bool      `json:"low_confidence,omitempty"`
}

type SaveSessionRequest struct {
	Title    string              `json:"title" validate:"required,max=255"`
	Messages []SessionMessageDTO `json:"messages" validate:"min=1,dive"`
	Context  string              `json:"context" validate:"required,oneof=general documents"`
}

type SaveSessionResponse struct {
	SessionId    string `json:"session_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
}

type SessionSummaryDTO struct {
	SessionId    string `json:"session_id"`
	Title        string `json:"title"`
	Context      string `json:"context"`
	CreatedAt    string `json:"created_at"`
	MessageCount int    `json:"message_count"`
}

type SessionListResponse struct {
	Sessions []SessionSummaryDTO `json:"sessions"`
}

type SessionDetailDTO struct {
	SessionId string          `json:"session_id"`
	Title     string          `json:"title"`
	Context   string          `json:"context"`
	Messages  json.RawMessage `json:"messages"`
	CreatedAt string          `json:"created_at"`
}

// --- BFF request/response types ---

type SetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type SwitchContextRequest struct {
	Context string `json:"context" validate:"required,oneof=general document-search documents"`
}

type SwitchContextResponse struct {
	Changed      bool                  `json:"changed"`
	Conversation *ConversationResponse `json:"conversation"`
}

type SendTurnRequest struct {
	Question string `json:"question" validate:"required"`
}

type SendTurnResponse struct {
	Appended      []*ChatMessageResponse `json:"appended"`
	LowConfidence bool                   `json:"low_confidence"`
	ErrorKind     string                 `json:"error_kind,omitempty"`
}

type ChatMessageResponse struct {
	Id            string    `json:"id"`
	Origin        string    `json:"origin"`
	Body          string    `json:"body"`
	Kind          string    `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
	Sources       []string  `json:"sources,omitempty"`
	Attachments   []string  `json:"attachments,omitempty"`
	LowConfidence bool      `json:"low_confidence,omitempty"`
}

type ConversationResponse struct {
	Context  string                 `json:"context"`
	Messages []*ChatMessageResponse `json:"messages"`
}

type DocumentResponse struct {
	Id               string `json:"id"`
	Filename         string `json:"filename"`
	ProcessingStatus string `json:"processing_status"`
	Selected         bool   `json:"selected"`
}

type DocumentRejectionResponse struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}

type StageDocumentsResponse struct {
	Staged     []string                     `json:"staged"`
	Rejections []*DocumentRejectionResponse `json:"rejections"`
}

type SelectDocumentRequest struct {
	Selected bool `json:"selected"`
}

type SaveChatSessionRequest struct {
	Title string `json:"title" validate:"max=255"`
}

type SavedSessionResponse struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	Context      string    `json:"context"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}
